// Package rules reads, writes and fingerprints the canonical rule file.
package rules

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"frc2g/internal/model"
)

// Write emits the header followed by one record per rule.
func Write(w io.Writer, rules []model.CanonicalRule) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(model.CSVHeader); err != nil {
		return fmt.Errorf("could not write header: %w", err)
	}
	for _, r := range rules {
		if err := writer.Write(r.Record()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteFile(path string, rules []model.CanonicalRule) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, rules); err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return f.Close()
}

// Read parses a canonical rule file. Columns are located by header name, case
// insensitively; every canonical column must be present.
func Read(r io.Reader) ([]model.CanonicalRule, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}

	colMap := make(map[string]int)
	for i, colName := range header {
		colMap[strings.ToUpper(strings.TrimSpace(colName))] = i
	}
	cols := make([]int, len(model.CSVHeader))
	for i, name := range model.CSVHeader {
		idx, ok := colMap[name]
		if !ok {
			return nil, fmt.Errorf("could not find '%s' column", name)
		}
		cols[i] = idx
	}

	var rules []model.CanonicalRule
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		field := func(i int) string {
			if cols[i] < len(record) {
				return record[cols[i]]
			}
			return ""
		}
		rules = append(rules, model.CanonicalRule{
			Source:      field(0),
			Gateway:     field(1),
			Action:      field(2),
			Protocol:    field(3),
			Port:        field(4),
			Destination: field(5),
			Comment:     field(6),
			Disabled:    field(7),
			Floating:    field(8),
		})
	}
	return rules, nil
}

func ReadFile(path string) ([]model.CanonicalRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rules, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return rules, nil
}

// Fingerprint is the hex SHA-256 of the rules serialized with Write. Equal
// rule lists in equal order always yield the same fingerprint.
func Fingerprint(rules []model.CanonicalRule) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rules); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// Interfaces returns the distinct interface names found in the rules, sorted.
func Interfaces(rules []model.CanonicalRule) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rules {
		iface := r.Interface()
		if iface == "" || seen[iface] {
			continue
		}
		seen[iface] = true
		out = append(out, iface)
	}
	sort.Strings(out)
	return out
}

// ForInterface keeps the rules whose gateway interface is iface.
func ForInterface(rules []model.CanonicalRule, iface string) []model.CanonicalRule {
	var out []model.CanonicalRule
	for _, r := range rules {
		if r.Interface() == iface {
			out = append(out, r)
		}
	}
	return out
}

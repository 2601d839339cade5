package alias

import (
	"fmt"
	"strconv"
	"strings"

	"frc2g/internal/model"
)

type Resolver struct {
	tables   *Tables
	anyValue string
}

// NewResolver returns a resolver over fully populated tables. A nil tables
// value behaves like empty tables.
func NewResolver(tables *Tables, anyValue string) *Resolver {
	if tables == nil {
		tables = NewTables()
	}
	if anyValue == "" {
		anyValue = model.AnyValue
	}
	return &Resolver{tables: tables, anyValue: anyValue}
}

func (r *Resolver) Any() string { return r.anyValue }

func (r *Resolver) Tables() *Tables { return r.tables }

// Resolve maps a raw rule value to its alias label following the precedence
// of kind. Missing and empty values resolve to the "any" sentinel.
func (r *Resolver) Resolve(raw any, kind model.FieldKind) string {
	value, ok := Text(raw)
	if !ok || value == "" {
		return r.anyValue
	}

	switch kind {
	case model.FieldSource, model.FieldInterface:
		if label, ok := r.tables.interfaces[strings.ToLower(value)]; ok {
			return label
		}
	case model.FieldDestinationPort:
		if label, ok := r.tables.ports[value]; ok {
			return label
		}
	case model.FieldDestination:
		key := strings.ToLower(value)
		if label, ok := r.tables.interfaces[key]; ok {
			return label
		}
		if label, ok := r.tables.networks[key]; ok {
			return label
		}
		if label, ok := r.tables.addresses[key]; ok {
			return label
		}
	}
	return value
}

// FormatLabel enriches a display value with the alias definition it names:
// "<name> [<kind>] (<content>) - <description>". Values that are not aliases
// are returned unchanged.
func (r *Resolver) FormatLabel(value string) string {
	e, ok := r.lookupDetail(value)
	if !ok {
		return value
	}
	parts := []string{e.Name}
	if e.Kind != "" {
		parts = append(parts, "["+string(e.Kind)+"]")
	}
	if e.Content != "" {
		parts = append(parts, "("+e.Content+")")
	}
	if e.Description != "" && e.Description != e.Name {
		parts = append(parts, "- "+e.Description)
	}
	return strings.Join(parts, " ")
}

func (r *Resolver) lookupDetail(value string) (model.AliasEntry, bool) {
	key := strings.ToLower(strings.TrimSpace(value))
	if key == "" {
		return model.AliasEntry{}, false
	}
	if e, ok := r.tables.details[key]; ok {
		return e, true
	}
	compact := strings.NewReplacer(" ", "", ",", "").Replace(key)
	if e, ok := r.tables.details[compact]; ok {
		return e, true
	}
	if strings.Contains(key, ",") {
		for _, part := range strings.Split(key, ",") {
			if e, ok := r.tables.details[strings.TrimSpace(part)]; ok {
				return e, true
			}
		}
	}
	return model.AliasEntry{}, false
}

// Text flattens a decoded JSON value to the string used for lookups. Lists are
// joined with ", ". ok is false for nil and for objects.
func Text(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool:
		return model.BoolString(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case []string:
		return strings.Join(v, ", "), true
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := Text(item); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	case map[string]any:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

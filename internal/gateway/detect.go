package gateway

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// Values that appear in interface fields but never name an interface.
var nonInterfaceTokens = map[string]bool{
	"1": true, "any": true, "(self)": true, "": true, "none": true, "null": true,
}

// System interfaces that are never shown or fetched.
var systemInterfaces = map[string]bool{
	"lo0": true, "enc0": true, "pflog0": true, "": true,
}

var interfaceToken = regexp.MustCompile(`^(wan|lan|opt\d+)$`)

// detectMethod returns raw interface candidates.
type detectMethod struct {
	name string
	run  func(ctx context.Context) []string
}

// detectInterfaces tries each method in order and stops at the first that
// yields any candidate. The candidates are then filtered.
func detectInterfaces(ctx context.Context, methods ...detectMethod) []string {
	for _, m := range methods {
		candidates := m.run(ctx)
		if len(candidates) == 0 {
			slog.Debug("Interface detection method found nothing", "method", m.name)
			continue
		}
		valid := filterInterfaceCandidates(candidates)
		slog.Info("Detected interfaces", "method", m.name, "candidates", len(candidates), "interfaces", valid)
		return valid
	}
	slog.Warn("No interface detected")
	return nil
}

// filterInterfaceCandidates keeps wan, lan and opt* names, lower-cased,
// deduplicated and sorted.
func filterInterfaceCandidates(candidates []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if nonInterfaceTokens[c] || seen[c] {
			continue
		}
		if c == "wan" || c == "lan" || strings.HasPrefix(c, "opt") {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// interfacesFromRules scans rule interface, source and destination fields for
// interface names.
func interfacesFromRules(rules []Value) []string {
	var out []string
	collect := func(v Value) {
		var tokens []string
		switch v.Kind() {
		case KindList:
			items, _ := v.Items()
			for _, item := range items {
				tokens = append(tokens, item.Text())
			}
		case KindObject:
			tokens = append(tokens, v.Get("network").Text(), v.Get("address").Text())
		default:
			tokens = strings.Split(v.Text(), ",")
		}
		for _, t := range tokens {
			t = strings.ToLower(strings.TrimSpace(t))
			if interfaceToken.MatchString(t) {
				out = append(out, t)
			}
		}
	}
	for _, rule := range objectsOf(rules) {
		collect(rule.Get("interface"))
		collect(rule.Get("source"))
		collect(rule.Get("destination"))
	}
	return out
}

// interfaceMatches reports whether a rule's interface field names iface. The
// field may be a string, a comma separated string or a list.
func interfaceMatches(field Value, iface string) bool {
	var names []string
	if items, ok := field.Items(); ok {
		for _, item := range items {
			names = append(names, item.Text())
		}
	} else {
		names = strings.Split(field.Text(), ",")
	}
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), iface) {
			return true
		}
	}
	return false
}

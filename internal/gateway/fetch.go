package gateway

import (
	"context"
	"log/slog"
)

// ruleSource is the vendor half of a rule collection.
type ruleSource struct {
	global       func(ctx context.Context) []Value
	perInterface func(ctx context.Context, iface string) []Value
	detect       func(ctx context.Context, global []Value) []string
	ruleID       func(rule Value) string
}

// collectRules fetches the global rule set, then each configured or detected
// interface. The first occurrence of a rule id wins.
func collectRules(ctx context.Context, configured []string, src ruleSource) RuleSet {
	var set RuleSet
	seen := make(map[string]struct{})

	add := func(rules []Value, origin string) int {
		added := 0
		for _, rule := range objectsOf(rules) {
			id := src.ruleID(rule)
			if id == "" {
				slog.Warn("Skipping rule without identifier", "origin", origin)
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			set.Rules = append(set.Rules, RawRule{rule})
			added++
		}
		return added
	}

	global := src.global(ctx)
	n := add(global, "global")
	slog.Info("Fetched global rules", "fetched", len(global), "added", n)

	interfaces := configured
	if len(interfaces) == 0 {
		interfaces = src.detect(ctx, global)
	}
	if len(interfaces) == 0 {
		slog.Info("No specific interfaces, using global rules only")
	}
	for _, iface := range interfaces {
		if ctx.Err() != nil {
			break
		}
		rules := src.perInterface(ctx, iface)
		n := add(rules, iface)
		slog.Info("Fetched interface rules", "interface", iface, "fetched", len(rules), "added", n)
	}
	set.Interfaces = interfaces

	slog.Info("Rule collection complete", "unique_rules", len(set.Rules))
	return set
}

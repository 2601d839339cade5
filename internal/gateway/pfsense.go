package gateway

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"frc2g/internal/alias"
	"frc2g/internal/config"
	"frc2g/internal/model"
)

const (
	pfsenseAliasesPath         = "/api/v2/firewall/aliases"
	pfsenseInterfacesPath      = "/api/v2/interfaces"
	pfsenseLegacyInterfacePath = "/api/v1/firewall/interface"
	pfsenseRulesPath           = "/api/v2/firewall/rules"
)

// PfSense talks to the pfSense REST API v2 with an X-API-Key token.
type PfSense struct {
	client *Client
	opts   Options
}

func NewPfSense(client *Client, opts Options) *PfSense {
	return &PfSense{client: client, opts: opts.withDefaults()}
}

func (p *PfSense) Type() string { return config.TypePfSense }

// data unwraps the {"data": [...]} envelope. A bare list is accepted as is.
func (p *PfSense) data(v Value, what string) []Value {
	if v.Kind() == KindObject {
		v = v.Get("data")
	}
	return listOf(v, what)
}

func (p *PfSense) list(ctx context.Context, operation, path string, params url.Values, what string) []Value {
	timeout := p.opts.LookupTimeout
	if path == pfsenseRulesPath {
		timeout = p.opts.RulesTimeout
	}
	v, ok := get(ctx, p.client, operation, path, params, timeout)
	if !ok {
		return nil
	}
	return objectsOf(p.data(v, what))
}

func (p *PfSense) FetchAliases(ctx context.Context) *alias.Tables {
	tables := alias.NewTables()

	aliases := p.list(ctx, "fetching pfSense aliases", pfsenseAliasesPath, nil, "aliases")
	for _, a := range aliases {
		var addresses []string
		if items, ok := a.Get("address").Items(); ok {
			for _, item := range items {
				if s := item.Text(); s != "" {
					addresses = append(addresses, s)
				}
			}
		} else if s := a.Get("address").Text(); s != "" {
			addresses = append(addresses, s)
		}
		entry := model.AliasEntry{
			Name:        a.Get("name").Text(),
			Kind:        model.AliasKind(a.Get("type").Text()),
			Content:     strings.Join(addresses, ", "),
			Description: a.Get("descr").Text(),
		}
		if !tables.AddAlias(entry) {
			slog.Debug("Skipping alias", "name", entry.Name, "type", entry.Kind)
		}
	}
	slog.Info("Retrieved aliases", "gateway", p.Type(), "fetched", len(aliases), "kept", tables.AliasCount())

	interfaces := p.list(ctx, "fetching pfSense interfaces", pfsenseInterfacesPath, nil, "interfaces")
	for _, iface := range interfaces {
		id := iface.Get("id").Text()
		if systemInterfaces[strings.ToLower(id)] || !iface.Get("enable").Bool(true) {
			slog.Debug("Skipping interface", "id", id)
			continue
		}
		if label := tables.AddInterface(id, iface.Get("descr").Text()); label != "" {
			slog.Debug("Mapped interface", "id", strings.ToLower(id), "label", label)
		}
	}
	slog.Info("Retrieved interfaces", "gateway", p.Type(), "count", tables.InterfaceCount())
	return tables
}

func (p *PfSense) FetchRules(ctx context.Context) RuleSet {
	return collectRules(ctx, p.opts.Interfaces, ruleSource{
		global: func(ctx context.Context) []Value {
			return p.list(ctx, "fetching pfSense global rules", pfsenseRulesPath, nil, "rules")
		},
		perInterface: func(ctx context.Context, iface string) []Value {
			params := url.Values{"interface": {iface}}
			entries := p.list(ctx, "fetching pfSense rules for interface "+iface, pfsenseRulesPath, params, "rules")
			filtered := entries[:0:0]
			for _, e := range entries {
				if interfaceMatches(e.Get("interface"), iface) {
					filtered = append(filtered, e)
				}
			}
			return filtered
		},
		detect: p.detect,
		ruleID: pfsenseRuleID,
	})
}

func pfsenseRuleID(rule Value) string {
	for _, key := range []string{"tracker", "id"} {
		if v := rule.Get(key); v.Truthy() {
			return v.Text()
		}
	}
	return rule.Get("sequence").Text() + rule.Get("interface").Text()
}

func (p *PfSense) detect(ctx context.Context, global []Value) []string {
	return detectInterfaces(ctx,
		detectMethod{"interfaces endpoint", func(ctx context.Context) []string {
			var ids []string
			for _, iface := range p.list(ctx, "detecting pfSense interfaces", pfsenseInterfacesPath, nil, "interfaces") {
				id := strings.ToLower(iface.Get("id").Text())
				if systemInterfaces[id] || !iface.Get("enable").Bool(true) {
					continue
				}
				ids = append(ids, id)
			}
			return ids
		}},
		detectMethod{"legacy interface endpoint", func(ctx context.Context) []string {
			var ids []string
			for _, iface := range p.list(ctx, "detecting pfSense interfaces (legacy)", pfsenseLegacyInterfacePath, nil, "interfaces") {
				id := iface.Get("id").Text()
				if id == "" {
					id = iface.Get("if").Text()
				}
				if id = strings.ToLower(id); !systemInterfaces[id] {
					ids = append(ids, id)
				}
			}
			return ids
		}},
		detectMethod{"rules scan", func(context.Context) []string {
			return interfacesFromRules(global)
		}},
	)
}

// Normalize maps a pfSense rule to canonical form. Floating rules are grouped
// under "<name>/<floating label>".
func (p *PfSense) Normalize(raw RawRule, r *alias.Resolver) model.CanonicalRule {
	floating := raw.Get("floating").Bool(false)
	gw := p.opts.Name + "/" + r.Resolve(pfsensePolicy.extract(raw.Value, colInterface), model.FieldInterface)
	if floating {
		gw = p.opts.Name + "/" + p.opts.FloatingLabel
	}
	return model.CanonicalRule{
		Source:      r.Resolve(pfsensePolicy.extract(raw.Value, colSource), model.FieldSource),
		Gateway:     gw,
		Action:      action(pfsensePolicy.extract(raw.Value, colAction), p.opts.UnknownLabel),
		Protocol:    r.Resolve(pfsensePolicy.extract(raw.Value, colProtocol), model.FieldNone),
		Port:        normalizePort(r, pfsensePolicy.extract(raw.Value, colPort)),
		Destination: r.Resolve(pfsensePolicy.extract(raw.Value, colDestination), model.FieldDestination),
		Comment:     r.Resolve(pfsensePolicy.extract(raw.Value, colComment), model.FieldNone),
		Disabled:    model.BoolString(raw.Get("disabled").Bool(false)),
		Floating:    model.BoolString(floating),
	}
}

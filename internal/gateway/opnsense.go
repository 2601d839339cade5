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
	opnsenseAliasesPath    = "/api/firewall/alias/get"
	opnsenseInterfacesPath = "/api/interfaces/overview/interfaces_info"
	opnsenseRulesPath      = "/api/firewall/filter/search_rule"
)

// OPNsense talks to the OPNsense API with key/secret basic auth.
type OPNsense struct {
	client *Client
	opts   Options
}

func NewOPNsense(client *Client, opts Options) *OPNsense {
	return &OPNsense{client: client, opts: opts.withDefaults()}
}

func (o *OPNsense) Type() string { return config.TypeOPNsense }

func (o *OPNsense) rows(ctx context.Context, operation, path string, params url.Values, what string) []Value {
	timeout := o.opts.LookupTimeout
	if path == opnsenseRulesPath {
		timeout = o.opts.RulesTimeout
	}
	v, ok := get(ctx, o.client, operation, path, params, timeout)
	if !ok {
		return nil
	}
	return objectsOf(listOf(v.Get("rows"), what))
}

type option struct {
	key   string
	value string
}

// selected returns the entries of an OPNsense option map whose "selected" flag is 1.
func selected(options Value) []option {
	keys, _ := options.Keys()
	var out []option
	for _, k := range keys {
		opt := options.Get(k)
		if n, ok := opt.Get("selected").Int(); ok && n == 1 {
			value := opt.Get("value").Text()
			if value == "" {
				value = k
			}
			out = append(out, option{key: k, value: value})
		}
	}
	return out
}

func (o *OPNsense) FetchAliases(ctx context.Context) *alias.Tables {
	tables := alias.NewTables()

	v, ok := get(ctx, o.client, "fetching OPNsense aliases", opnsenseAliasesPath, nil, o.opts.LookupTimeout)
	if ok {
		container := v.Path("alias.aliases.alias")
		uuids, isObject := container.Keys()
		if !isObject && !container.IsNull() {
			slog.Warn("Unexpected data format, expected an object", "what", "aliases", "kind", container.Kind().String())
		}
		for _, uuid := range uuids {
			a := container.Get(uuid)
			name := a.Get("name").Text()
			if !a.Get("enabled").Bool(false) {
				slog.Debug("Skipping disabled alias", "name", name, "uuid", uuid)
				continue
			}
			var kind string
			if types := selected(a.Get("type")); len(types) > 0 {
				kind = types[0].key
			}
			var content []string
			if c := a.Get("content"); c.Kind() == KindString {
				for _, line := range strings.Split(c.Text(), "\n") {
					if line = strings.TrimSpace(line); line != "" {
						content = append(content, line)
					}
				}
			} else {
				for _, item := range selected(c) {
					content = append(content, item.value)
				}
			}
			entry := model.AliasEntry{
				Name:        name,
				Kind:        model.AliasKind(kind),
				Content:     strings.Join(content, ", "),
				Description: a.Get("description").Text(),
			}
			if !tables.AddAlias(entry) {
				slog.Debug("Skipping alias", "name", name, "type", kind)
			}
		}
		slog.Info("Retrieved aliases", "gateway", o.Type(), "fetched", len(uuids), "kept", tables.AliasCount())
	}

	for _, row := range o.interfaceRows(ctx, "fetching OPNsense interfaces") {
		id := strings.ToLower(row.Get("identifier").Text())
		if systemInterfaces[id] || !row.Get("enabled").Bool(false) {
			continue
		}
		descr := strings.TrimSpace(row.Get("description").Text())
		if descr == "" {
			descr = row.Path("config.descr").Text()
		}
		if label := tables.AddInterface(id, descr); label != "" {
			slog.Debug("Mapped interface", "id", id, "label", label)
		}
	}
	slog.Info("Retrieved interfaces", "gateway", o.Type(), "count", tables.InterfaceCount())
	return tables
}

func (o *OPNsense) interfaceRows(ctx context.Context, operation string) []Value {
	return o.rows(ctx, operation, opnsenseInterfacesPath, nil, "interfaces")
}

func (o *OPNsense) FetchRules(ctx context.Context) RuleSet {
	return collectRules(ctx, o.opts.Interfaces, ruleSource{
		global: func(ctx context.Context) []Value {
			params := url.Values{"show_all": {"1"}}
			return o.rows(ctx, "fetching OPNsense global rules", opnsenseRulesPath, params, "rules")
		},
		perInterface: func(ctx context.Context, iface string) []Value {
			params := url.Values{"interface": {iface}, "show_all": {"1"}}
			return o.rows(ctx, "fetching OPNsense rules for interface "+iface, opnsenseRulesPath, params, "rules")
		},
		detect: o.detect,
		ruleID: opnsenseRuleID,
	})
}

func opnsenseRuleID(rule Value) string {
	if v := rule.Get("uuid"); v.Truthy() {
		return v.Text()
	}
	return rule.Get("sequence").Text() + rule.Get("interface").Text()
}

func (o *OPNsense) detect(ctx context.Context, global []Value) []string {
	return detectInterfaces(ctx,
		detectMethod{"interfaces endpoint", func(ctx context.Context) []string {
			var ids []string
			for _, row := range o.interfaceRows(ctx, "detecting OPNsense interfaces") {
				if !row.Get("enabled").Bool(false) {
					continue
				}
				id := strings.ToLower(row.Get("identifier").Text())
				if id == "" {
					// Device name only when no identifier is reported.
					id = strings.ToLower(row.Path("config.if").Text())
				}
				if !systemInterfaces[id] {
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

// Normalize maps an OPNsense rule to canonical form. Rules without an
// interface are floating. The API does not report a disabled state here.
func (o *OPNsense) Normalize(raw RawRule, r *alias.Resolver) model.CanonicalRule {
	ifaceRaw := opnsensePolicy.extract(raw.Value, colInterface)
	floating := ifaceRaw == nil
	gw := o.opts.Name + "/" + r.Resolve(ifaceRaw, model.FieldInterface)
	if floating {
		gw = o.opts.Name + "/" + o.opts.FloatingLabel
	}
	return model.CanonicalRule{
		Source:      r.Resolve(opnsensePolicy.extract(raw.Value, colSource), model.FieldSource),
		Gateway:     gw,
		Action:      action(opnsensePolicy.extract(raw.Value, colAction), o.opts.UnknownLabel),
		Protocol:    r.Resolve(opnsensePolicy.extract(raw.Value, colProtocol), model.FieldNone),
		Port:        normalizePort(r, opnsensePolicy.extract(raw.Value, colPort)),
		Destination: r.Resolve(opnsensePolicy.extract(raw.Value, colDestination), model.FieldDestination),
		Comment:     r.Resolve(opnsensePolicy.extract(raw.Value, colComment), model.FieldNone),
		Disabled:    model.False,
		Floating:    model.BoolString(floating),
	}
}

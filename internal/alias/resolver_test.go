package alias

import (
	"testing"

	"frc2g/internal/model"
)

func newTestTables() *Tables {
	t := NewTables()
	t.AddInterface("lan", "LAN_NET")
	t.AddInterface("opt1", "")
	t.AddAlias(model.AliasEntry{Name: "WebServers", Kind: model.AliasHost, Content: "10.0.0.5, 10.0.0.6", Description: "Web farm"})
	t.AddAlias(model.AliasEntry{Name: "lan", Kind: model.AliasNetwork, Content: "192.168.1.0/24", Description: "Shadowed"})
	t.AddAlias(model.AliasEntry{Name: "web_ports", Kind: model.AliasPort, Content: "80, 443"})
	t.AddAlias(model.AliasEntry{Name: "geo", Kind: "geoip", Content: "FR"})
	return t
}

func TestResolvePrecedence(t *testing.T) {
	r := NewResolver(newTestTables(), "Any")

	tests := []struct {
		name string
		raw  any
		kind model.FieldKind
		want string
	}{
		{"interface table wins for destination", "lan", model.FieldDestination, "LAN_NET"},
		{"destination case insensitive", "WEBSERVERS", model.FieldDestination, "Web farm"},
		{"source uses interface table only", "webservers", model.FieldSource, "webservers"},
		{"interface without description", "OPT1", model.FieldInterface, "OPT1"},
		{"port alias exact match", "web_ports", model.FieldDestinationPort, "80, 443"},
		{"port alias lookup is case sensitive", "Web_Ports", model.FieldDestinationPort, "Web_Ports"},
		{"unknown value unchanged", "10.1.1.1", model.FieldDestination, "10.1.1.1"},
		{"none kind ignores tables", "lan", model.FieldNone, "lan"},
		{"nil is any", nil, model.FieldDestination, "Any"},
		{"empty is any", "", model.FieldSource, "Any"},
		{"list joined before lookup", []any{"a", "b"}, model.FieldNone, "a, b"},
		{"number", float64(443), model.FieldDestinationPort, "443"},
		{"bool", true, model.FieldNone, "True"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.raw, tt.kind); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAddAliasDropsUnsupportedKinds(t *testing.T) {
	tables := newTestTables()
	if _, ok := tables.Detail("geo"); ok {
		t.Fatalf("expected geoip alias to be dropped")
	}
	if tables.AliasCount() != 3 {
		t.Fatalf("expected 3 retained aliases, got %d", tables.AliasCount())
	}
	if tables.NetworkCount() != 2 || tables.PortCount() != 1 {
		t.Fatalf("unexpected table sizes: networks=%d ports=%d", tables.NetworkCount(), tables.PortCount())
	}
}

func TestFormatLabel(t *testing.T) {
	r := NewResolver(newTestTables(), "Any")

	if got := r.FormatLabel("WebServers"); got != "WebServers [host] (10.0.0.5, 10.0.0.6) - Web farm" {
		t.Fatalf("unexpected host label %q", got)
	}
	// Description defaults to the name and is then omitted.
	if got := r.FormatLabel("web_ports"); got != "web_ports [port] (80, 443)" {
		t.Fatalf("unexpected port label %q", got)
	}
	if got := r.FormatLabel("10.9.9.9, webservers"); got != "WebServers [host] (10.0.0.5, 10.0.0.6) - Web farm" {
		t.Fatalf("expected comma separated part to match, got %q", got)
	}
	if got := r.FormatLabel("plain"); got != "plain" {
		t.Fatalf("expected unchanged value, got %q", got)
	}
}

func TestResolverWithNilTables(t *testing.T) {
	r := NewResolver(nil, "")
	if got := r.Resolve(nil, model.FieldSource); got != model.AnyValue {
		t.Fatalf("expected default any value, got %q", got)
	}
}

package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"frc2g/internal/model"
)

func row(src, gw, action, proto, port, dest string) model.CanonicalRule {
	return model.CanonicalRule{
		Source: src, Gateway: gw, Action: action, Protocol: proto, Port: port,
		Destination: dest, Comment: model.AnyValue, Disabled: model.False, Floating: model.False,
	}
}

func TestBuildEndToEndScenario(t *testing.T) {
	rules := []model.CanonicalRule{
		row("LAN", "GW1/wan", "PASS", "TCP", "443", "WEB"),
		row("LAN", "GW1/wan", "PASS", "TCP", "8443", "WEB"),
	}
	m := NewBuilder(Options{}).Build(rules, "")

	if len(m.Gateways) != 1 || m.Gateways[0].Name != "GW1/wan" {
		t.Fatalf("expected one gateway GW1/wan, got %d", len(m.Gateways))
	}
	gw := m.Gateway("GW1/wan")
	if len(gw.Sources) != 1 {
		t.Fatalf("expected one source cluster, got %d", len(gw.Sources))
	}
	c := gw.Source("LAN")
	counts := map[NodeKind]int{
		NodeSource: 1, NodeGateway: 1, NodeAction: 1, NodeProtocol: 1, NodePort: 2, NodeDestination: 2,
	}
	for kind, want := range counts {
		if got := len(c.NodesOfKind(kind)); got != want {
			t.Fatalf("expected %d %s nodes, got %d", want, kind, got)
		}
	}
	if got := gw.ChainedEdges(); got != 10 {
		t.Fatalf("expected 10 chained edges, got %d", got)
	}
	// source, gateway, action and protocol hops are shared by both rows.
	if got := gw.EdgeCount(); got != 7 {
		t.Fatalf("expected 7 distinct edges, got %d", got)
	}
	if c.NodesOfKind(NodeAction)[0].Color != ColorPass {
		t.Fatalf("expected PASS colour on the action node")
	}
}

func TestFloatingDestinationsAreShared(t *testing.T) {
	rules := []model.CanonicalRule{
		row("LAN", "GW1/Floating-rules", "BLOCK", "TCP", "22", "SRV"),
		row("LAN", "GW1/Floating-rules", "BLOCK", "TCP", "22", "SRV"),
	}
	m := NewBuilder(Options{}).Build(rules, "")
	c := m.Gateway("GW1/Floating-rules").Source("LAN")
	if got := len(c.NodesOfKind(NodeDestination)); got != 1 {
		t.Fatalf("expected one shared destination node, got %d", got)
	}
	if got := len(c.Edges); got != 5 {
		t.Fatalf("expected duplicate edges to collapse to 5, got %d", got)
	}
	if c.NodesOfKind(NodeAction)[0].Color != ColorBlock {
		t.Fatalf("expected BLOCK colour on the action node")
	}
}

func TestNonFloatingIdenticalRowsKeepDistinctDestinations(t *testing.T) {
	rules := []model.CanonicalRule{
		row("LAN", "GW1/lan", "PASS", "TCP", "22", "SRV"),
		row("LAN", "GW1/lan", "PASS", "TCP", "22", "SRV"),
	}
	c := NewBuilder(Options{}).Build(rules, "").Gateway("GW1/lan").Source("LAN")
	if got := len(c.NodesOfKind(NodeDestination)); got != 2 {
		t.Fatalf("expected two destination nodes, got %d", got)
	}
	if got := len(c.Edges); got != 6 {
		t.Fatalf("expected 6 edges, got %d", got)
	}
}

func TestRowFlaggedFloatingIsRegrouped(t *testing.T) {
	r := row("Any", "GW1/lan", "PASS", "Any", "Any", "Any")
	r.Floating = model.True
	m := NewBuilder(Options{}).Build([]model.CanonicalRule{r}, "")
	gw := m.Gateway("GW1/Floating-rules")
	if gw == nil || !gw.Floating {
		t.Fatalf("expected the row under GW1/Floating-rules")
	}
}

func TestProtocolNodeSharedAcrossPorts(t *testing.T) {
	rules := []model.CanonicalRule{
		row("LAN", "GW1/wan", "PASS", "TCP", "80", "A"),
		row("LAN", "GW1/wan", "PASS", "TCP", "443", "B"),
		row("LAN", "GW1/wan", "BLOCK", "TCP", "443", "C"),
	}
	c := NewBuilder(Options{}).Build(rules, "").Gateway("GW1/wan").Source("LAN")
	// TCP|PASS and TCP|BLOCK are distinct protocol nodes.
	if got := len(c.NodesOfKind(NodeProtocol)); got != 2 {
		t.Fatalf("expected 2 protocol nodes, got %d", got)
	}
	if got := len(c.NodesOfKind(NodePort)); got != 3 {
		t.Fatalf("expected 3 port nodes, got %d", got)
	}
}

func TestDestinationLabels(t *testing.T) {
	disabled := row("LAN", "GW1/wan", "REJECT", "UDP", "53", "DNS")
	disabled.Disabled = model.True
	commented := row("LAN", "GW1/wan", "PASS", "UDP", "123", "<NTP>")
	commented.Comment = "time sync"

	c := NewBuilder(Options{}).Build([]model.CanonicalRule{disabled, commented}, "").Gateway("GW1/wan").Source("LAN")
	dests := c.NodesOfKind(NodeDestination)
	if dests[0].Label != "VLAN | DNS | Rule disabled" || dests[0].Color != ColorDisabled {
		t.Fatalf("unexpected disabled destination %+v", dests[0])
	}
	if dests[1].Label != "NTP | time sync" || dests[1].Color != "" {
		t.Fatalf("unexpected commented destination %+v", dests[1])
	}
	if got := c.NodesOfKind(NodeSource)[0].Label; got != "SOURCE | LAN" {
		t.Fatalf("unexpected source label %q", got)
	}
	if got := c.NodesOfKind(NodeGateway)[0].Label; got != "GATEWAY | GW1/wan" {
		t.Fatalf("unexpected gateway label %q", got)
	}
}

type hostFormatter struct{}

func (hostFormatter) FormatLabel(v string) string {
	if v == "web" {
		return "web [host] (10.0.0.1)"
	}
	return v
}

func TestLabelsUseFormatterAndServiceNames(t *testing.T) {
	rules := []model.CanonicalRule{row("", "GW1/wan", "pass", "tcp", "443", "web")}
	c := NewBuilder(Options{Formatter: hostFormatter{}, PortServiceNames: true}).
		Build(rules, "").Gateway("GW1/wan").Source("")
	if got := c.NodesOfKind(NodeDestination)[0].Label; got != "VLAN | web [host] (10.0.0.1)" {
		t.Fatalf("unexpected destination label %q", got)
	}
	if got := c.NodesOfKind(NodePort)[0].Label; got != "PORT | 443 (https)" {
		t.Fatalf("unexpected port label %q", got)
	}
	if got := c.NodesOfKind(NodeSource)[0].Label; got != "SOURCE | unknown" {
		t.Fatalf("expected unknown source label, got %q", got)
	}
	if got := c.NodesOfKind(NodeAction)[0].Label; got != "ACTION | PASS" {
		t.Fatalf("expected upper-cased action, got %q", got)
	}
}

func TestNamedPortGetsPortNumber(t *testing.T) {
	rules := []model.CanonicalRule{row("LAN", "GW1/wan", "PASS", "TCP", "https", "WEB")}
	c := NewBuilder(Options{PortServiceNames: true}).Build(rules, "").Gateway("GW1/wan").Source("LAN")
	if got := c.NodesOfKind(NodePort)[0].Label; got != "PORT | https (443)" {
		t.Fatalf("unexpected port label %q", got)
	}
}

func TestInterfaceFilter(t *testing.T) {
	rules := []model.CanonicalRule{
		row("LAN", "GW1/wan", "PASS", "TCP", "443", "WEB"),
		row("LAN", "GW1/lan", "PASS", "TCP", "443", "WEB"),
	}
	m := NewBuilder(Options{}).Build(rules, "lan")
	if len(m.Gateways) != 1 || m.Gateways[0].Name != "GW1/lan" {
		t.Fatalf("expected only GW1/lan")
	}
	// Ids restart on every build.
	if m.Gateways[0].Sources[0].Nodes[0].ID != 0 {
		t.Fatalf("expected node ids to restart at 0")
	}
}

func TestDOT(t *testing.T) {
	rules := []model.CanonicalRule{
		row("LAN NET", "GW1/wan", "PASS", "TCP", "443", "WEB"),
	}
	src := DOT(NewBuilder(Options{}).Build(rules, "").Gateway("GW1/wan"))
	for _, want := range []string{
		"digraph g {",
		"subgraph cluster_",
		`label=<<b>GATEWAY : GW1/wan</b>>`,
		`label="SOURCE : LAN NET"`,
		`rankdir="LR"`,
		`label="PORT | 443"`,
		`fillcolor="#a3f7a3"`,
		`style="dashed"`,
		"->",
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("expected %q in DOT source:\n%s", want, src)
		}
	}
	if ImageName("GW1/LAN NET") != "GW1_LAN_NET.gv.png" {
		t.Fatalf("unexpected image name %q", ImageName("GW1/LAN NET"))
	}
}

func TestDOTKeepsSimilarSourcesApart(t *testing.T) {
	rules := []model.CanonicalRule{
		row("LAN NET", "GW1/wan", "PASS", "TCP", "443", "WEB"),
		row("LAN_NET", "GW1/wan", "PASS", "TCP", "22", "SSH"),
	}
	src := DOT(NewBuilder(Options{}).Build(rules, "").Gateway("GW1/wan"))
	if n := strings.Count(src, "subgraph cluster_"); n != 2 {
		t.Fatalf("expected 2 source clusters, got %d:\n%s", n, src)
	}
	for _, want := range []string{`label="SOURCE : LAN NET"`, `label="SOURCE : LAN_NET"`} {
		if !strings.Contains(src, want) {
			t.Fatalf("expected %q in DOT source:\n%s", want, src)
		}
	}
}

type fakeRenderer struct {
	fail map[string]bool
}

func (f fakeRenderer) Render(_ context.Context, dot, out string) error {
	if f.fail[filepath.Base(out)] {
		return errors.New("boom")
	}
	return os.WriteFile(out, []byte(dot), 0o644)
}

func TestRenderAll(t *testing.T) {
	rules := []model.CanonicalRule{
		row("LAN", "GW1/wan", "PASS", "TCP", "443", "WEB"),
		row("LAN", "GW1/lan", "PASS", "TCP", "443", "WEB"),
	}
	dir := t.TempDir()
	m := NewBuilder(Options{}).Build(rules, "")
	images := RenderAll(context.Background(), m, fakeRenderer{fail: map[string]bool{"GW1_lan.gv.png": true}}, dir)
	if len(images) != 1 || images[0] != filepath.Join(dir, "GW1_wan.gv.png") {
		t.Fatalf("expected only the wan image, got %v", images)
	}
}

// Package graph builds the layered flow graph of canonical rules and renders it
// with Graphviz.
package graph

import (
	"strconv"
	"strings"

	"frc2g/internal/model"
	"frc2g/internal/utils"
	"frc2g/pkg/wellknown"
)

const (
	ColorPass     = "#a3f7a3"
	ColorBlock    = "#f7a3a3"
	ColorDisabled = "#ffcc00"
)

type NodeKind int

const (
	NodeSource NodeKind = iota
	NodeGateway
	NodeAction
	NodeProtocol
	NodePort
	NodeDestination
)

func (k NodeKind) String() string {
	return [...]string{"source", "gateway", "action", "protocol", "port", "destination"}[k]
}

type Node struct {
	ID    int
	Kind  NodeKind
	Label string
	// Color is the fill colour, empty for an unfilled node.
	Color string
}

// Name is the Graphviz node identifier.
func (n Node) Name() string {
	return "node" + strconv.Itoa(n.ID)
}

type Edge struct {
	From, To int
}

type nodeKey struct {
	kind NodeKind
	key  string
}

// SourceCluster holds the nodes and edges of one source inside a gateway graph.
type SourceCluster struct {
	Source  string
	Nodes   []Node
	Edges   []Edge
	// Chained counts every edge emitted, duplicates included.
	Chained int

	index map[nodeKey]int
	edges map[Edge]struct{}
}

func (c *SourceCluster) NodesOfKind(kind NodeKind) []Node {
	var out []Node
	for _, n := range c.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (c *SourceCluster) addEdge(from, to int) {
	c.Chained++
	e := Edge{From: from, To: to}
	if _, ok := c.edges[e]; ok {
		return
	}
	c.edges[e] = struct{}{}
	c.Edges = append(c.Edges, e)
}

// GatewayGraph is one rendered page: a gateway and its source sub-clusters.
type GatewayGraph struct {
	Name     string
	Floating bool
	Sources  []*SourceCluster

	bySource map[string]*SourceCluster
}

func (g *GatewayGraph) Source(name string) *SourceCluster {
	return g.bySource[name]
}

// EdgeCount is the number of distinct edges over all sub-clusters.
func (g *GatewayGraph) EdgeCount() int {
	n := 0
	for _, c := range g.Sources {
		n += len(c.Edges)
	}
	return n
}

// ChainedEdges is the number of edges emitted before deduplication, five per row.
func (g *GatewayGraph) ChainedEdges() int {
	n := 0
	for _, c := range g.Sources {
		n += c.Chained
	}
	return n
}

type Model struct {
	Gateways []*GatewayGraph

	byName map[string]*GatewayGraph
}

func (m *Model) Gateway(name string) *GatewayGraph {
	return m.byName[name]
}

// LabelFormatter enriches a display value, typically with alias details.
type LabelFormatter interface {
	FormatLabel(value string) string
}

type Options struct {
	AnyValue      string
	UnknownLabel  string
	DisabledLabel string
	// FloatingLabels mark a gateway as a floating-rules cluster when contained in its name.
	FloatingLabels []string
	// FloatingLabel replaces the interface part of rows flagged floating.
	FloatingLabel    string
	PortServiceNames bool
	Formatter        LabelFormatter
}

type Builder struct {
	opts   Options
	nextID int
}

func NewBuilder(opts Options) *Builder {
	if opts.AnyValue == "" {
		opts.AnyValue = model.AnyValue
	}
	if opts.UnknownLabel == "" {
		opts.UnknownLabel = model.UnknownLabel
	}
	if opts.DisabledLabel == "" {
		opts.DisabledLabel = model.DisabledLabel
	}
	if len(opts.FloatingLabels) == 0 {
		opts.FloatingLabels = model.FloatingRulesLabels
	}
	if opts.FloatingLabel == "" {
		opts.FloatingLabel = opts.FloatingLabels[0]
	}
	return &Builder{opts: opts}
}

// Build groups rows by gateway then source and emits five edges per row. When
// interfaceFilter is set only rows of that interface are kept. Node ids are
// allocated from zero on every call.
func (b *Builder) Build(rules []model.CanonicalRule, interfaceFilter string) *Model {
	b.nextID = 0
	m := &Model{byName: make(map[string]*GatewayGraph)}

	for _, row := range rules {
		gateway := strings.TrimSpace(row.Gateway)
		if row.IsFloating() {
			prefix, _, _ := strings.Cut(gateway, "/")
			gateway = prefix + "/" + b.opts.FloatingLabel
		}
		if interfaceFilter != "" && interfaceOf(gateway) != interfaceFilter {
			continue
		}

		gw := m.byName[gateway]
		if gw == nil {
			gw = &GatewayGraph{Name: gateway, Floating: b.isFloating(gateway), bySource: make(map[string]*SourceCluster)}
			m.byName[gateway] = gw
			m.Gateways = append(m.Gateways, gw)
		}
		source := strings.TrimSpace(row.Source)
		cluster := gw.bySource[source]
		if cluster == nil {
			cluster = &SourceCluster{Source: source, index: make(map[nodeKey]int), edges: make(map[Edge]struct{})}
			gw.bySource[source] = cluster
			gw.Sources = append(gw.Sources, cluster)
		}
		b.addRow(cluster, gw, gateway, source, row)
	}
	return m
}

func (b *Builder) addRow(c *SourceCluster, gw *GatewayGraph, gateway, source string, row model.CanonicalRule) {
	action := strings.ToUpper(strings.TrimSpace(row.Action))
	protocol := strings.TrimSpace(row.Protocol)
	if protocol == "" {
		protocol = b.opts.AnyValue
	}
	ports := utils.NormalizePorts(row.Port, b.opts.AnyValue)
	destination := strings.TrimSpace(row.Destination)
	comment := utils.StripAngles(strings.TrimSpace(row.Comment))
	if comment == b.opts.AnyValue {
		comment = ""
	}

	portLabel := b.format(ports, ports)
	if b.opts.PortServiceNames {
		portLabel = wellknown.Annotate(portLabel, protocol)
	}
	destLabel := b.format(destination, b.clean(destination))
	if comment != "" {
		destLabel += " | " + comment
	} else {
		destLabel = "VLAN | " + destLabel
	}
	destColor := ""
	if row.IsDisabled() {
		destLabel += " | " + b.opts.DisabledLabel
		destColor = ColorDisabled
	}

	sourceLabel := "SOURCE | " + b.format(source, b.clean(source))
	gatewayLabel := "GATEWAY | " + b.clean(gateway)
	actionLabel := "ACTION | " + b.clean(action)
	protoKey := protocol + "|" + action

	nSource := b.node(c, NodeSource, sourceLabel, sourceLabel, "")
	nGateway := b.node(c, NodeGateway, gatewayLabel, gatewayLabel, "")
	nAction := b.node(c, NodeAction, actionLabel, actionLabel, actionColor(action))
	nProto := b.node(c, NodeProtocol, protoKey, "PROTOCOL | "+utils.StripAngles(protocol), "")
	nPort := b.node(c, NodePort, ports+"|"+protoKey, "PORT | "+portLabel, "")
	var nDest int
	if gw.Floating {
		nDest = b.node(c, NodeDestination, destLabel, destLabel, destColor)
	} else {
		nDest = b.unique(c, NodeDestination, destLabel, destColor)
	}

	c.addEdge(nSource, nGateway)
	c.addEdge(nGateway, nAction)
	c.addEdge(nAction, nProto)
	c.addEdge(nProto, nPort)
	c.addEdge(nPort, nDest)
}

// node returns the id of the cluster node with the given key, allocating it
// on first use.
func (b *Builder) node(c *SourceCluster, kind NodeKind, key, label, color string) int {
	k := nodeKey{kind: kind, key: key}
	if id, ok := c.index[k]; ok {
		return id
	}
	id := b.unique(c, kind, label, color)
	c.index[k] = id
	return id
}

// unique always allocates a fresh node and never consults the index.
func (b *Builder) unique(c *SourceCluster, kind NodeKind, label, color string) int {
	id := b.nextID
	b.nextID++
	c.Nodes = append(c.Nodes, Node{ID: id, Kind: kind, Label: label, Color: color})
	return id
}

func (b *Builder) clean(s string) string {
	if s = utils.StripAngles(s); s == "" {
		return utils.StripAngles(b.opts.UnknownLabel)
	}
	return s
}

func (b *Builder) format(value, fallback string) string {
	if value == "" || b.opts.Formatter == nil {
		return fallback
	}
	if label := b.opts.Formatter.FormatLabel(value); label != value {
		return utils.StripAngles(label)
	}
	return fallback
}

func (b *Builder) isFloating(gateway string) bool {
	for _, label := range b.opts.FloatingLabels {
		if label != "" && strings.Contains(gateway, label) {
			return true
		}
	}
	return false
}

func actionColor(action string) string {
	switch model.Action(action) {
	case model.ActionPass:
		return ColorPass
	case model.ActionBlock, model.ActionReject:
		return ColorBlock
	}
	return ""
}

func interfaceOf(gateway string) string {
	if _, iface, ok := strings.Cut(gateway, "/"); ok {
		return iface
	}
	return gateway
}

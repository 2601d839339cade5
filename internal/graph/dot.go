package graph

import (
	"strconv"
	"strings"

	"github.com/emicklei/dot"

	"frc2g/internal/utils"
)

const fontName = "Helvetica,Arial,sans-serif"

// DOT renders one gateway graph as Graphviz source: a left-to-right layout
// with one dashed sub-cluster per source and record-shaped nodes.
func DOT(gw *GatewayGraph) string {
	g := dot.NewGraph(dot.Directed)
	g.ID("g")
	g.Attr("fontname", fontName)
	g.Attr("rankdir", "LR")

	title := strings.TrimSpace(utils.StripAngles(gw.Name))
	if title == "" {
		title = "Gateway"
	}
	g.Attr("label", dot.HTML("<b>GATEWAY : "+title+"</b>"))
	g.Attr("labelloc", "t")
	g.Attr("fontsize", "14")
	g.Attr("color", "#8888ff")

	for i, c := range gw.Sources {
		sg := g.Subgraph("src"+strconv.Itoa(i), dot.ClusterOption{})
		sg.Attr("label", "SOURCE : "+c.Source)
		sg.Attr("style", "dashed")
		sg.Attr("color", "#aaaaaa")

		nodes := make(map[int]dot.Node, len(c.Nodes))
		for _, n := range c.Nodes {
			node := sg.Node(n.Name())
			node.Attr("label", n.Label)
			node.Attr("shape", "record")
			node.Attr("fontname", fontName)
			node.Attr("fontsize", "11")
			if n.Color != "" {
				node.Attr("style", "filled")
				node.Attr("fillcolor", n.Color)
			}
			nodes[n.ID] = node
		}
		for _, e := range c.Edges {
			edge := sg.Edge(nodes[e.From], nodes[e.To])
			edge.Attr("fontname", fontName)
		}
	}
	return g.String()
}

// ImageName is the PNG file name of a gateway graph.
func ImageName(gateway string) string {
	return utils.SafeFilename(gateway) + ".gv.png"
}

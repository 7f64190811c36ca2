package typechecker

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// WriteDOT renders the graph in graphviz format, one cluster per scope.
func (g *Graph) WriteDOT(w io.Writer) error {
	out := "digraph cfg {\n"
	out += "\tnode [shape=box];\n"
	for _, s := range g.Scopes {
		out += fmt.Sprintf("\tsubgraph cluster_%d {\n", s.ID)
		out += fmt.Sprintf("\t\tlabel=%s;\n", strconv.Quote(s.Name))
		for _, id := range s.Vertices {
			v := g.Vertices[id]
			out += fmt.Sprintf("\t\tv%d [label=%s];\n", v.ID, strconv.Quote(vertexLabel(v)))
		}
		out += "\t}\n"
	}
	// edges after clusters for clearer output ordering
	for _, v := range g.Vertices {
		for _, e := range v.Edges {
			out += fmt.Sprintf("\tv%d -> v%d [label=%s];\n", v.ID, e.To, strconv.Quote(string(e.Label)))
		}
	}
	out += "}\n"
	_, err := io.WriteString(w, out)
	return errors.Wrap(err, "write dot")
}

func vertexLabel(v *Vertex) string {
	start := v.Node.Span().Start
	if start.Line == 0 {
		return string(v.Node.NodeType())
	}
	return fmt.Sprintf("%s:%d", v.Node.NodeType(), start.Line)
}

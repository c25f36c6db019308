package graph

import (
	"fmt"
	"strings"
)

// Mermaid renders the compiled graph as a Mermaid flowchart. Conditional
// edges are dotted; fan-out and join edges carry a label.
func (graph *Graph) Mermaid() string {
	topology := graph.Topology()

	ids := map[string]string{Start: "startNode", End: "endNode"}
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")
	sb.WriteString("  startNode([START])\n")
	for index, name := range graph.order {
		ids[name] = fmt.Sprintf("N%d", index)
		sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[name], escapeMermaid(name)))
	}
	sb.WriteString("  endNode([END])\n")

	for _, edge := range topology.Edges {
		from, to := ids[edge.From], ids[edge.To]
		switch edge.Kind {
		case EdgeConditional:
			if edge.Label != "" {
				sb.WriteString(fmt.Sprintf("  %s -.->|%s| %s\n", from, escapeMermaid(edge.Label), to))
			} else {
				sb.WriteString(fmt.Sprintf("  %s -.-> %s\n", from, to))
			}
		case EdgeFanout:
			sb.WriteString(fmt.Sprintf("  %s ==>|send| %s\n", from, to))
		case EdgeJoin:
			sb.WriteString(fmt.Sprintf("  %s -->|join| %s\n", from, to))
		default:
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", from, to))
		}
	}
	return sb.String()
}

func escapeMermaid(text string) string {
	return strings.NewReplacer(`"`, "#quot;", "|", "#124;").Replace(text)
}

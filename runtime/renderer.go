package runtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warriorguo/stepflow/types"
)

// renderDOT draws g in graphviz DOT. With a trace, visited nodes are filled
// green or red by outcome and the edges taken are drawn bold.
func renderDOT(g *Graph, trace *types.ExecutionTrace) (string, error) {
	renderer := newGraphRenderer(trace)
	return renderer.generateDOT(g), nil
}

func newGraphRenderer(trace *types.ExecutionTrace) *graphRenderer {
	d := &graphRenderer{
		records: make(map[string]*types.TraceEntry),
		taken:   make(map[string]string),
		sb:      &strings.Builder{},
	}
	if trace != nil {
		for i := range trace.Entries {
			e := &trace.Entries[i]
			d.records[e.NodeID] = e
			if e.Next != "" {
				d.taken[e.NodeID] = e.Next
			}
		}
	}
	return d
}

type graphRenderer struct {
	records map[string]*types.TraceEntry
	taken   map[string]string
	sb      *strings.Builder
}

func (d *graphRenderer) generateDOT(g *Graph) string {
	d.write("digraph D {")
	d.write("rankdir=TB")
	for _, id := range g.order {
		v := g.vertices[id]
		switch v.Kind {
		case types.StepNode:
			d.write("%s [label=%s shape=\"record\"%s]", idString(id), quoteString(id), d.calcAttr(v))
		case types.BranchNode:
			d.write("%s [label=%s shape=\"diamond\"%s]", idString(id), quoteString(id), d.calcAttr(v))
		case types.TerminalNode:
			d.write("%s [label=%s shape=\"doublecircle\"%s]", idString(id), quoteString(id), d.calcAttr(v))
		}
	}
	for _, id := range g.order {
		v := g.vertices[id]
		switch v.Kind {
		case types.StepNode:
			d.drawEdge(id, v.Next, "")
		case types.BranchNode:
			d.drawEdge(id, v.OnMatch, "match")
			d.drawEdge(id, v.OnNoMatch, "otherwise")
		}
	}
	d.write("label=%s", quoteString(g.name))
	d.write("}")
	return d.sb.String()
}

func (d *graphRenderer) drawEdge(from, to, label string) {
	attrs := make([]string, 0, 2)
	if label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%s", quoteString(label)))
	}
	if d.taken[from] == to {
		attrs = append(attrs, "style=\"bold\"")
	}
	if len(attrs) == 0 {
		d.write("%s -> %s", idString(from), idString(to))
		return
	}
	d.write("%s -> %s [%s]", idString(from), idString(to), strings.Join(attrs, " "))
}

func (d *graphRenderer) calcAttr(v *Vertex) string {
	record, exists := d.records[v.ID]
	if !exists {
		return ""
	}

	color := "green"
	switch {
	case record.Result != nil && !record.Result.Succeeded():
		color = "red"
	case record.Kind == types.TerminalNode && record.Terminal == types.TerminalFailed:
		color = "red"
	}
	return fmt.Sprintf(" style=\"filled\" color=\"%s\" comment=\"%s\"", color, packToComment(record))
}

func packToComment(r *types.TraceEntry) string {
	s, _ := json.Marshal(r)
	return formatNL(addSlashes(string(s)))
}

func (d *graphRenderer) write(format string, s ...any) {
	d.sb.WriteString(fmt.Sprintf(format+"\n", s...))
}

var (
	slashesToken = []string{"\\", "\"", "'", " "}
)

func addSlashes(s string) string {
	for _, token := range slashesToken {
		s = strings.ReplaceAll(s, token, "\\"+token)
	}
	return s
}

func formatNL(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}

func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

var idleChars = []string{" ", "'", "\"", "(", ")", "*", "&", "^", "%", "$", "#", "@", "!", "?", "<", ">", "[", "]", "{", "}", ".", "-"}

func idString(s string) string {
	for _, ch := range idleChars {
		s = strings.ReplaceAll(s, ch, "_")
	}
	return s
}

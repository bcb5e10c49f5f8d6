package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/fsmconv/pkg/domain"
)

// Overlay contains simulation data to visualize on the graph.
type Overlay struct {
	VisitedStates []string
	CurrentState  string
}

// GenerateMermaid produces a Mermaid flowchart for a Mealy or Moore machine.
// The start state is drawn as a circle. Mealy edges are labelled
// "input / output", Moore states carry their output in the node label and
// edges are labelled with the input alone. Parallel edges between the same
// pair of states are merged into one labelled with every input.
func GenerateMermaid(m domain.Machine, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	switch m := m.(type) {
	case *domain.Mealy:
		for i, name := range m.States {
			writeNode(&sb, name, name, i == 0)
		}
		for s, name := range m.States {
			labels := newEdgeSet()
			for in, e := range m.Transitions[s] {
				labels.add(e.To, fmt.Sprintf("%d / %d", in, e.Output))
			}
			labels.write(&sb, name)
		}
	case *domain.Moore:
		for i, st := range m.States {
			writeNode(&sb, st.Name, fmt.Sprintf("%s <br/> out %d", st.Name, st.Output), i == 0)
		}
		for _, st := range m.States {
			labels := newEdgeSet()
			for in, to := range m.Transitions[st.Name] {
				labels.add(to, fmt.Sprint(in))
			}
			labels.write(&sb, st.Name)
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(id)
			if !visited[safeID] && safeID != "" {
				visited[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentState != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
		}
	}

	return sb.String()
}

func writeNode(sb *strings.Builder, id, label string, start bool) {
	opener, closer := "[", "]"
	if start {
		opener, closer = "((", "))"
	}
	label = strings.ReplaceAll(label, "\"", "'")
	sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(id), opener, label, closer))
}

// edgeSet groups edge labels by destination, keeping first-seen order.
type edgeSet struct {
	order  []string
	labels map[string][]string
}

func newEdgeSet() *edgeSet {
	return &edgeSet{labels: make(map[string][]string)}
}

func (e *edgeSet) add(to, label string) {
	if _, ok := e.labels[to]; !ok {
		e.order = append(e.order, to)
	}
	e.labels[to] = append(e.labels[to], label)
}

func (e *edgeSet) write(sb *strings.Builder, from string) {
	for _, to := range e.order {
		sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n",
			sanitizeMermaidID(from), strings.Join(e.labels[to], ", "), sanitizeMermaidID(to)))
	}
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(
		".", "_",
		"-", "_",
		"/", "_",
		"\\", "_",
		"'", "_p",
		" ", "_",
	)
	return r.Replace(id)
}

// Package table renders machines as markdown transition tables.
package table

import (
	"fmt"
	"strings"

	"github.com/aretw0/fsmconv/pkg/domain"
)

// Markdown renders m as a markdown table. Mealy machines get one
// At_i / Output_i column pair per input, Moore machines an Output column
// followed by one On Input i column per input. The start state is marked
// with an arrow.
func Markdown(m domain.Machine) string {
	switch m := m.(type) {
	case *domain.Mealy:
		return mealy(m)
	case *domain.Moore:
		return moore(m)
	default:
		return ""
	}
}

func mealy(m *domain.Mealy) string {
	header := []string{"State"}
	for i := 0; i < m.Inputs; i++ {
		header = append(header, fmt.Sprintf("At_%d", i), fmt.Sprintf("Output_%d", i))
	}

	rows := make([][]string, len(m.States))
	for s, name := range m.States {
		row := []string{stateCell(name, s == 0)}
		for _, e := range m.Transitions[s] {
			row = append(row, cell(e.To), fmt.Sprint(e.Output))
		}
		rows[s] = row
	}
	return render(header, rows)
}

func moore(m *domain.Moore) string {
	header := []string{"State", "Output"}
	for i := 0; i < m.Inputs; i++ {
		header = append(header, fmt.Sprintf("On Input %d", i))
	}

	rows := make([][]string, len(m.States))
	for s, st := range m.States {
		row := []string{stateCell(st.Name, s == 0), fmt.Sprint(st.Output)}
		for _, to := range m.Transitions[st.Name] {
			row = append(row, cell(to))
		}
		rows[s] = row
	}
	return render(header, rows)
}

func stateCell(name string, start bool) string {
	if start {
		return "→ " + cell(name)
	}
	return cell(name)
}

// cell escapes the markdown column separator.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func render(header []string, rows [][]string) string {
	var sb strings.Builder
	writeRow(&sb, header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&sb, sep)
	for _, r := range rows {
		writeRow(&sb, r)
	}
	return sb.String()
}

func writeRow(sb *strings.Builder, cols []string) {
	sb.WriteString("| ")
	sb.WriteString(strings.Join(cols, " | "))
	sb.WriteString(" |\n")
}

package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/fsmconv/internal/presentation/graph"
	"github.com/aretw0/fsmconv/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	mealy := &domain.Mealy{
		States: []string{"q0", "q1"},
		Transitions: [][]domain.MealyEdge{
			{{To: "q1", Output: 1}, {To: "q1", Output: 0}},
			{{To: "q0", Output: 0}, {To: "q1", Output: 1}},
		},
		Inputs: 2,
	}
	moore := &domain.Moore{
		States: []domain.MooreState{{Name: "q0/-", Output: 0}, {Name: "q1/1", Output: 1}},
		Transitions: map[string][]string{
			"q0/-": {"q1/1"},
			"q1/1": {"q1/1"},
		},
		Inputs: 1,
	}

	tests := []struct {
		name     string
		machine  domain.Machine
		overlay  *graph.Overlay
		contains []string
	}{
		{
			name:    "Mealy Start And Merged Edges",
			machine: mealy,
			contains: []string{
				`q0(("q0"))`,
				`q1["q1"]`,
				`q0 -- "0 / 1, 1 / 0" --> q1`,
				`q1 -- "0 / 0" --> q0`,
			},
		},
		{
			name:    "Moore Outputs And ID Sanitization",
			machine: moore,
			contains: []string{
				`q0__(("q0/- <br/> out 0"))`,
				`q1_1["q1/1 <br/> out 1"]`,
				`q0__ -- "0" --> q1_1`,
			},
		},
		{
			name:    "Overlay",
			machine: mealy,
			overlay: &graph.Overlay{VisitedStates: []string{"q0", "q1", "q0"}, CurrentState: "q1"},
			contains: []string{
				"class q0 visited;",
				"class q1 current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.machine, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			if tt.overlay != nil && strings.Count(got, "class q0 visited;") != 1 {
				t.Errorf("visited states should be deduplicated:\n%v", got)
			}
		})
	}
}

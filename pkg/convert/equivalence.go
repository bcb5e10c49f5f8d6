package convert

import (
	"github.com/aretw0/fsmconv/pkg/domain"
)

// Equivalent reports whether mealy and moore emit the same output sequence
// for every input sequence, comparing the Mealy output of each step with the
// output of the Moore state entered by that step.
//
// It explores the product of both machines breadth-first from their start
// states, so the returned counterexample is a shortest distinguishing input.
func Equivalent(mealy *domain.Mealy, moore *domain.Moore) (bool, []int, error) {
	if err := mealy.Validate(); err != nil {
		return false, nil, err
	}
	if err := moore.Validate(); err != nil {
		return false, nil, err
	}
	if mealy.Inputs != moore.Inputs {
		return false, nil, domain.Errorf(domain.KindInvalidModel, domain.StageValidation,
			"alphabets differ: mealy has %d inputs, moore has %d", mealy.Inputs, moore.Inputs)
	}

	index := make(map[string]int, len(mealy.States))
	for i, s := range mealy.States {
		index[s] = i
	}
	outputs := moore.Outputs()

	type pair struct {
		mealy int
		moore string
	}
	type step struct {
		prev  pair
		input int
		root  bool
	}

	start := pair{mealy: 0, moore: moore.Start()}
	visited := map[pair]step{start: {root: true}}
	queue := []pair{start}

	path := func(p pair, last int) []int {
		var rev []int
		rev = append(rev, last)
		for s := visited[p]; !s.root; s = visited[p] {
			rev = append(rev, s.input)
			p = s.prev
		}
		for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
			rev[i], rev[j] = rev[j], rev[i]
		}
		return rev
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for in := 0; in < mealy.Inputs; in++ {
			e := mealy.Transitions[cur.mealy][in]
			dst := moore.Transitions[cur.moore][in]
			if e.Output != outputs[dst] {
				return false, path(cur, in), nil
			}
			next := pair{mealy: index[e.To], moore: dst}
			if _, ok := visited[next]; !ok {
				visited[next] = step{prev: cur, input: in}
				queue = append(queue, next)
			}
		}
	}
	return true, nil, nil
}

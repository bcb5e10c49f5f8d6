/*
Package fsmconv converts finite-state machines between the Mealy and Moore models.

A Mealy machine emits an output on every transition; a Moore machine emits an output on
entering a state. fsmconv parses a compact text description of either model, converts it to
the other, and serializes both machines to the JSON shapes served by its HTTP API.

# Text formats

Mealy text has one line per state. Each line lists a (next state, output) pair for every
input symbol 0..k-1:

	1 0 0 1    # q0: on 0 -> q1 / 0, on 1 -> q0 / 1
	0 1 1 0    # q1: on 0 -> q0 / 1, on 1 -> q1 / 0

Moore text starts with the output of every state, followed by one line per input symbol that
lists the destination of every state:

	0 1        # outputs of q0, q1
	1 0        # input 0
	0 1        # input 1

# Equivalence

Conversions preserve the observable output sequence. For every input sequence, the outputs a
Moore machine shows after each step equal the outputs the Mealy machine emits during each step.
Mealy to Moore splits every state by the output on its incoming edges and adds a dedicated
start state, so the result has at most n*k+1 states.

# Usage

	eng := fsmconv.New()

	res, err := eng.MealyToMoore(ctx, "1 0 0 1\n0 1 1 0")
	if err != nil {
		var e *domain.Error
		if errors.As(err, &e) {
			log.Printf("bad input at %s (line %d): %s", e.Stage, e.Line, e.Message)
		}
		return err
	}
	json.NewEncoder(os.Stdout).Encode(res)

The same engine backs the HTTP server (pkg/adapters/http), the MCP tool server
(pkg/adapters/mcp) and the fsmconv command.
*/
package fsmconv

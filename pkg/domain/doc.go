/*
Package domain contains the core models of fsmconv.

It defines the two finite-state transducer models, the error taxonomy shared by
every stage of a conversion run, and the lifecycle hooks used for observability.
The package has no I/O and no dependencies outside the standard library.

# Key Entities

  - Mealy: output is emitted on each transition (state x input -> state, output).
  - Moore: output is emitted on entering a state (state -> output).
  - Error: a client-input failure tagged with a Kind and the Stage that raised it.
  - LifecycleHooks: callbacks fired by the pipeline after each stage and run.

Both machines treat States[0] as the start state and label inputs positionally
0..Inputs-1.
*/
package domain

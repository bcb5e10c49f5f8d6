package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/fsmconv/internal/presentation/graph"
	"github.com/aretw0/fsmconv/pkg/domain"
)

func newGraphCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [file|-]",
		Short: "Export the machine as a Mermaid diagram",
		Long: `Outputs a Mermaid flowchart of the machine. With --convert the converted
machine is drawn instead. With --trace the states visited by the given input
sequence are highlighted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := kindFlag(cmd)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			eng := a.engine(domain.LifecycleHooks{})
			m, err := eng.Validate(cmd.Context(), kind, text)
			if err != nil {
				return err
			}
			if doConvert, _ := cmd.Flags().GetBool("convert"); doConvert {
				dir := domain.MealyToMoore
				if kind == domain.MachineMoore {
					dir = domain.MooreToMealy
				}
				res, err := eng.Convert(cmd.Context(), dir, text)
				if err != nil {
					return err
				}
				m = res.Target
			}

			var overlay *graph.Overlay
			if raw, _ := cmd.Flags().GetString("trace"); raw != "" {
				inputs, err := parseInputs(raw)
				if err != nil {
					return err
				}
				trace, err := m.Trace(inputs)
				if err != nil {
					return err
				}
				overlay = &graph.Overlay{VisitedStates: trace, CurrentState: trace[len(trace)-1]}
			}

			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(m, overlay))
			return nil
		},
	}

	cmd.Flags().StringP("kind", "k", string(domain.MachineMealy), "Machine model: mealy or moore")
	cmd.Flags().Bool("convert", false, "Draw the converted machine")
	cmd.Flags().String("trace", "", "Highlight the states visited by these inputs, e.g. 0,1,1")
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/fsmconv/pkg/domain"
)

func newSimulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [file|-]",
		Short: "Run an input sequence through a machine",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := kindFlag(cmd)
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetString("inputs")
			inputs, err := parseInputs(raw)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			sim, err := a.engine(domain.LifecycleHooks{}).Simulate(cmd.Context(), kind, text, inputs)
			if err != nil {
				return err
			}

			outputs := make([]string, len(sim.Outputs))
			for i, o := range sim.Outputs {
				outputs[i] = fmt.Sprint(o)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "outputs: %s\n", strings.Join(outputs, " "))
			fmt.Fprintf(out, "trace:   %s\n", strings.Join(sim.Trace, " -> "))
			return nil
		},
	}

	cmd.Flags().StringP("kind", "k", string(domain.MachineMealy), "Machine model: mealy or moore")
	cmd.Flags().StringP("inputs", "i", "", "Input symbols, e.g. 0,1,1")
	return cmd
}

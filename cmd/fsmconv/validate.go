package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/fsmconv/pkg/domain"
)

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Check a machine description",
		Long:  `Parses a machine and reports the first syntax or model error, with its line number.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := kindFlag(cmd)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			m, err := a.engine(domain.LifecycleHooks{}).Validate(cmd.Context(), kind, text)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			states, inputs := shape(m)
			fmt.Fprintf(cmd.OutOrStdout(), "%s machine is valid ✅ (%d states, %d inputs)\n", kind, states, inputs)
			return nil
		},
	}

	cmd.Flags().StringP("kind", "k", string(domain.MachineMealy), "Machine model: mealy or moore")
	return cmd
}

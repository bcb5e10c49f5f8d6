package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/fsmconv/pkg/domain"
)

// readInput returns the machine text from the file named in args, or from
// stdin when no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read machine: %w", err)
	}
	return string(data), nil
}

// parseInputs reads a comma or space separated symbol list such as "0,1,1".
func parseInputs(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	inputs := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid input symbol %q", f)
		}
		inputs = append(inputs, v)
	}
	return inputs, nil
}

func kindFlag(cmd *cobra.Command) (domain.MachineKind, error) {
	v, _ := cmd.Flags().GetString("kind")
	return domain.ParseMachineKind(v)
}

// shape reports the number of states and inputs of m.
func shape(m domain.Machine) (states, inputs int) {
	switch m := m.(type) {
	case *domain.Mealy:
		return len(m.States), m.Inputs
	case *domain.Moore:
		return len(m.States), m.Inputs
	}
	return 0, 0
}

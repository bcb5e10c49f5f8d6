package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/fsmconv/internal/presentation/graph"
	"github.com/aretw0/fsmconv/internal/presentation/table"
	"github.com/aretw0/fsmconv/internal/presentation/tui"
	"github.com/aretw0/fsmconv/pkg/convert"
	"github.com/aretw0/fsmconv/pkg/domain"
)

func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [file|-]",
		Short: "Convert a machine to the other model",
		Long: `Reads a Mealy or Moore machine from a file (or stdin) and prints the original
and the converted machine as tables, JSON, or a Mermaid diagram of the result.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirFlag, _ := cmd.Flags().GetString("direction")
			dir, err := domain.ParseDirection(dirFlag)
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetString("naming"); v != "" {
				if _, err := convert.ParseNaming(v); err != nil {
					return err
				}
				a.cfg.Naming = v
			}

			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			res, err := a.engine(domain.LifecycleHooks{}).Convert(cmd.Context(), dir, text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case "mermaid":
				fmt.Fprint(out, graph.GenerateMermaid(res.Target, nil))
				return nil
			case "table":
				var sb strings.Builder
				fmt.Fprintf(&sb, "## %s\n\n%s\n", title(res.Source), table.Markdown(res.Source))
				fmt.Fprintf(&sb, "## %s\n\n%s", title(res.Target), table.Markdown(res.Target))
				rendered, err := tui.RendererFor(out)(sb.String())
				if err != nil {
					return err
				}
				fmt.Fprint(out, rendered)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want table, json or mermaid)", format)
			}
		},
	}

	cmd.Flags().StringP("direction", "d", string(domain.MealyToMoore), "Conversion: mealy-to-moore or moore-to-mealy")
	cmd.Flags().StringP("format", "f", "table", "Output format: table, json or mermaid")
	cmd.Flags().String("naming", "", "Moore state naming: sequential or composite")
	return cmd
}

func title(m domain.Machine) string {
	if m.Kind() == domain.MachineMoore {
		return "Moore"
	}
	return "Mealy"
}

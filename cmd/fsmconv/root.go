package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/fsmconv"
	"github.com/aretw0/fsmconv/internal/config"
	"github.com/aretw0/fsmconv/internal/logging"
	"github.com/aretw0/fsmconv/pkg/convert"
	"github.com/aretw0/fsmconv/pkg/domain"
)

// app carries the loaded configuration into subcommands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "fsmconv",
		Short: "fsmconv converts between Mealy and Moore machines",
		Long: `fsmconv parses Mealy and Moore machines from a compact text format and converts
them into output-equivalent machines of the other model. It runs as a CLI,
an HTTP API or an MCP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("config", "", "Path to a YAML or JSON config file")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "Log format: text or json")

	root.AddCommand(
		newServeCmd(a),
		newConvertCmd(a),
		newValidateCmd(a),
		newSimulateCmd(a),
		newGraphCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	format, _ := logging.ParseFormat(cfg.Log.Format)
	a.cfg = cfg
	a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), level, format)
	return nil
}

// engine builds a conversion engine from the loaded configuration.
func (a *app) engine(hooks domain.LifecycleHooks) *fsmconv.Engine {
	naming, _ := convert.ParseNaming(a.cfg.Naming)
	return fsmconv.New(
		fsmconv.WithLogger(a.logger),
		fsmconv.WithLimits(a.cfg.Limits),
		fsmconv.WithNaming(naming),
		fsmconv.WithSelfCheck(a.cfg.SelfCheck),
		fsmconv.WithLifecycleHooks(hooks),
	)
}

// Command pplctl inspects, converts and serves PPL simulation output files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/signalsfoundry/ppl-reader/core"
	"github.com/signalsfoundry/ppl-reader/internal/config"
	"github.com/signalsfoundry/ppl-reader/internal/logging"
	"github.com/signalsfoundry/ppl-reader/model"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	cfg        config.Config
	log        logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pplctl",
		Short: "Read PPL profile-plot output files",
		Long: `pplctl parses PPL simulation output (branch geometry, signal catalog and
the interleaved time series) into a validated model.

Settings come from the built-in defaults, then --config (YAML or TOML),
then PPL_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML or TOML config file")

	root.AddCommand(
		newInspectCmd(a),
		newConvertCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Logging.Output == nil {
		cfg.Logging.Output = cmd.ErrOrStderr()
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Logging)
	return nil
}

func (a *app) parser(opts ...core.Option) *core.Parser {
	opts = append([]core.Option{core.WithLogger(a.log)}, opts...)
	if a.cfg.Parser.SequentialDecode {
		opts = append(opts, core.WithSequentialDecode())
	}
	return core.NewParser(opts...)
}

func (a *app) parseFile(ctx context.Context, path string, opts ...core.Option) (*model.PPL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	p, err := a.parser(opts...).Parse(ctx, string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

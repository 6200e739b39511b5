package main

import (
	"fmt"

	"github.com/signalsfoundry/ppl-reader/internal/export"
	"github.com/signalsfoundry/ppl-reader/internal/export/sqlite"
	"github.com/spf13/cobra"
)

func newConvertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <file.ppl> [out.db]",
		Short: "Parse a PPL file and write it to a SQLite database",
		Long: `convert parses a PPL file and stores its metadata attributes, branch
geometry, per-branch boundary and section tables, catalog and time steps in a
SQLite database. An existing export in the database is replaced.

The output path defaults to export.path from the configuration.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := a.cfg.Export.Path
			if len(args) == 2 {
				out = args[1]
			}

			p, err := a.parseFile(ctx, args[0])
			if err != nil {
				return err
			}

			sink, err := sqlite.Create(ctx, out)
			if err != nil {
				return fmt.Errorf("open %s: %w", out, err)
			}
			defer sink.Close()

			stats, err := export.Write(ctx, p, sink, export.WithLogger(a.log))
			if err != nil {
				return err
			}
			if err := sink.Commit(); err != nil {
				return fmt.Errorf("commit %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d tables (%d rows) to %s\n", stats.Tables, stats.Rows, out)
			return nil
		},
	}
}

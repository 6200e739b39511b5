package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/signalsfoundry/ppl-reader/model"
	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	var showGeometry bool
	cmd := &cobra.Command{
		Use:   "inspect <file.ppl>",
		Short: "Print the metadata, branches and catalog of a PPL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.parseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeInspection(cmd.OutOrStdout(), p, showGeometry)
		},
	}
	cmd.Flags().BoolVar(&showGeometry, "geometry", false, "also print every branch profile")
	return cmd
}

func writeInspection(out io.Writer, p *model.PPL, showGeometry bool) error {
	meta := p.Metadata()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "METADATA")
	for _, kv := range [][2]string{
		{"version", meta.Version},
		{"input file", meta.InputFile},
		{"pvt file", meta.PVTFile},
		{"restart file", meta.RestartFile},
		{"date", formatDate(meta)},
		{"project", meta.Project},
		{"title", meta.Title},
		{"author", meta.Author},
		{"network", fmt.Sprint(meta.Network)},
	} {
		if kv[1] == "" {
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\n", kv[0], kv[1])
	}

	steps := p.TimeSteps()
	fmt.Fprintf(tw, "\nBRANCHES (%d)\n", len(p.BranchNames()))
	for _, b := range p.Branches() {
		lengths := b.Lengths()
		fmt.Fprintf(tw, "  %s\t%d nodes\t%g-%g %s\n", b.Name, b.Nodes(), lengths[0], lengths[len(lengths)-1], meta.LengthUnit)
		if showGeometry {
			for i, g := range b.Geometry {
				fmt.Fprintf(tw, "    %d\t%g\t%g\n", i, g.Length, g.Elevation)
			}
		}
	}

	fmt.Fprintf(tw, "\nCATALOG (%d)\n", len(p.Catalog()))
	for _, e := range p.Catalog() {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t(%s)\t%s\n", e.Symbol, e.Kind, e.BranchName, e.Units, e.Description)
	}

	fmt.Fprintf(tw, "\nTIME SERIES\n  %d steps", len(steps))
	if len(steps) > 0 {
		fmt.Fprintf(tw, "\t%g-%g %s", steps[0], steps[len(steps)-1], strings.TrimSpace(meta.TimeUnit))
	}
	fmt.Fprintln(tw)
	return tw.Flush()
}

func formatDate(meta model.Metadata) string {
	if meta.Date.IsZero() {
		return ""
	}
	return meta.Date.Format("2006-01-02 15:04:05")
}

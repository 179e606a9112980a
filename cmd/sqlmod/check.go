package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/electwix/sqlmod/internal/cli"
	"github.com/electwix/sqlmod/internal/diagnostics"
)

var checkFormats = []string{"text", "json"}

func (a *app) checkCmd() *cobra.Command {
	var out cli.Options
	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Parse and analyze query files",
		Long: `Parse and analyze query files, reporting every diagnostic.

Positional arguments are added to the query patterns. With --format json the
diagnostics are written to stdout as a JSON array.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.ValidateFormat(checkFormats...); err != nil {
				return err
			}
			summary, err := a.runPipeline(cmd, args)

			if out.Format == "json" {
				report, ferr := diagnostics.JSONFormatter{Indent: true}.FormatCollection(diagnostics.NewCollection(summary.Diagnostics...))
				if ferr != nil {
					return ferr
				}
				if _, werr := fmt.Fprintln(a.stdout, report); werr != nil {
					return werr
				}
				return err
			}

			a.report(summary.Diagnostics)
			if err != nil {
				return err
			}
			queries := 0
			for _, r := range summary.Results {
				queries += len(r.Queries)
			}
			_, err = fmt.Fprintf(a.stdout, "ok: %d files, %d queries\n", len(summary.Files), queries)
			return err
		},
	}
	out.RegisterFormat(cmd.Flags(), checkFormats...)
	return cmd
}

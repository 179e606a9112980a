package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/electwix/sqlmod/internal/cli"
	"github.com/electwix/sqlmod/internal/pipeline"
	"github.com/electwix/sqlmod/internal/query/analyzer"
)

var inspectFormats = []string{"yaml", "json"}

// catalogue is the document written by inspect.
type catalogue struct {
	Files []analyzer.Result `yaml:"files" json:"files"`
}

func (a *app) inspectCmd() *cobra.Command {
	var (
		out     cli.Options
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "inspect [files...]",
		Short: "Print the resolved types and queries",
		Long: `Print every declared type and every query with its rewritten SQL, bind
parameters and resolved param and row structs.

Nothing is printed when a file has errors. With --out the document is written
to a file, which is left untouched when its content would not change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.ValidateFormat(inspectFormats...); err != nil {
				return err
			}
			summary, err := a.runPipeline(cmd, args)
			a.report(summary.Diagnostics)
			if err != nil {
				return err
			}

			data, err := encodeCatalogue(catalogue{Files: summary.Results}, out.Format)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = a.stdout.Write(data)
				return err
			}

			wrote, err := pipeline.WriteIfChanged(a.writer, outPath, data)
			if err != nil {
				return err
			}
			if wrote {
				_, err = fmt.Fprintf(a.stdout, "wrote %s\n", outPath)
			} else {
				_, err = fmt.Fprintf(a.stdout, "%s is up to date\n", outPath)
			}
			return err
		},
	}
	out.RegisterFormat(cmd.Flags(), inspectFormats...)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the document to this file instead of stdout")
	return cmd
}

func encodeCatalogue(c catalogue, format string) ([]byte, error) {
	if c.Files == nil {
		c.Files = []analyzer.Result{}
	}
	switch format {
	case "json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	default:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
}

// Package main implements the sqlmod CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/electwix/sqlmod/internal/cli"
	"github.com/electwix/sqlmod/internal/diagnostics"
	"github.com/electwix/sqlmod/internal/logging"
	"github.com/electwix/sqlmod/internal/pipeline"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitWrite   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	// Diagnostics have already been reported.
	var diagErr *pipeline.DiagnosticsError
	if errors.As(err, &diagErr) {
		return exitFailure
	}
	_, _ = fmt.Fprintln(stderr, "error:", err)
	var writeErr *pipeline.WriteError
	if errors.As(err, &writeErr) {
		return exitWrite
	}
	return exitFailure
}

// app holds state shared by the subcommands of one invocation.
type app struct {
	opts   cli.Options
	stdout io.Writer
	stderr io.Writer
	writer pipeline.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		opts:   cli.Defaults(),
		stdout: stdout,
		stderr: stderr,
		writer: pipeline.NewOSWriter(),
	}

	root := &cobra.Command{
		Use:   "sqlmod",
		Short: "Check and inspect annotated SQL query files",
		Long: `sqlmod reads SQL files whose statements carry "--:" type and "--!" query
annotations, rewrites :name binds to positional $N placeholders and reports
every mistake it finds with its position.

Query files are taken from the queries list of sqlmod.toml, or from
--queries when given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cli.Usage(cmd.Flags()))
	})
	a.opts.Register(root.PersistentFlags())

	root.AddCommand(a.checkCmd(), a.inspectCmd(), versionCmd())
	return root
}

// runPipeline executes the pipeline with the shared flags and prints the
// diagnostics unless format asks for a machine-readable report.
func (a *app) runPipeline(cmd *cobra.Command, args []string) (pipeline.Summary, error) {
	logger := logging.NewSlogAdapter(logging.New(logging.Options{
		Verbose: a.opts.Verbose,
		JSON:    a.opts.LogJSON,
		Writer:  a.stderr,
	}))

	hooks := pipeline.NoHooks()
	if a.opts.Verbose {
		hooks = hooks.Chain(pipeline.LoggingHooks(logger))
	}

	queries := a.opts.Queries
	if len(args) > 0 {
		queries = append(append([]string(nil), queries...), args...)
	}

	p := pipeline.Pipeline{Env: pipeline.Environment{
		Logger: logger,
		Hooks:  hooks,
	}}
	return p.Run(cmd.Context(), pipeline.RunOptions{
		ConfigPath:   a.opts.ConfigPath,
		Queries:      queries,
		Strict:       a.opts.Strict,
		StrictConfig: a.opts.StrictConfig,
	})
}

// report prints diagnostics as text on stderr.
func (a *app) report(diags []diagnostics.Diagnostic) {
	c := diagnostics.NewCollection(diags...)
	if c.Len() == 0 {
		return
	}
	colorize := a.colorize()
	_ = diagnostics.PrintToWriter(a.stderr, c, a.opts.Verbose, colorize)

	f := diagnostics.NewFormatter()
	f.Colorize = colorize
	f.PrintSummary(a.stderr, c)
}

func (a *app) colorize() bool {
	if a.opts.NoColor || color.NoColor {
		return false
	}
	f, ok := a.stderr.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

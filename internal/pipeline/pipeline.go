// Package pipeline loads the configuration, parses query files in parallel
// and analyzes the resulting modules.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/electwix/sqlmod/internal/cache"
	"github.com/electwix/sqlmod/internal/config"
	"github.com/electwix/sqlmod/internal/diagnostics"
	"github.com/electwix/sqlmod/internal/fileset"
	"github.com/electwix/sqlmod/internal/logging"
	"github.com/electwix/sqlmod/internal/query/analyzer"
	"github.com/electwix/sqlmod/internal/query/parser"
)

// Environment captures external dependencies used by the pipeline.
type Environment struct {
	Logger logging.Logger
	// Source resolves and reads query files. When nil, an OS resolver is
	// rooted at the config directory, or at the working directory for
	// patterns given in RunOptions.
	Source fileset.Source
	// Cache memoizes parse results by path and content. Only an Environment
	// reused across runs benefits from it.
	Cache cache.Cache[ParsedFile]
	Hooks Hooks
	// Concurrency bounds parallel parsing; GOMAXPROCS when zero.
	Concurrency int
}

// Pipeline orchestrates configuration loading, parsing and analysis.
type Pipeline struct {
	Env Environment

	mu sync.Mutex
	// cached maps a path to the cache key of its last parse.
	cached map[string]string
}

// RunOptions configures a pipeline execution.
type RunOptions struct {
	ConfigPath string
	// Queries replaces the configured patterns when non-empty. A missing
	// configuration file is then not an error.
	Queries []string
	// Strict forces strict_references on.
	Strict       bool
	StrictConfig bool
	// LookupEnv is forwarded to config.Load.
	LookupEnv func(string) (string, bool)
}

// ParsedFile is the outcome of reading and parsing one query file.
type ParsedFile struct {
	Path   string
	Text   string
	Module parser.ParsedModule
	// Err is a read error or a *parser.Error.
	Err error
}

// Summary captures the results and diagnostics collected during a run.
type Summary struct {
	// RunID tags every log record of the run.
	RunID   string
	Plan    config.Plan
	Files   []string
	Results []analyzer.Result
	// Diagnostics are ordered by path, line and column.
	Diagnostics []diagnostics.Diagnostic
}

// HasErrors reports whether any diagnostic is an error.
func (s Summary) HasErrors() bool {
	return diagnostics.NewCollection(s.Diagnostics...).HasErrors()
}

// DiagnosticsError indicates that errors were reported via diagnostics.
type DiagnosticsError struct {
	Diagnostic diagnostics.Diagnostic
	// Errors is the total number of error diagnostics.
	Errors int
	Cause  error
}

func (e *DiagnosticsError) Error() string {
	if e.Errors > 1 {
		return fmt.Sprintf("%s (and %d more errors)", e.Diagnostic.Error(), e.Errors-1)
	}
	return e.Diagnostic.Error()
}

func (e *DiagnosticsError) Unwrap() error {
	return e.Cause
}

// Run executes the pipeline according to the provided options.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (summary Summary, err error) {
	logger := p.Env.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	summary.RunID = uuid.NewString()
	logger = logger.With("run", summary.RunID)
	hooks := p.Env.Hooks
	diags := diagnostics.NewCollection()

	defer func() {
		summary.Diagnostics = diags.All()
		if hooks.AfterRun != nil {
			if hookErr := hooks.AfterRun(ctx, summary); hookErr != nil && err == nil {
				err = fmt.Errorf("after run hook: %w", hookErr)
			}
		}
	}()

	fail := func(d diagnostics.Diagnostic, cause error) error {
		diags.Add(d)
		return newDiagnosticsError(diags, cause)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = "sqlmod.toml"
	}
	loaded, err := config.Load(configPath, config.LoadOptions{
		Strict:       opts.StrictConfig,
		AllowMissing: len(opts.Queries) > 0,
		LookupEnv:    opts.LookupEnv,
	})
	if err != nil {
		return summary, fail(configDiagnostic(configPath, err), err)
	}
	for _, warning := range loaded.Warnings {
		diags.Add(diagnostics.CreateConfigWarning(configPath, warning))
	}

	plan := loaded.Plan
	base := plan.BaseDir
	if len(opts.Queries) > 0 {
		plan.Queries = opts.Queries
		base = "."
	}
	if opts.Strict {
		plan.StrictReferences = true
	}
	summary.Plan = plan

	src := p.Env.Source
	if src == nil {
		resolver, rerr := fileset.NewOSResolver(base)
		if rerr != nil {
			return summary, fail(filesDiagnostic(configPath, rerr), rerr)
		}
		src = resolver
	}

	paths, err := config.ResolveQueries(src, plan.Queries)
	if err != nil {
		return summary, fail(filesDiagnostic(configPath, err), err)
	}
	summary.Files = paths

	if hooks.BeforeParse != nil {
		if err := hooks.BeforeParse(ctx, paths); err != nil {
			return summary, fmt.Errorf("before parse hook: %w", err)
		}
	}

	files, err := p.parseAll(ctx, logger, src, paths)
	if err != nil {
		return summary, err
	}

	if hooks.AfterParse != nil {
		if err := hooks.AfterParse(ctx, files); err != nil {
			return summary, fmt.Errorf("after parse hook: %w", err)
		}
	}

	a := analyzer.New(plan.AnalyzerOptions())
	results := make([]analyzer.Result, 0, len(files))
	for _, f := range files {
		// A file that could not be read has no text to point into.
		var source *diagnostics.Source
		if f.Err == nil || f.Text != "" {
			source = diagnostics.NewSource(f.Path, f.Text)
		}
		if f.Err != nil {
			diags.Add(diagnostics.FromError(source, f.Path, f.Err)...)
			continue
		}
		res := a.Analyze(f.Path, f.Module)
		diags.Add(diagnostics.FromAnalyzerResult(source, res)...)
		results = append(results, res)
	}
	summary.Results = results

	if hooks.AfterAnalyze != nil {
		if err := hooks.AfterAnalyze(ctx, results); err != nil {
			return summary, fmt.Errorf("after analyze hook: %w", err)
		}
	}

	diags.SortByLocation()
	counts := diags.Summary()
	attrs := []any{
		"files", len(files),
		"errors", counts.Errors,
		"warnings", counts.Warnings,
	}
	if st, ok := p.Env.Cache.(interface{ Stats() (int64, int64) }); ok {
		hits, misses := st.Stats()
		attrs = append(attrs, "cache_hits", hits, "cache_misses", misses)
	}
	logger.Debug("checked query files", attrs...)

	if diags.HasErrors() {
		return summary, newDiagnosticsError(diags, nil)
	}
	return summary, nil
}

// parseAll reads and parses paths concurrently. The result keeps the order
// of paths. Only cancellation is returned as an error; per-file failures
// are recorded in ParsedFile.Err.
func (p *Pipeline) parseAll(ctx context.Context, logger logging.Logger, src fileset.Source, paths []string) ([]ParsedFile, error) {
	limit := p.Env.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	files := make([]ParsedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			files[i] = p.parseFile(gctx, logger, src, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (p *Pipeline) parseFile(ctx context.Context, logger logging.Logger, src fileset.Source, path string) ParsedFile {
	data, err := src.ReadFile(path)
	if err != nil {
		logger.Warn("read query file", "path", path, "error", err)
		return ParsedFile{Path: path, Err: fmt.Errorf("read queries: %w", err)}
	}

	key := cache.ComputeKeyWithPrefix(path, data)
	if p.Env.Cache != nil {
		if cached, ok := p.Env.Cache.Get(ctx, key); ok {
			logger.Debug("query file unchanged", "path", path)
			return cached
		}
	}

	start := time.Now()
	text := string(data)
	mod, err := parser.ParseModule(path, text)
	file := ParsedFile{Path: path, Text: text, Module: mod, Err: err}
	logger.Debug("parsed query file",
		"path", path,
		"types", len(mod.Types),
		"queries", len(mod.Queries),
		"failed", err != nil,
		"duration", time.Since(start),
	)

	if p.Env.Cache != nil {
		p.Env.Cache.Set(ctx, key, file, cache.NoExpiration)
		p.evictStale(ctx, path, key)
	}
	return file
}

// evictStale deletes the entry of an earlier version of path.
func (p *Pipeline) evictStale(ctx context.Context, path, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil {
		p.cached = make(map[string]string)
	}
	if old, ok := p.cached[path]; ok && old != key {
		p.Env.Cache.Delete(ctx, old)
	}
	p.cached[path] = key
}

func newDiagnosticsError(diags *diagnostics.Collection, cause error) *DiagnosticsError {
	errs := diags.Errors()
	if len(errs) == 0 {
		return &DiagnosticsError{Cause: cause}
	}
	return &DiagnosticsError{Diagnostic: errs[0], Errors: len(errs), Cause: cause}
}

func configDiagnostic(path string, err error) diagnostics.Diagnostic {
	var (
		unknown *config.UnknownKeysError
		cerr    *config.Error
	)
	switch {
	case errors.As(err, &unknown):
		return diagnostics.Error(err.Error()).
			WithCode(diagnostics.ErrConfigUnknownKey).
			AtLocation(diagnostics.Location{Path: path}).
			WithSource(diagnostics.SourceConfigLoader).
			WithNote("Known keys are queries, strict_references, param_suffix and row_suffix").
			WithSuggestion("Remove the key, or drop --strict-config to report it as a warning", "").
			Build()
	case errors.As(err, &cerr):
		return diagnostics.CreateConfigError(cerr.Path, cerr.Line, cerr.Column, cerr.Err.Error())
	default:
		return diagnostics.CreateConfigError(path, 0, 0, err.Error())
	}
}

func filesDiagnostic(path string, err error) diagnostics.Diagnostic {
	return diagnostics.Error(err.Error()).
		WithCode(diagnostics.ErrConfigInvalid).
		AtLocation(diagnostics.Location{Path: path}).
		WithSource(diagnostics.SourceQueryFiles).
		Build()
}

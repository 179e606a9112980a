package pipeline

import (
	"context"
	"time"

	"github.com/electwix/sqlmod/internal/logging"
	"github.com/electwix/sqlmod/internal/query/analyzer"
)

// Hooks provides extension points in the pipeline execution.
// Each hook is called at a specific stage and can modify behavior or perform side effects.
type Hooks struct {
	// BeforeParse is called with the resolved query files before any is read.
	// Return an error to abort the pipeline.
	BeforeParse func(ctx context.Context, paths []string) error

	// AfterParse is called once every file has been read and parsed,
	// including files that failed.
	// Return an error to abort the pipeline.
	AfterParse func(ctx context.Context, files []ParsedFile) error

	// AfterAnalyze is called with the analysis of every file that parsed.
	// Return an error to abort the pipeline.
	AfterAnalyze func(ctx context.Context, results []analyzer.Result) error

	// AfterRun is the final hook, called even if earlier stages failed.
	AfterRun func(ctx context.Context, summary Summary) error
}

// Chain combines two Hooks, calling h's hooks first, then other's hooks.
// If a hook in h returns an error, other's hook is not called.
func (h Hooks) Chain(other Hooks) Hooks {
	return Hooks{
		BeforeParse:  chainHook(h.BeforeParse, other.BeforeParse),
		AfterParse:   chainHook(h.AfterParse, other.AfterParse),
		AfterAnalyze: chainHook(h.AfterAnalyze, other.AfterAnalyze),
		AfterRun:     chainHook(h.AfterRun, other.AfterRun),
	}
}

// chainHook chains two hooks of the same type.
func chainHook[T any](first, second func(context.Context, T) error) func(context.Context, T) error {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(ctx context.Context, arg T) error {
		if err := first(ctx, arg); err != nil {
			return err
		}
		return second(ctx, arg)
	}
}

// NoHooks returns a Hooks with all nil functions (no-op).
func NoHooks() Hooks {
	return Hooks{}
}

// LoggingHooks logs each stage at debug level, with the time spent since
// the previous stage.
func LoggingHooks(logger logging.Logger) Hooks {
	var last time.Time
	elapsed := func() time.Duration {
		now := time.Now()
		d := now.Sub(last)
		if last.IsZero() {
			d = 0
		}
		last = now
		return d
	}
	return Hooks{
		BeforeParse: func(_ context.Context, paths []string) error {
			logger.Debug("resolved query files", "files", len(paths), "elapsed", elapsed())
			return nil
		},
		AfterParse: func(_ context.Context, files []ParsedFile) error {
			failed := 0
			for _, f := range files {
				if f.Err != nil {
					failed++
				}
			}
			logger.Debug("parsed query files", "files", len(files), "failed", failed, "elapsed", elapsed())
			return nil
		},
		AfterAnalyze: func(_ context.Context, results []analyzer.Result) error {
			queries := 0
			for _, r := range results {
				queries += len(r.Queries)
			}
			logger.Debug("analyzed query files", "files", len(results), "queries", queries, "elapsed", elapsed())
			return nil
		},
		AfterRun: func(_ context.Context, summary Summary) error {
			logger.Debug("run finished", "run", summary.RunID, "diagnostics", len(summary.Diagnostics), "elapsed", elapsed())
			return nil
		},
	}
}

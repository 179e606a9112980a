// Package config loads and validates the sqlmod configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/electwix/sqlmod/internal/fileset"
	"github.com/electwix/sqlmod/internal/query/analyzer"
)

// DefaultParamSuffix names implicit param structs when param_suffix is unset.
const DefaultParamSuffix = "Params"

// Environment variables read after the configuration file.
const (
	EnvQueries          = "SQLMOD_QUERIES"
	EnvStrictReferences = "SQLMOD_STRICT_REFERENCES"
	EnvParamSuffix      = "SQLMOD_PARAM_SUFFIX"
	EnvRowSuffix        = "SQLMOD_ROW_SUFFIX"
)

// Config mirrors the sqlmod TOML schema. Suffixes are pointers so an
// explicit empty string can be told apart from an absent key.
type Config struct {
	Queries          []string `toml:"queries"`
	StrictReferences bool     `toml:"strict_references"`
	ParamSuffix      *string  `toml:"param_suffix"`
	RowSuffix        *string  `toml:"row_suffix"`
}

// Plan is the fully-resolved configuration used by the pipeline.
type Plan struct {
	// Path is the loaded file, empty when defaults were used.
	Path string
	// BaseDir anchors relative query patterns.
	BaseDir          string
	Queries          []string
	StrictReferences bool
	ParamSuffix      string
	RowSuffix        string
}

// Default returns the plan used when no configuration file exists.
func Default(baseDir string) Plan {
	return Plan{BaseDir: baseDir, ParamSuffix: DefaultParamSuffix}
}

// AnalyzerOptions converts the plan into analyzer settings.
func (p Plan) AnalyzerOptions() analyzer.Options {
	return analyzer.Options{
		ParamSuffix:      p.ParamSuffix,
		RowSuffix:        p.RowSuffix,
		StrictReferences: p.StrictReferences,
	}
}

// LoadOptions tunes config loading behavior.
type LoadOptions struct {
	Strict bool
	// AllowMissing yields Default when the file does not exist.
	AllowMissing bool
	// LookupEnv defaults to os.LookupEnv. Values from a .env file next to
	// the configuration are used only when it reports a variable unset.
	LookupEnv func(key string) (string, bool)
}

// Result wraps a loaded plan alongside any non-fatal warnings.
type Result struct {
	Plan     Plan
	Warnings []string
}

// Error is a configuration problem, positioned when the TOML decoder knows
// where it happened.
type Error struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UnknownKeysError is returned in strict mode when the file has keys the
// schema does not define.
type UnknownKeysError struct {
	Path string
	Keys []string
}

func (e *UnknownKeysError) Error() string {
	return fmt.Sprintf("%s: unknown configuration keys: %s", e.Path, strings.Join(e.Keys, ", "))
}

// Load reads, validates, and resolves a sqlmod configuration file, then
// applies environment overrides.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	baseDir := filepath.Dir(path)
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		res, err = decode(path, data, opts.Strict)
		if err != nil {
			return res, err
		}
	case opts.AllowMissing && errors.Is(err, fs.ErrNotExist):
		res.Plan = Default(baseDir)
	default:
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	env, err := environment(baseDir, opts.LookupEnv)
	if err != nil {
		return res, &Error{Path: path, Err: err}
	}
	if err := applyEnv(&res.Plan, env); err != nil {
		return res, &Error{Path: path, Err: err}
	}
	if err := validate(res.Plan); err != nil {
		return res, &Error{Path: path, Err: err}
	}
	return res, nil
}

func decode(path string, data []byte, strict bool) (Result, error) {
	var (
		res Result
		cfg Config
	)

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(&cfg)

	var missing *toml.StrictMissingError
	if errors.As(err, &missing) {
		keys := make([]string, 0, len(missing.Errors))
		for _, e := range missing.Errors {
			keys = append(keys, strings.Join(e.Key(), "."))
		}
		slices.Sort(keys)
		keys = slices.Compact(keys)
		if strict {
			return res, &UnknownKeysError{Path: path, Keys: keys}
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: unknown configuration keys: %s", path, strings.Join(keys, ", ")))
	} else if err != nil {
		cerr := &Error{Path: path, Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			cerr.Line, cerr.Column = derr.Position()
		}
		return res, cerr
	}

	plan := Default(filepath.Dir(path))
	plan.Path = path
	plan.Queries = cfg.Queries
	plan.StrictReferences = cfg.StrictReferences
	if cfg.ParamSuffix != nil {
		plan.ParamSuffix = *cfg.ParamSuffix
	}
	if cfg.RowSuffix != nil {
		plan.RowSuffix = *cfg.RowSuffix
	}
	res.Plan = plan
	return res, nil
}

func environment(baseDir string, lookup func(string) (string, bool)) (func(string) (string, bool), error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	dotenv, err := godotenv.Read(filepath.Join(baseDir, ".env"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
		dotenv = nil
	}
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

func applyEnv(plan *Plan, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvQueries); ok {
		plan.Queries = SplitList(v)
	}
	if v, ok := lookup(EnvStrictReferences); ok {
		strict, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", EnvStrictReferences, v)
		}
		plan.StrictReferences = strict
	}
	if v, ok := lookup(EnvParamSuffix); ok {
		plan.ParamSuffix = v
	}
	if v, ok := lookup(EnvRowSuffix); ok {
		plan.RowSuffix = v
	}
	return nil
}

// SplitList splits a comma-separated list, dropping empty entries.
func SplitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validate(plan Plan) error {
	if err := validateSuffix("param_suffix", plan.ParamSuffix); err != nil {
		return err
	}
	if err := validateSuffix("row_suffix", plan.RowSuffix); err != nil {
		return err
	}
	for _, pattern := range plan.Queries {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("queries: invalid glob pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateSuffix(field, suffix string) error {
	// The suffix is appended to an UpperCamel name, which always starts
	// with a letter.
	if !token.IsIdentifier("X" + suffix) {
		return fmt.Errorf("%s %q must contain only letters, digits and underscores", field, suffix)
	}
	return nil
}

// ResolveQueries expands patterns through src, translating file-set errors
// into configuration messages.
func ResolveQueries(src fileset.Source, patterns []string) ([]string, error) {
	paths, err := src.Resolve(patterns)
	if err != nil {
		switch {
		case errors.Is(err, fileset.ErrNoPatterns):
			return nil, errors.New("queries must include at least one pattern")
		default:
			var noMatchErr fileset.NoMatchError
			if errors.As(err, &noMatchErr) {
				return nil, fmt.Errorf("queries patterns matched no files: %s", strings.Join(noMatchErr.Patterns, ", "))
			}

			var patternErr fileset.PatternError
			if errors.As(err, &patternErr) {
				return nil, fmt.Errorf("queries: invalid glob pattern %q: %w", patternErr.Pattern, patternErr.Err)
			}

			return nil, fmt.Errorf("queries: %w", err)
		}
	}

	return paths, nil
}

package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "sqlmod.toml"

type Options struct {
	ConfigPath   string
	Queries      []string
	Strict       bool
	StrictConfig bool
	NoColor      bool
	Verbose      bool
	LogJSON      bool
	Format       string
}

// Defaults returns the options used when no flags are set.
func Defaults() Options {
	return Options{ConfigPath: DefaultConfigPath}
}

// Register binds the shared flags to fs.
func (o *Options) Register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigPath, "config", "c", o.ConfigPath, "Path to configuration file")
	fs.StringSliceVarP(&o.Queries, "queries", "q", o.Queries, "Query file globs; overrides the configured list")
	fs.BoolVar(&o.Strict, "strict", o.Strict, "Report unresolved struct references as errors")
	fs.BoolVar(&o.StrictConfig, "strict-config", o.StrictConfig, "Treat configuration warnings as errors")
	fs.BoolVar(&o.NoColor, "no-color", o.NoColor, "Disable coloured diagnostics")
	fs.BoolVarP(&o.Verbose, "verbose", "v", o.Verbose, "Enable verbose logging")
	fs.BoolVar(&o.LogJSON, "log-json", o.LogJSON, "Emit logs as JSON records")
}

// RegisterFormat binds --format with the allowed values; the first is the default.
func (o *Options) RegisterFormat(fs *pflag.FlagSet, formats ...string) {
	def := ""
	if len(formats) > 0 {
		def = formats[0]
	}
	fs.StringVarP(&o.Format, "format", "f", def, "Output format: "+strings.Join(formats, ", "))
}

// ValidateFormat reports an error when Format is not one of formats.
func (o Options) ValidateFormat(formats ...string) error {
	if slices.Contains(formats, o.Format) {
		return nil
	}
	return fmt.Errorf("unsupported format %q (want %s)", o.Format, strings.Join(formats, " or "))
}

func Usage(fs *pflag.FlagSet) string {
	if fs == nil {
		return ""
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "Usage of %s:\n", fs.Name())
	buf.WriteString(fs.FlagUsages())
	return buf.String()
}

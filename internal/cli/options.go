// Package cli parses command line options for the mcp-docsrs binary.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Options holds the parsed command line. Numeric fields use -1 and
// string fields "" to mean "not set"; the caller merges them over the
// loaded configuration.
type Options struct {
	ConfigPath       string
	DBPath           string
	CacheTTLMs       int64
	MaxCacheSize     int
	RequestTimeoutMs int64
	Verbose          bool
	Version          bool
	Args             []string

	// ConfigPathSet distinguishes an explicit -config flag from the
	// default lookup, where a missing file is tolerated.
	ConfigPathSet bool
}

// Parse reads args into Options.
func Parse(args []string) (Options, error) {
	opts := Options{
		CacheTTLMs:       -1,
		MaxCacheSize:     -1,
		RequestTimeoutMs: -1,
	}

	fs := flag.NewFlagSet("mcp-docsrs", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml or .yml)")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (.toml, .yaml or .yml)")
	fs.StringVar(&opts.DBPath, "db", "", "SQLite cache location; \":memory:\" keeps the cache volatile")
	fs.Int64Var(&opts.CacheTTLMs, "ttl", -1, "Cache entry lifetime in milliseconds")
	fs.IntVar(&opts.MaxCacheSize, "max-cache-size", -1, "Maximum number of cached payloads")
	fs.Int64Var(&opts.RequestTimeoutMs, "timeout", -1, "docs.rs request timeout in milliseconds")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.Verbose, "v", false, "Enable verbose logging")
	fs.BoolVar(&opts.Version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		usage := Usage(fs)
		if errors.Is(err, flag.ErrHelp) {
			return Options{}, fmt.Errorf("%w\n\n%s", err, usage)
		}
		return Options{}, fmt.Errorf("%w\n\n%s", err, usage)
	}

	opts.ConfigPathSet = opts.ConfigPath != ""
	opts.Args = fs.Args()
	return opts, nil
}

// Usage renders the flag set's defaults as a string.
func Usage(fs *flag.FlagSet) string {
	if fs == nil {
		return ""
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "Usage of %s:\n", fs.Name())
	out := fs.Output()
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(out)
	return buf.String()
}

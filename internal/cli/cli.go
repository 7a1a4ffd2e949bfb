// Package cli defines the domtools commands. Each command is a kong command
// struct whose Run method receives the shared Runtime.
package cli

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/mcncl/domtools/internal/config"
	"github.com/mcncl/domtools/internal/encoder"
	"github.com/mcncl/domtools/internal/fileio"
	"github.com/mcncl/domtools/internal/formatter"
	"github.com/mcncl/domtools/internal/models"
	"github.com/mcncl/domtools/internal/parser"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config   string           `help:"Configuration file. Defaults to the nearest .domtools.yml." type:"path" placeholder:"FILE"`
	LogLevel string           `help:"Log level: debug, info, warn or error." placeholder:"LEVEL"`
	LogFile  string           `help:"Write logs to a size-rotated file instead of stderr." type:"path" placeholder:"FILE"`
	Version  kong.VersionFlag `help:"Show version information." short:"v"`
}

// CLI is the root of the command line grammar.
type CLI struct {
	Globals

	Filter     FilterCmd     `cmd:"" help:"Keep only the members with the given keys and the containers leading to them."`
	Find       FindCmd       `cmd:"" help:"Report every occurrence of the given object keys, grouped by value."`
	Prune      PruneCmd      `cmd:"" help:"Remove framework internals, styling and binary noise from a DOM capture."`
	Analyze    AnalyzeCmd    `cmd:"" help:"Summarize the leaf values of a document."`
	Keys       KeysCmd       `cmd:"" help:"Count object keys with sample values and DOM node types."`
	Split      SplitCmd      `cmd:"" help:"Split a document into size-bounded chunk files."`
	Join       JoinCmd       `cmd:"" help:"Join chunk files back into one document."`
	Compress   CompressCmd   `cmd:"" help:"Write a document without insignificant whitespace."`
	Decompress DecompressCmd `cmd:"" help:"Write a document indented by two spaces."`
	Capture    CaptureCmd    `cmd:"" help:"Convert static HTML into a DOM capture document."`
}

// Overrides returns the configuration values set by global flags.
func (g *Globals) Overrides() *config.Config {
	cfg := &config.Config{}
	cfg.Logging.Level = g.LogLevel
	cfg.Logging.FilePath = g.LogFile
	return cfg
}

// Runtime carries the resolved configuration and the process streams.
type Runtime struct {
	Config    *config.Config
	Logger    *slog.Logger
	Formatter *formatter.Formatter
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
}

// NewRuntime creates a runtime for cfg.
func NewRuntime(cfg *config.Config, logger *slog.Logger, stdin io.Reader, stdout, stderr io.Writer) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Formatter: formatter.NewFormatter(),
		Stdin:     stdin,
		Stdout:    stdout,
		Stderr:    stderr,
	}
}

// withOverrides returns a copy of the runtime using cfg merged over its configuration.
func (rt *Runtime) withOverrides(override *config.Config) (*Runtime, error) {
	merged := config.MergeConfigs(rt.Config, override)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	next := *rt
	next.Config = merged
	return &next, nil
}

func (rt *Runtime) parse(path string) (models.Document, error) {
	return parser.New(rt.Config.Limits.MaxDepth).ParseInput(path, rt.Stdin)
}

// parseReport reads input for commands whose walk tolerates the depth limit,
// so nesting beyond Limits.MaxDepth reaches the walker and is reported as truncated.
func (rt *Runtime) parseReport(path string) (models.Document, error) {
	return parser.New(rt.Config.Limits.ParseDepth()).ParseInput(path, rt.Stdin)
}

// writeValue serializes v to path, or stdout for "-" and "".
func (rt *Runtime) writeValue(path string, v models.Value, opts encoder.Options) error {
	opts.MaxDepth = rt.Config.Limits.MaxDepth
	if fileio.IsStd(path) {
		opts.TrailingNewline = true
	}
	data, err := encoder.Marshal(v, opts)
	if err != nil {
		return err
	}
	return fileio.WriteFile(path, rt.Stdout, data)
}

// writeReport renders a report to path, or stdout for "-" and "".
func (rt *Runtime) writeReport(path string, render func(io.Writer) error) error {
	if fileio.IsStd(path) {
		return render(rt.Stdout)
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	return fileio.WriteFile(path, rt.Stdout, buf.Bytes())
}

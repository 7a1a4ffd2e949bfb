package cli

import (
	"log/slog"

	"github.com/mcncl/domtools/internal/config"
	"github.com/mcncl/domtools/internal/dom"
	"github.com/mcncl/domtools/internal/encoder"
	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/fileio"
	"github.com/mcncl/domtools/internal/filter"
	"github.com/mcncl/domtools/internal/formatter"
	"github.com/mcncl/domtools/internal/pruner"
)

// FilterCmd keeps the subtrees under the requested keys.
type FilterCmd struct {
	Input    string `arg:"" optional:"" help:"Input JSON file, - for stdin." default:"-"`
	Output   string `arg:"" optional:"" help:"Output file. Defaults to stdout."`
	Keys     string `help:"Comma separated keys to keep." placeholder:"K1,K2"`
	KeysFile string `help:"File with one key per line." type:"path" placeholder:"FILE"`
}

// Run executes the filter command.
func (c *FilterCmd) Run(rt *Runtime) error {
	keys := filter.ParseKeyList(c.Keys)
	if c.KeysFile != "" {
		lines, err := fileio.ReadLines(c.KeysFile)
		if err != nil {
			return err
		}
		keys = append(keys, lines...)
	}

	f, err := filter.New(keys, filter.Options{MaxDepth: rt.Config.Limits.MaxDepth, Logger: rt.Logger})
	if err != nil {
		return err
	}
	doc, err := rt.parse(c.Input)
	if err != nil {
		return err
	}
	res, err := f.Apply(doc.Root)
	if err != nil {
		return err
	}

	rt.Logger.Info("filtered document", slog.Int("matched", res.Matched), slog.Int("dropped", res.Dropped))
	return rt.writeValue(c.Output, res.Value, encoder.Pretty)
}

// PruneCmd removes noise from DOM captures.
type PruneCmd struct {
	Input         string   `arg:"" optional:"" help:"Input JSON file, - for stdin." default:"-"`
	Output        string   `arg:"" optional:"" help:"Output file. Defaults to stdout."`
	DenyKey       []string `help:"Additional member name to remove. Repeatable." placeholder:"KEY"`
	MaxBinaryKB   int      `name:"max-binary-kb" help:"Largest binary payload kept, in KiB." placeholder:"N"`
	FoldKeyStyles bool     `help:"Match deny keys regardless of camelCase, snake_case or kebab-case."`
	DropBooleans  bool     `help:"Remove every boolean value."`
	DropNumbers   bool     `help:"Remove every number value."`
	DropEmpty     bool     `help:"Remove null, empty strings and empty containers."`
	Stats         bool     `help:"Print removal counts per rule to stderr."`
	Format        string   `help:"Stats format: text or json." default:"text"`
}

// Run executes the prune command.
func (c *PruneCmd) Run(rt *Runtime) error {
	format, err := formatter.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	override := &config.Config{}
	override.Pruner.DenyKeys = c.DenyKey
	override.Pruner.MaxBinaryBytes = c.MaxBinaryKB * 1024
	override.Pruner.FoldKeyStyles = c.FoldKeyStyles
	override.Pruner.DropBooleans = c.DropBooleans
	override.Pruner.DropNumbers = c.DropNumbers
	override.Pruner.DropEmptyValues = c.DropEmpty
	rt, err = rt.withOverrides(override)
	if err != nil {
		return err
	}

	p, err := pruner.New(rt.Config.Pruner, pruner.Options{MaxDepth: rt.Config.Limits.MaxDepth, Logger: rt.Logger})
	if err != nil {
		return err
	}
	doc, err := rt.parse(c.Input)
	if err != nil {
		return err
	}
	res, err := p.Prune(doc.Root)
	if err != nil {
		return err
	}

	if err := rt.writeValue(c.Output, res.Value, encoder.Pretty); err != nil {
		return err
	}
	rt.Logger.Info("pruned document", slog.Int("removed", res.Stats.Total()))
	if c.Stats {
		return rt.Formatter.PruneStats(rt.Stderr, res.Stats, format)
	}
	return nil
}

// CompressCmd writes documents compactly.
type CompressCmd struct {
	Input  string `arg:"" optional:"" help:"Input JSON file, - for stdin." default:"-"`
	Output string `short:"o" help:"Output file. Defaults to stdout. A .zst, .s2 or .lz4 suffix compresses it." type:"path"`
}

// Run executes the compress command.
func (c *CompressCmd) Run(rt *Runtime) error {
	doc, err := rt.parse(c.Input)
	if err != nil {
		return err
	}
	return rt.writeValue(c.Output, doc.Root, encoder.Compact)
}

// DecompressCmd writes documents indented.
type DecompressCmd struct {
	Input    string `arg:"" optional:"" help:"Input JSON file, - for stdin." default:"-"`
	Output   string `short:"o" help:"Output file. Defaults to stdout." type:"path"`
	SortKeys bool   `help:"Sort object members by key."`
}

// Run executes the decompress command.
func (c *DecompressCmd) Run(rt *Runtime) error {
	doc, err := rt.parse(c.Input)
	if err != nil {
		return err
	}
	opts := encoder.Pretty
	opts.SortKeys = c.SortKeys
	return rt.writeValue(c.Output, doc.Root, opts)
}

// CaptureCmd converts static HTML into the capture format.
type CaptureCmd struct {
	Input          string `arg:"" optional:"" help:"Input HTML file, - for stdin." default:"-"`
	Output         string `arg:"" optional:"" help:"Output file. Defaults to stdout."`
	MaxDepth       int    `help:"Deepest DOM node depth captured." placeholder:"N"`
	KeepWhitespace bool   `help:"Keep whitespace-only text nodes."`
	Stats          bool   `help:"Print capture counters to stderr."`
}

// Run executes the capture command.
func (c *CaptureCmd) Run(rt *Runtime) error {
	override := &config.Config{}
	override.Capture.MaxDepth = c.MaxDepth
	override.Capture.KeepWhitespace = c.KeepWhitespace
	rt, err := rt.withOverrides(override)
	if err != nil {
		return err
	}

	r, err := fileio.Open(c.Input, rt.Stdin)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	root, stats, err := dom.Capture(r, dom.Options{
		MaxDepth:       rt.Config.Capture.MaxDepth,
		KeepWhitespace: rt.Config.Capture.KeepWhitespace,
		Logger:         rt.Logger,
	})
	if err != nil {
		return err
	}
	if stats.Errors > 0 {
		rt.Logger.Warn("some nodes could not be captured cleanly", slog.Int("errors", stats.Errors))
	}

	if err := rt.writeValue(c.Output, root, encoder.Pretty); err != nil {
		return err
	}
	if c.Stats {
		return rt.Formatter.CaptureStats(rt.Stderr, stats, formatter.Text)
	}
	return nil
}

// requireInput rejects an empty positional argument list.
func requireInput(paths []string, what string) error {
	if len(paths) == 0 {
		return errors.NewArgumentError("no "+what+" given", nil)
	}
	return nil
}

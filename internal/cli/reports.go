package cli

import (
	"io"

	"github.com/mcncl/domtools/internal/analyzer"
	"github.com/mcncl/domtools/internal/config"
	"github.com/mcncl/domtools/internal/filter"
	"github.com/mcncl/domtools/internal/finder"
	"github.com/mcncl/domtools/internal/formatter"
	"github.com/mcncl/domtools/internal/keystats"
	"github.com/mcncl/domtools/internal/query"
)

// FindCmd reports occurrences of object keys.
type FindCmd struct {
	Input   string `arg:"" optional:"" help:"Input JSON file, - for stdin." default:"-"`
	Objects string `required:"" help:"Comma separated object keys to search for." placeholder:"K1,K2"`
	Where   string `help:"jq expression a value must satisfy to be reported, e.g. '.id != null'." placeholder:"JQ"`
	Format  string `help:"Report format: text or json." default:"text"`
	Output  string `short:"o" help:"Report file. Defaults to stdout." type:"path"`
}

// Run executes the find command.
func (c *FindCmd) Run(rt *Runtime) error {
	format, err := formatter.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	opts := finder.Options{MaxDepth: rt.Config.Limits.MaxDepth, Logger: rt.Logger}
	if c.Where != "" {
		expr, err := query.Compile(c.Where)
		if err != nil {
			return err
		}
		opts.Where = expr
	}
	f, err := finder.New(filter.ParseKeyList(c.Objects), opts)
	if err != nil {
		return err
	}

	doc, err := rt.parseReport(c.Input)
	if err != nil {
		return err
	}
	res, err := f.Find(doc.Root)
	if err != nil {
		return err
	}
	return rt.writeReport(c.Output, func(w io.Writer) error {
		return rt.Formatter.Findings(w, res, format)
	})
}

// AnalyzeCmd summarizes leaf values.
type AnalyzeCmd struct {
	Input      string `arg:"" optional:"" help:"Input JSON file, - for stdin." default:"-"`
	LongString int    `help:"Strings longer than this are always reported as interesting." placeholder:"N"`
	Format     string `help:"Report format: text or json." default:"text"`
	Output     string `short:"o" help:"Report file. Defaults to stdout." type:"path"`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run(rt *Runtime) error {
	format, err := formatter.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	override := &config.Config{}
	override.Analyzer.LongStringThreshold = c.LongString
	rt, err = rt.withOverrides(override)
	if err != nil {
		return err
	}

	doc, err := rt.parseReport(c.Input)
	if err != nil {
		return err
	}
	a := analyzer.NewAnalyzer(analyzer.Options{
		MaxDepth:            rt.Config.Limits.MaxDepth,
		LongStringThreshold: rt.Config.Analyzer.LongStringThreshold,
		MaxDuplicates:       rt.Config.Analyzer.MaxDuplicates,
		Logger:              rt.Logger,
	})
	report, err := a.Analyze(doc.Root)
	if err != nil {
		return err
	}
	return rt.writeReport(c.Output, func(w io.Writer) error {
		return rt.Formatter.Analysis(w, report, format)
	})
}

// KeysCmd counts object keys.
type KeysCmd struct {
	Input   string `arg:"" optional:"" help:"Input JSON file, - for stdin." default:"-"`
	Samples int    `help:"Distinct sample values kept per key." placeholder:"N"`
	Format  string `help:"Report format: text or json." default:"text"`
	Output  string `short:"o" help:"Report file. Defaults to stdout." type:"path"`
}

// Run executes the keys command.
func (c *KeysCmd) Run(rt *Runtime) error {
	format, err := formatter.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	override := &config.Config{}
	override.Keys.Samples = c.Samples
	rt, err = rt.withOverrides(override)
	if err != nil {
		return err
	}

	doc, err := rt.parseReport(c.Input)
	if err != nil {
		return err
	}
	samples := rt.Config.Keys.Samples
	if samples == 0 {
		samples = -1
	}
	report, err := keystats.New(keystats.Options{MaxDepth: rt.Config.Limits.MaxDepth, Samples: samples, Logger: rt.Logger}).Collect(doc.Root)
	if err != nil {
		return err
	}
	return rt.writeReport(c.Output, func(w io.Writer) error {
		return rt.Formatter.KeyStats(w, report, format)
	})
}

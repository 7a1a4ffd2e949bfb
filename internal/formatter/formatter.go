// Package formatter renders the reports of the analysis commands as human
// readable text or as JSON.
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mcncl/domtools/internal/analyzer"
	"github.com/mcncl/domtools/internal/dom"
	"github.com/mcncl/domtools/internal/encoder"
	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/finder"
	"github.com/mcncl/domtools/internal/keystats"
	"github.com/mcncl/domtools/internal/models"
	"github.com/mcncl/domtools/internal/pruner"
)

// Format selects the report rendering.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case Text, "":
		return Text, nil
	case JSON:
		return JSON, nil
	}
	return "", errors.NewArgumentError(fmt.Sprintf("unknown output format '%s' (expected text or json)", s), nil)
}

const (
	rule           = "=================================================="
	sampleMaxLen   = 100
	sampleEllipsis = "    ..."
)

// Formatter renders reports. Counts in text reports use English digit grouping.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter creates a new Formatter instance
func NewFormatter() *Formatter {
	return &Formatter{printer: message.NewPrinter(language.English)}
}

// Findings renders the matches of a find run, one section per searched key.
func (f *Formatter) Findings(w io.Writer, res *finder.Result, format Format) error {
	if format == JSON {
		return writeJSON(w, findingsDTO(res))
	}

	var buf bytes.Buffer
	for _, key := range res.Keys {
		groups := res.Groups(key)
		if len(groups) == 0 {
			f.printer.Fprintf(&buf, "\nNo instances of '%s' found.\n", key)
			continue
		}

		f.printer.Fprintf(&buf, "\nFound %d total instance(s) of '%s':\n", res.Count(key), key)
		buf.WriteString(rule + "\n")
		for i, group := range groups {
			f.printer.Fprintf(&buf, "\nUnique Object %d (found %d %s):\n", i+1, group.Count(), plural(group.Count(), "time", "times"))
			buf.WriteString("Content:\n")
			content, err := encoder.Marshal(group.Value, encoder.Pretty)
			if err != nil {
				return err
			}
			buf.Write(content)
			buf.WriteString("\nPaths:\n")
			for _, p := range group.Paths {
				buf.WriteString("- " + p.Display() + "\n")
			}
		}
	}
	if res.Rejected > 0 {
		f.printer.Fprintf(&buf, "\n%d match(es) skipped: --where could not be evaluated on them\n", res.Rejected)
	}
	f.truncated(&buf, res.Truncated)
	return write(w, buf.Bytes())
}

// Analysis renders a value analyzer report.
func (f *Formatter) Analysis(w io.Writer, report *analyzer.Report, format Format) error {
	if format == JSON {
		return writeJSON(w, report)
	}

	var buf bytes.Buffer
	buf.WriteString("Value Analysis\n" + rule + "\n")
	f.printer.Fprintf(&buf, "Leaves:   %d\n", report.TotalLeaves)
	f.printer.Fprintf(&buf, "  null     %d\n", report.Nulls)
	f.printer.Fprintf(&buf, "  boolean  %d (true %d, false %d)\n", report.Booleans.Count, report.Booleans.True, report.Booleans.False)
	f.printer.Fprintf(&buf, "  number   %d\n", report.Numbers)
	f.printer.Fprintf(&buf, "  string   %d", report.Strings.Count)
	if report.Strings.Count > 0 {
		f.printer.Fprintf(&buf, " (length min %d, max %d, mean %.1f)",
			report.Strings.MinLength, report.Strings.MaxLength, report.Strings.MeanLength)
	}
	buf.WriteString("\n")

	if len(report.Duplicates) > 0 {
		f.printer.Fprintf(&buf, "\nDuplicate Strings (%d of %d)\n", len(report.Duplicates), report.DistinctDuplicates)
		buf.WriteString(rule + "\n")
		for _, d := range report.Duplicates {
			f.printer.Fprintf(&buf, "%6d  %s\n", d.Count, encoder.String(d.Value))
		}
	}

	buf.WriteString("\nInteresting Content\n" + rule + "\n")
	for _, finding := range report.Interesting {
		f.printer.Fprintf(&buf, "\nFound %d %s: %s\n", finding.Count, plural(finding.Count, "time", "times"), finding.Value)
		if len(finding.Paths) > 0 {
			buf.WriteString("Locations:\n")
			for _, p := range finding.Paths {
				buf.WriteString("  - " + p.Display() + "\n")
			}
		}
	}
	f.truncated(&buf, report.Truncated)
	return write(w, buf.Bytes())
}

// KeyStats renders a key usage report.
func (f *Formatter) KeyStats(w io.Writer, report *keystats.Report, format Format) error {
	if format == JSON {
		return writeJSON(w, keyStatsDTO(report))
	}

	var buf bytes.Buffer
	buf.WriteString("\nKey Analysis\n" + rule + "\n")
	for _, stat := range report.Keys {
		buf.WriteString("\nKey: " + stat.Key + "\n")
		f.printer.Fprintf(&buf, "Count: %d\n", stat.Count)
		if len(stat.Samples) == 0 {
			continue
		}
		buf.WriteString("Sample values:\n")
		for _, sample := range stat.Samples {
			buf.WriteString("  At " + sample.Path.Display() + ":\n")
			text := sampleText(sample.Value)
			if len(text) > sampleMaxLen {
				buf.WriteString("  → " + truncateUTF8(text, sampleMaxLen) + "\n")
				buf.WriteString(sampleEllipsis + "\n")
			} else {
				buf.WriteString("  → " + text + "\n")
			}
		}
	}

	if len(report.NodeTypes) > 0 {
		buf.WriteString("\nNode Types\n" + rule + "\n")
		for _, nt := range report.NodeTypes {
			f.printer.Fprintf(&buf, "%-28s %3d  %d\n", nt.Name, nt.Code, nt.Count)
		}
	}
	f.truncated(&buf, report.Truncated)
	return write(w, buf.Bytes())
}

// PruneStats renders the per-rule removal counters of a prune run.
func (f *Formatter) PruneStats(w io.Writer, stats pruner.Stats, format Format) error {
	if format == JSON {
		out := make(map[string]int, len(stats)+1)
		for _, r := range stats.Rules() {
			out[string(r)] = stats[r]
		}
		out["total"] = stats.Total()
		return writeJSON(w, out)
	}

	var buf bytes.Buffer
	f.printer.Fprintf(&buf, "Removed %d node(s)\n", stats.Total())
	for _, r := range stats.Rules() {
		f.printer.Fprintf(&buf, "  %-12s %d\n", r, stats[r])
	}
	return write(w, buf.Bytes())
}

// CaptureStats renders the counters of an HTML capture.
func (f *Formatter) CaptureStats(w io.Writer, stats dom.Stats, format Format) error {
	if format == JSON {
		return writeJSON(w, stats)
	}
	var buf bytes.Buffer
	f.printer.Fprintf(&buf, "Captured %d node(s): %d element(s), %d text node(s), %d truncated, %d error(s)\n",
		stats.Nodes, stats.Elements, stats.TextNodes, stats.Truncated, stats.Errors)
	return write(w, buf.Bytes())
}

func (f *Formatter) truncated(buf *bytes.Buffer, paths []models.Path) {
	if len(paths) == 0 {
		return
	}
	f.printer.Fprintf(buf, "\n%d subtree(s) skipped at the depth limit:\n", len(paths))
	for _, p := range paths {
		buf.WriteString("  - " + p.Display() + "\n")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// sampleText shows strings bare and everything else as compact JSON.
func sampleText(v models.Value) string {
	if v.Kind == models.String {
		return v.Str
	}
	return string(rawJSON(v))
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func write(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return errors.NewOutputError("failed to write report", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.NewSerializationError("failed to encode report", err)
	}
	return write(w, buf.Bytes())
}

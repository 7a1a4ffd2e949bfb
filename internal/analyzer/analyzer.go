package analyzer

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mcncl/domtools/internal/models"
	"github.com/mcncl/domtools/internal/walker"
)

// DefaultLongStringThreshold is the length above which a string is always interesting.
const DefaultLongStringThreshold = 50

// Options configures an Analyzer.
type Options struct {
	MaxDepth int
	// LongStringThreshold marks longer strings as interesting.
	LongStringThreshold int
	// MaxDuplicates caps the reported duplicates; zero reports all.
	MaxDuplicates int
	Logger        *slog.Logger
}

// BooleanStats counts boolean leaves.
type BooleanStats struct {
	Count int `json:"count"`
	True  int `json:"true"`
	False int `json:"false"`
}

// StringStats summarizes string leaves. Lengths are in bytes.
type StringStats struct {
	Count      int     `json:"count"`
	MinLength  int     `json:"min_length"`
	MaxLength  int     `json:"max_length"`
	MeanLength float64 `json:"mean_length"`
}

// Duplicate is a string value seen more than once.
type Duplicate struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Finding is an interesting string with every location it occurs at.
type Finding struct {
	Value string        `json:"value"`
	Count int           `json:"count"`
	Paths []models.Path `json:"paths"`
}

// Report is the aggregate over every leaf of a document.
type Report struct {
	TotalLeaves int          `json:"total_leaves"`
	Nulls       int          `json:"nulls"`
	Booleans    BooleanStats `json:"booleans"`
	Numbers     int          `json:"numbers"`
	Strings     StringStats  `json:"strings"`
	// Duplicates lists repeated strings by descending count, then value.
	Duplicates []Duplicate `json:"duplicates"`
	// DistinctDuplicates counts repeated strings before MaxDuplicates applies.
	DistinctDuplicates int `json:"distinct_duplicates"`
	// Interesting lists paths, URLs, file names and long strings by descending count.
	Interesting []Finding `json:"interesting"`
	// Truncated lists subtrees skipped for exceeding the depth limit.
	Truncated []models.Path `json:"truncated,omitempty"`
}

// Analyzer classifies the leaf values of documents.
type Analyzer struct {
	opts   Options
	logger *slog.Logger
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer(opts Options) *Analyzer {
	if opts.LongStringThreshold <= 0 {
		opts.LongStringThreshold = DefaultLongStringThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{opts: opts, logger: logger}
}

// stringEntry aggregates one distinct string value.
type stringEntry struct {
	value       string
	count       int
	interesting bool
	paths       []models.Path
}

// stringIndex counts strings in first-seen order, keyed by xxhash with a
// full comparison on collision.
type stringIndex struct {
	buckets map[uint64][]int
	entries []*stringEntry
}

func newStringIndex() *stringIndex {
	return &stringIndex{buckets: make(map[uint64][]int)}
}

func (ix *stringIndex) add(s string) *stringEntry {
	sum := xxhash.Sum64String(s)
	for _, i := range ix.buckets[sum] {
		if ix.entries[i].value == s {
			ix.entries[i].count++
			return ix.entries[i]
		}
	}
	entry := &stringEntry{value: s, count: 1}
	ix.buckets[sum] = append(ix.buckets[sum], len(ix.entries))
	ix.entries = append(ix.entries, entry)
	return entry
}

// Analyze aggregates every scalar in root. Subtrees beyond the depth limit
// are skipped and reported rather than failing the run.
func (a *Analyzer) Analyze(root models.Value) (*Report, error) {
	report := &Report{}
	index := newStringIndex()
	totalLength := 0

	w := walker.New(walker.Options{MaxDepth: a.opts.MaxDepth, TolerateLimit: true})
	err := w.Walk(root, func(n walker.Node) (walker.Decision, error) {
		v := n.Value
		switch v.Kind {
		case models.Null:
			report.Nulls++
		case models.Bool:
			report.Booleans.Count++
			if v.Bool {
				report.Booleans.True++
			} else {
				report.Booleans.False++
			}
		case models.Number:
			report.Numbers++
		case models.String:
			length := len(v.Str)
			if report.Strings.Count == 0 || length < report.Strings.MinLength {
				report.Strings.MinLength = length
			}
			if length > report.Strings.MaxLength {
				report.Strings.MaxLength = length
			}
			report.Strings.Count++
			totalLength += length

			entry := index.add(v.Str)
			if entry.count == 1 {
				entry.interesting = isInteresting(v.Str, a.opts.LongStringThreshold)
			}
			if entry.interesting {
				entry.paths = append(entry.paths, n.FullPath())
			}
		case models.Array, models.Object:
			return walker.Continue, nil
		}
		report.TotalLeaves++
		return walker.Continue, nil
	})
	if err != nil {
		return nil, err
	}

	if report.Strings.Count > 0 {
		report.Strings.MeanLength = float64(totalLength) / float64(report.Strings.Count)
	}
	report.Duplicates, report.DistinctDuplicates = duplicates(index.entries, a.opts.MaxDuplicates)
	report.Interesting = interesting(index.entries)
	report.Truncated = w.Stats().Truncated

	for _, p := range report.Truncated {
		a.logger.Warn("subtree exceeds depth limit, not analyzed", slog.String("path", p.String()), slog.Int("max_depth", w.MaxDepth()))
	}
	a.logger.Debug("analysis complete",
		slog.Int("leaves", report.TotalLeaves),
		slog.Int("distinct_strings", len(index.entries)),
		slog.Int("interesting", len(report.Interesting)))
	return report, nil
}

// isInteresting flags strings that look like paths, URLs, file names or
// prose, ignoring framework internals.
func isInteresting(s string, threshold int) bool {
	value := strings.TrimSpace(s)
	if strings.HasPrefix(value, "__") || strings.HasPrefix(value, "[object") {
		return false
	}
	return len(value) > threshold ||
		strings.Contains(value, "/") ||
		strings.Contains(value, ".") ||
		strings.HasPrefix(value, "http")
}

func duplicates(entries []*stringEntry, limit int) ([]Duplicate, int) {
	out := make([]Duplicate, 0)
	for _, e := range entries {
		if e.count > 1 {
			out = append(out, Duplicate{Value: e.value, Count: e.count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	distinct := len(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, distinct
}

func interesting(entries []*stringEntry) []Finding {
	out := make([]Finding, 0)
	for _, e := range entries {
		if e.interesting {
			out = append(out, Finding{Value: e.value, Count: e.count, Paths: e.paths})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

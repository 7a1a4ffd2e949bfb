// Package keystats reports how often each object key occurs in a document,
// with a few sample values per key and a tally of DOM node types.
package keystats

import (
	"log/slog"
	"sort"

	"github.com/mcncl/domtools/internal/dom"
	"github.com/mcncl/domtools/internal/models"
	"github.com/mcncl/domtools/internal/walker"
)

// DefaultSamples is the number of sample values kept per key.
const DefaultSamples = 3

// Options configures a Collector.
type Options struct {
	MaxDepth int
	Samples  int
	Logger   *slog.Logger
}

// Sample is one occurrence of a key.
type Sample struct {
	Path  models.Path  `json:"path"`
	Value models.Value `json:"-"`
}

// KeyStat aggregates the occurrences of one key.
type KeyStat struct {
	Key     string   `json:"key"`
	Count   int      `json:"count"`
	Samples []Sample `json:"samples"`
}

// NodeTypeStat counts nodes of one DOM node type.
type NodeTypeStat struct {
	Code  int    `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Report lists keys by descending count, then name.
type Report struct {
	Keys      []KeyStat      `json:"keys"`
	NodeTypes []NodeTypeStat `json:"node_types"`
	Truncated []models.Path  `json:"truncated,omitempty"`
}

// Collector gathers key statistics.
type Collector struct {
	opts   Options
	logger *slog.Logger
}

// New creates a collector.
func New(opts Options) *Collector {
	if opts.Samples < 0 {
		opts.Samples = 0
	} else if opts.Samples == 0 {
		opts.Samples = DefaultSamples
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{opts: opts, logger: logger}
}

// Collect counts every object member of root.
func (c *Collector) Collect(root models.Value) (*Report, error) {
	stats := make(map[string]*KeyStat)
	nodeTypes := make(map[int]int)

	w := walker.New(walker.Options{MaxDepth: c.opts.MaxDepth, TolerateLimit: true})
	err := w.Walk(root, func(n walker.Node) (walker.Decision, error) {
		key, ok := n.Key()
		if !ok {
			return walker.Continue, nil
		}

		stat, seen := stats[key]
		if !seen {
			stat = &KeyStat{Key: key}
			stats[key] = stat
		}
		stat.Count++
		if len(stat.Samples) < c.opts.Samples && !hasSample(stat.Samples, n.Value) {
			stat.Samples = append(stat.Samples, Sample{Path: n.FullPath(), Value: n.Value})
		}

		if key == dom.FieldNodeType && n.Value.Kind == models.Number {
			if code, err := n.Value.Number.Int64(); err == nil {
				nodeTypes[int(code)]++
			}
		}
		return walker.Continue, nil
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Keys:      make([]KeyStat, 0, len(stats)),
		NodeTypes: make([]NodeTypeStat, 0, len(nodeTypes)),
		Truncated: w.Stats().Truncated,
	}
	for _, stat := range stats {
		report.Keys = append(report.Keys, *stat)
	}
	sort.Slice(report.Keys, func(i, j int) bool {
		if report.Keys[i].Count != report.Keys[j].Count {
			return report.Keys[i].Count > report.Keys[j].Count
		}
		return report.Keys[i].Key < report.Keys[j].Key
	})

	for code, count := range nodeTypes {
		report.NodeTypes = append(report.NodeTypes, NodeTypeStat{Code: code, Name: dom.NodeType(code).String(), Count: count})
	}
	sort.Slice(report.NodeTypes, func(i, j int) bool {
		if report.NodeTypes[i].Count != report.NodeTypes[j].Count {
			return report.NodeTypes[i].Count > report.NodeTypes[j].Count
		}
		return report.NodeTypes[i].Code < report.NodeTypes[j].Code
	})

	c.logger.Debug("key statistics collected", slog.Int("distinct_keys", len(report.Keys)), slog.Int("visited", w.Stats().Visited))
	return report, nil
}

// hasSample reports whether an equal value was already sampled.
func hasSample(samples []Sample, v models.Value) bool {
	for _, s := range samples {
		if s.Value.Equal(v) {
			return true
		}
	}
	return false
}

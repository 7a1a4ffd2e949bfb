// Package finder locates every occurrence of selected object keys in a
// document and groups identical values together.
package finder

import (
	"bytes"
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"github.com/mcncl/domtools/internal/dom"
	"github.com/mcncl/domtools/internal/encoder"
	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/models"
	"github.com/mcncl/domtools/internal/query"
	"github.com/mcncl/domtools/internal/walker"
)

// Options configures a Finder.
type Options struct {
	MaxDepth int
	// Where, when set, keeps only matches whose value satisfies the expression.
	Where  *query.Expression
	Logger *slog.Logger
}

// Match is one occurrence of a searched key.
type Match struct {
	Path  models.Path // location of the member, ending with Key
	Key   string
	Value models.Value
}

// Group is a set of matches of one key sharing the same value.
type Group struct {
	Key       string
	Value     models.Value
	Paths     []models.Path
	canonical []byte
}

// Count returns how many times the value occurred.
func (g Group) Count() int {
	return len(g.Paths)
}

// Result holds the matches in document order.
type Result struct {
	Keys      []string
	Matches   []Match
	Truncated []models.Path
	// Rejected counts matches the Where expression could not be evaluated on.
	Rejected int
}

// Finder searches documents for a fixed set of keys.
type Finder struct {
	keys   []string
	set    map[string]struct{}
	opts   Options
	logger *slog.Logger
}

// New creates a finder for keys. Duplicates are ignored; at least one key is required.
func New(keys []string, opts Options) (*Finder, error) {
	f := &Finder{set: make(map[string]struct{}), opts: opts, logger: opts.Logger}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	for _, key := range keys {
		if _, seen := f.set[key]; seen {
			continue
		}
		f.set[key] = struct{}{}
		f.keys = append(f.keys, key)
	}
	if len(f.keys) == 0 {
		return nil, errors.NewArgumentError("at least one object key to find is required", errors.ErrNoKeys)
	}
	return f, nil
}

// Find walks root in pre-order and records each member whose key is searched.
// Matched values are searched too, so nested occurrences are reported.
// Wrapper objects tagged with _type are matched whole and not searched.
// Subtrees beyond the depth limit are skipped and listed in Result.Truncated.
func (f *Finder) Find(root models.Value) (*Result, error) {
	res := &Result{Keys: append([]string(nil), f.keys...)}
	w := walker.New(walker.Options{MaxDepth: f.opts.MaxDepth, TolerateLimit: true})

	err := w.Walk(root, func(n walker.Node) (walker.Decision, error) {
		// Wrappers are opaque: they can match but are never searched.
		next := walker.Continue
		if dom.IsWrapper(n.Value) {
			next = walker.Skip
		}

		key, ok := n.Key()
		if !ok {
			return next, nil
		}
		if _, searched := f.set[key]; !searched {
			return next, nil
		}
		if f.opts.Where != nil {
			matched, err := f.opts.Where.Match(n.Value)
			if err != nil {
				res.Rejected++
				f.logger.Debug("where expression failed", slog.String("path", n.FullPath().String()), slog.Any("error", err))
				return next, nil
			}
			if !matched {
				return next, nil
			}
		}
		res.Matches = append(res.Matches, Match{Path: n.FullPath(), Key: key, Value: n.Value.Clone()})
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	res.Truncated = w.Stats().Truncated
	for _, p := range res.Truncated {
		f.logger.Warn("subtree exceeds depth limit, not searched", slog.String("path", p.String()), slog.Int("max_depth", w.MaxDepth()))
	}
	f.logger.Debug("find complete", slog.Int("matches", len(res.Matches)), slog.Int("visited", w.Stats().Visited))
	return res, nil
}

// Count returns the number of occurrences of key.
func (r *Result) Count(key string) int {
	n := 0
	for _, m := range r.Matches {
		if m.Key == key {
			n++
		}
	}
	return n
}

// Groups returns the distinct values found under key in order of first
// occurrence, each with every path it was seen at.
func (r *Result) Groups(key string) []Group {
	var groups []Group
	index := make(map[uint64][]int)

	for _, m := range r.Matches {
		if m.Key != key {
			continue
		}
		canonical := encoder.Canonical(m.Value)
		sum := xxhash.Sum64(canonical)

		found := -1
		for _, i := range index[sum] {
			if bytes.Equal(groups[i].canonical, canonical) {
				found = i
				break
			}
		}
		if found < 0 {
			found = len(groups)
			groups = append(groups, Group{Key: key, Value: m.Value, canonical: canonical})
			index[sum] = append(index[sum], found)
		}
		groups[found].Paths = append(groups[found].Paths, m.Path)
	}
	return groups
}

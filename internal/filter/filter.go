// Package filter extracts the members with given keys from a JSON document
// together with the minimal skeleton of containers leading to them.
package filter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcncl/domtools/internal/dom"
	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/models"
	"github.com/mcncl/domtools/internal/walker"
)

// Options configures a Filter.
type Options struct {
	MaxDepth int
	Logger   *slog.Logger
}

// Filter keeps object members whose key is in a target set.
type Filter struct {
	keys   map[string]struct{}
	order  []string
	opts   Options
	logger *slog.Logger
}

// Result is the filtered document and what happened to get there.
type Result struct {
	Value models.Value
	// Matched counts members retained because their key was targeted.
	Matched int
	// Dropped counts scalars discarded for lying outside every match.
	Dropped int
}

// New builds a filter for keys. Duplicates are ignored; at least one key is required.
func New(keys []string, opts Options) (*Filter, error) {
	f := &Filter{keys: make(map[string]struct{}), opts: opts, logger: opts.Logger}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	for _, key := range keys {
		if _, seen := f.keys[key]; seen {
			continue
		}
		f.keys[key] = struct{}{}
		f.order = append(f.order, key)
	}
	if len(f.keys) == 0 {
		return nil, errors.NewArgumentError("at least one key to keep is required", errors.ErrNoKeys)
	}
	return f, nil
}

// ParseKeyList splits a comma separated --keys value, trimming blanks.
func ParseKeyList(s string) []string {
	var keys []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}

// Keys returns the distinct target keys in the order first given.
func (f *Filter) Keys() []string {
	return append([]string(nil), f.order...)
}

// Apply filters root. The input is left untouched. Wrapper objects tagged
// with _type are kept only when their own key is targeted.
func (f *Filter) Apply(root models.Value) (Result, error) {
	var res Result
	w := walker.New(walker.Options{MaxDepth: f.opts.MaxDepth})

	visit := func(n walker.Node) (walker.Decision, error) {
		if key, ok := n.Key(); ok {
			if _, target := f.keys[key]; target {
				res.Matched++
				return walker.Skip, nil
			}
		}
		if n.Value.IsContainer() && !dom.IsWrapper(n.Value) {
			return walker.Continue, nil
		}
		res.Dropped++
		return walker.Drop, nil
	}

	finish := func(n walker.Node, _, rebuilt models.Value) (models.Value, bool) {
		if rebuilt.Len() == 0 && !n.Root {
			return rebuilt, false
		}
		return rebuilt, true
	}

	out, kept, err := w.Transform(root, visit, finish)
	if err != nil {
		return Result{}, err
	}
	if !kept {
		out = models.EmptyLike(root)
	}
	res.Value = out

	f.logger.Debug("filter applied",
		slog.String("keys", strings.Join(f.order, ",")),
		slog.Int("matched", res.Matched),
		slog.Int("dropped", res.Dropped),
		slog.Int("visited", w.Stats().Visited))
	if res.Matched == 0 {
		f.logger.Info(fmt.Sprintf("none of %d key(s) found in document", len(f.order)))
	}
	return res, nil
}

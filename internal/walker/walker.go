// Package walker traverses models.Value trees in document order.
//
// The walker owns traversal, path bookkeeping and the depth guard; callers
// supply the policy as a Visitor that decides, per node, whether to descend,
// keep, drop or replace it. Walk observes a tree, Transform rebuilds one.
// Neither ever mutates its input.
package walker

import (
	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/models"
)

// DefaultMaxDepth is the nesting depth allowed when Options.MaxDepth is unset.
const DefaultMaxDepth = 10000

type action int

const (
	actContinue action = iota
	actSkip
	actDrop
	actReplace
)

// Decision is a visitor's verdict for one node.
type Decision struct {
	act   action
	value models.Value
}

var (
	// Continue descends into the node's children. For scalars it keeps the value.
	Continue = Decision{act: actContinue}
	// Skip keeps the node and its whole subtree as-is without visiting it.
	Skip = Decision{act: actSkip}
	// Drop removes the node and its subtree.
	Drop = Decision{act: actDrop}
)

// Replace substitutes v for the node without descending into either.
func Replace(v models.Value) Decision {
	return Decision{act: actReplace, value: v}
}

// Node is what a Visitor sees. Path is the location of the parent and is
// shared between siblings; it is never modified once handed out.
type Node struct {
	Path  models.Path
	Step  models.Step
	Value models.Value
	Depth int
	Root  bool
}

// Key returns the member name when the node is an object member.
func (n Node) Key() (string, bool) {
	if n.Root || n.Step.IsIndex {
		return "", false
	}
	return n.Step.Key, true
}

// FullPath returns the path of the node itself.
func (n Node) FullPath() models.Path {
	if n.Root {
		return n.Path
	}
	return n.Path.Child(n.Step)
}

// Visitor decides what happens to a node. A returned error stops the run.
type Visitor func(Node) (Decision, error)

// Finisher sees a container after its children were rebuilt and returns the
// value to keep in its place, or false to drop it.
type Finisher func(node Node, original, rebuilt models.Value) (models.Value, bool)

// Options configures a Walker.
type Options struct {
	MaxDepth int
	// TolerateLimit makes Walk record subtrees beyond MaxDepth in
	// Stats.Truncated and carry on. Transform always fails instead.
	TolerateLimit bool
}

// Stats describes the most recent run.
type Stats struct {
	Visited      int
	MaxDepthSeen int
	Truncated    []models.Path
}

// Walker runs visitors over trees. A Walker is not safe for concurrent use.
type Walker struct {
	opts  Options
	stats Stats
}

// New creates a walker.
func New(opts Options) *Walker {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Walker{opts: opts}
}

// Stats returns the counters of the last Walk or Transform.
func (w *Walker) Stats() Stats {
	return w.stats
}

// MaxDepth returns the effective depth limit.
func (w *Walker) MaxDepth() int {
	return w.opts.MaxDepth
}

// Walk visits root and its descendants in pre-order: object members in
// insertion order, array elements by index.
func (w *Walker) Walk(root models.Value, visit Visitor) error {
	w.stats = Stats{}
	return w.walk(Node{Value: root, Root: true}, visit)
}

func (w *Walker) walk(node Node, visit Visitor) error {
	if node.Depth > w.opts.MaxDepth {
		if w.opts.TolerateLimit {
			w.stats.Truncated = append(w.stats.Truncated, node.FullPath())
			return nil
		}
		return errors.NewLimitError(node.FullPath().String(), w.opts.MaxDepth)
	}
	w.record(node)

	decision, err := visit(node)
	if err != nil {
		return err
	}
	if decision.act != actContinue || !node.Value.IsContainer() {
		return nil
	}

	here := node.FullPath()
	return eachChild(node.Value, func(step models.Step, child models.Value) error {
		return w.walk(Node{Path: here, Step: step, Value: child, Depth: node.Depth + 1}, visit)
	})
}

// Transform rebuilds root according to visit and finish. It returns the new
// root and whether the root itself was kept. finish may be nil.
func (w *Walker) Transform(root models.Value, visit Visitor, finish Finisher) (models.Value, bool, error) {
	w.stats = Stats{}
	return w.transform(Node{Value: root, Root: true}, visit, finish)
}

func (w *Walker) transform(node Node, visit Visitor, finish Finisher) (models.Value, bool, error) {
	if node.Depth > w.opts.MaxDepth {
		return models.Value{}, false, errors.NewLimitError(node.FullPath().String(), w.opts.MaxDepth)
	}
	w.record(node)

	decision, err := visit(node)
	if err != nil {
		return models.Value{}, false, err
	}

	switch decision.act {
	case actDrop:
		return models.Value{}, false, nil
	case actSkip:
		return node.Value, true, nil
	case actReplace:
		return decision.value, true, nil
	case actContinue:
	}

	original := node.Value
	here := node.FullPath()
	var rebuilt models.Value

	switch original.Kind {
	case models.Array:
		items := make([]models.Value, 0, len(original.Items))
		for i, item := range original.Items {
			child := Node{Path: here, Step: models.IndexStep(i), Value: item, Depth: node.Depth + 1}
			v, kept, err := w.transform(child, visit, finish)
			if err != nil {
				return models.Value{}, false, err
			}
			if kept {
				items = append(items, v)
			}
		}
		rebuilt = models.ArrayValue(items...)
	case models.Object:
		fields := models.NewObjectMap(original.Len())
		for _, member := range original.Members() {
			child := Node{Path: here, Step: models.KeyStep(member.Key), Value: member.Value, Depth: node.Depth + 1}
			v, kept, err := w.transform(child, visit, finish)
			if err != nil {
				return models.Value{}, false, err
			}
			if kept {
				fields.Set(member.Key, v)
			}
		}
		rebuilt = models.Value{Kind: models.Object, Fields: fields}
	case models.Null, models.Bool, models.Number, models.String:
		return original, true, nil
	}

	if finish == nil {
		return rebuilt, true, nil
	}
	v, kept := finish(node, original, rebuilt)
	return v, kept, nil
}

func (w *Walker) record(node Node) {
	w.stats.Visited++
	if node.Depth > w.stats.MaxDepthSeen {
		w.stats.MaxDepthSeen = node.Depth
	}
}

func eachChild(v models.Value, fn func(models.Step, models.Value) error) error {
	switch v.Kind {
	case models.Array:
		for i, item := range v.Items {
			if err := fn(models.IndexStep(i), item); err != nil {
				return err
			}
		}
	case models.Object:
		if v.Fields == nil {
			return nil
		}
		for pair := v.Fields.Oldest(); pair != nil; pair = pair.Next() {
			if err := fn(models.KeyStep(pair.Key), pair.Value); err != nil {
				return err
			}
		}
	case models.Null, models.Bool, models.Number, models.String:
	}
	return nil
}

// Package pruner removes framework bookkeeping, styling and binary noise
// from captured DOM trees.
package pruner

import (
	"log/slog"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mcncl/domtools/internal/dom"
	"github.com/mcncl/domtools/internal/models"
	"github.com/mcncl/domtools/internal/walker"
)

// Rule names a removal reason.
type Rule string

const (
	RuleNone       Rule = ""
	RuleDenyKey    Rule = "deny_key"
	RuleFunction   Rule = "function"
	RuleBinary     Rule = "binary"
	RuleNoise      Rule = "noise"
	RuleCSSClasses Rule = "css_classes"
	RuleBoolean    Rule = "boolean"
	RuleNumber     Rule = "number"
	RuleEmptyValue Rule = "empty_value"
	RuleBareNode   Rule = "bare_node"
	RuleEmptied    Rule = "emptied"
)

// Stats counts removals per rule.
type Stats map[Rule]int

// Total returns the number of removed nodes.
func (s Stats) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Rules returns the rules that removed something, sorted by name.
func (s Stats) Rules() []Rule {
	rules := make([]Rule, 0, len(s))
	for rule, n := range s {
		if n > 0 {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i] < rules[j] })
	return rules
}

// Options configures a Pruner beyond its policy.
type Options struct {
	MaxDepth int
	Logger   *slog.Logger
}

// Result is the pruned document with its removal counters.
type Result struct {
	Value models.Value
	Stats Stats
}

// Pruner applies a Policy. A Pruner is not safe for concurrent use.
type Pruner struct {
	policy  *compiledPolicy
	opts    Options
	logger  *slog.Logger
	strings *lru.Cache[string, Rule]
	keys    *lru.Cache[string, bool]
}

// New compiles policy. Invalid patterns are argument errors.
func New(policy Policy, opts Options) (*Pruner, error) {
	compiled, err := compile(policy)
	if err != nil {
		return nil, err
	}

	size := policy.CacheSize
	if size <= 0 {
		size = DefaultPolicy().CacheSize
	}
	stringCache, err := lru.New[string, Rule](size)
	if err != nil {
		return nil, err
	}
	keyCache, err := lru.New[string, bool](size)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{policy: compiled, opts: opts, logger: logger, strings: stringCache, keys: keyCache}, nil
}

// Prune returns a cleaned copy of root. Rules run per node before descending:
// protected keys, then the key denylist, then value rules. Containers left
// empty by removals are removed in turn, so a second Prune is a no-op.
func (p *Pruner) Prune(root models.Value) (Result, error) {
	stats := Stats{}
	w := walker.New(walker.Options{MaxDepth: p.opts.MaxDepth})

	visit := func(n walker.Node) (walker.Decision, error) {
		if key, ok := n.Key(); ok {
			if p.policy.isProtected(key) {
				return walker.Skip, nil
			}
			if p.deniedKey(key) {
				stats[RuleDenyKey]++
				return walker.Drop, nil
			}
		}
		if rule := p.valueRule(n.Value); rule != RuleNone {
			stats[rule]++
			return walker.Drop, nil
		}
		if dom.IsWrapper(n.Value) {
			return walker.Skip, nil
		}
		return walker.Continue, nil
	}

	finish := func(_ walker.Node, original, rebuilt models.Value) (models.Value, bool) {
		if original.Len() > 0 && rebuilt.Len() == 0 {
			stats[RuleEmptied]++
			return rebuilt, false
		}
		if rule := p.shapeRule(rebuilt); rule != RuleNone {
			stats[rule]++
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

	attrs := []any{slog.Int("removed", stats.Total()), slog.Int("visited", w.Stats().Visited)}
	for _, rule := range stats.Rules() {
		attrs = append(attrs, slog.Int(string(rule), stats[rule]))
	}
	p.logger.Debug("prune complete", attrs...)

	return Result{Value: out, Stats: stats}, nil
}

func (p *Pruner) deniedKey(key string) bool {
	if denied, ok := p.keys.Get(key); ok {
		return denied
	}
	denied := p.policy.isDeniedKey(key)
	p.keys.Add(key, denied)
	return denied
}

// valueRule returns the rule that removes v before its children are visited.
func (p *Pruner) valueRule(v models.Value) Rule {
	switch v.Kind {
	case models.Null:
		if p.policy.DropEmptyValues {
			return RuleEmptyValue
		}
	case models.Bool:
		if p.policy.DropBooleans {
			return RuleBoolean
		}
	case models.Number:
		if p.policy.DropNumbers {
			return RuleNumber
		}
	case models.String:
		return p.stringRule(v.Str)
	case models.Array, models.Object:
		if t, ok := dom.WrapperType(v); ok {
			return p.wrapperRule(t, v)
		}
		if v.Len() == 0 && p.policy.DropEmptyValues {
			return RuleEmptyValue
		}
		return p.shapeRule(v)
	}
	return RuleNone
}

// shapeRule covers the container rules that must also hold after children
// were removed.
func (p *Pruner) shapeRule(v models.Value) Rule {
	switch v.Kind {
	case models.Array:
		if dom.IsByteArray(v) && len(v.Items) > p.policy.MaxBinaryBytes {
			return RuleBinary
		}
	case models.Object:
		if p.policy.DropBareNodes && v.Len() == 1 {
			if _, ok := v.Get(dom.FieldNodeName); ok {
				return RuleBareNode
			}
		}
	case models.Null, models.Bool, models.Number, models.String:
	}
	return RuleNone
}

func (p *Pruner) wrapperRule(t string, v models.Value) Rule {
	switch {
	case t == dom.TypeFunction && p.policy.DropFunctions:
		return RuleFunction
	case dom.IsBinaryType(t) && dom.PayloadSize(v) > p.policy.MaxBinaryBytes:
		return RuleBinary
	}
	return RuleNone
}

func (p *Pruner) stringRule(s string) Rule {
	if rule, ok := p.strings.Get(s); ok {
		return rule
	}
	rule := p.classifyString(s)
	p.strings.Add(s, rule)
	return rule
}

func (p *Pruner) classifyString(s string) Rule {
	if dom.IsDataURL(s) && len(s) > p.policy.MaxBinaryBytes {
		return RuleBinary
	}

	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		if s != "" {
			return RuleNoise
		}
		if p.policy.DropEmptyValues {
			return RuleEmptyValue
		}
		return RuleNone
	}
	if _, ok := p.policy.noise[trimmed]; ok {
		return RuleNoise
	}
	switch strings.ToLower(trimmed) {
	case "null", "undefined":
		return RuleNoise
	}

	if classes := strings.Fields(trimmed); len(classes) > 1 && p.allUtilityClasses(classes) {
		return RuleCSSClasses
	}
	return RuleNone
}

func (p *Pruner) allUtilityClasses(classes []string) bool {
	if len(p.policy.cssRegexps) == 0 {
		return false
	}
	for _, class := range classes {
		matched := false
		for _, re := range p.policy.cssRegexps {
			if re.MatchString(class) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

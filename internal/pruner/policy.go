package pruner

import (
	"fmt"
	"regexp"

	"github.com/iancoleman/strcase"

	"github.com/mcncl/domtools/internal/errors"
)

// Policy lists what the pruner removes.
type Policy struct {
	// ProtectedKeys are never dropped, whatever their value.
	ProtectedKeys []string `yaml:"protected_keys"`
	// DenyKeys are member names removed outright.
	DenyKeys []string `yaml:"deny_keys"`
	// DenyKeyPatterns are regular expressions matched against member names.
	DenyKeyPatterns []string `yaml:"deny_key_patterns"`
	// FoldKeyStyles compares member names in snake_case so that
	// className, class_name and class-name match one another.
	FoldKeyStyles bool `yaml:"fold_key_styles"`

	// NoiseValues are strings removed wherever they appear as values,
	// compared after trimming surrounding whitespace.
	NoiseValues []string `yaml:"noise_values"`
	// CSSClassPatterns match single utility classes. A string made only of
	// two or more such classes is removed.
	CSSClassPatterns []string `yaml:"css_class_patterns"`

	DropFunctions bool `yaml:"drop_functions"`
	// MaxBinaryBytes is the largest binary payload kept.
	MaxBinaryBytes int  `yaml:"max_binary_bytes"`
	DropBareNodes  bool `yaml:"drop_bare_nodes"`

	DropBooleans    bool `yaml:"drop_booleans"`
	DropNumbers     bool `yaml:"drop_numbers"`
	DropEmptyValues bool `yaml:"drop_empty_values"`

	// CacheSize bounds the memoized string verdicts.
	CacheSize int `yaml:"cache_size"`
}

// DefaultPolicy returns the built-in removal policy for React DOM captures.
func DefaultPolicy() Policy {
	return Policy{
		ProtectedKeys: []string{"nodeName"},
		DenyKeys: []string{
			"height", "width", "constructor", "fill", "viewBox",
			"className", "style", "css", "tailwind",
		},
		DenyKeyPatterns: []string{
			`^__react`,
			`^_owner$`,
			`^_payload$`,
			`^_response$`,
			`^_chunks$`,
			`^_stringDecoder$`,
			`^\[object\s.*\]$`,
		},
		NoiseValues: []string{
			"#text", "#comment", "fulfilled", "[object Object]",
			"UnserializableObject", "LINK", "default",
		},
		CSSClassPatterns: []string{
			`^(mx|my|px|py|m|p|gap)-[0-9\.]+$`,
			`^flex(-[a-z]+)*$`,
			`^grid(-[a-z]+)*$`,
			`^(block|inline|hidden)$`,
			`^(mb|mt|ml|mr)-[0-9\.]+$`,
			`^space-(x|y)-[0-9\.]+$`,
			`^gap-[0-9\.]+$`,
		},
		DropFunctions:  true,
		MaxBinaryBytes: 1024,
		DropBareNodes:  true,
		CacheSize:      8192,
	}
}

type compiledPolicy struct {
	Policy
	protected   map[string]struct{}
	denyKeys    map[string]struct{}
	denyRegexps []*regexp.Regexp
	noise       map[string]struct{}
	cssRegexps  []*regexp.Regexp
}

func compile(p Policy) (*compiledPolicy, error) {
	c := &compiledPolicy{
		Policy:    p,
		protected: make(map[string]struct{}, len(p.ProtectedKeys)),
		denyKeys:  make(map[string]struct{}, len(p.DenyKeys)),
		noise:     make(map[string]struct{}, len(p.NoiseValues)),
	}
	for _, key := range p.ProtectedKeys {
		c.protected[key] = struct{}{}
	}
	for _, key := range p.DenyKeys {
		c.denyKeys[c.foldKey(key)] = struct{}{}
	}
	for _, value := range p.NoiseValues {
		c.noise[value] = struct{}{}
	}

	var err error
	if c.denyRegexps, err = compilePatterns("deny_key_patterns", p.DenyKeyPatterns); err != nil {
		return nil, err
	}
	if c.cssRegexps, err = compilePatterns("css_class_patterns", p.CSSClassPatterns); err != nil {
		return nil, err
	}
	return c, nil
}

func compilePatterns(field string, patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.NewArgumentError(fmt.Sprintf("invalid regex pattern '%s' in %s", pattern, field), err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func (c *compiledPolicy) foldKey(key string) string {
	if !c.FoldKeyStyles {
		return key
	}
	return strcase.ToSnake(key)
}

func (c *compiledPolicy) isProtected(key string) bool {
	_, ok := c.protected[key]
	return ok
}

func (c *compiledPolicy) isDeniedKey(key string) bool {
	if _, ok := c.denyKeys[c.foldKey(key)]; ok {
		return true
	}
	for _, re := range c.denyRegexps {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

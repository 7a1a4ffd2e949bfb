package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Step is one edge from a container to a child: an object key or an array index.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeyStep returns a step through an object member.
func KeyStep(key string) Step { return Step{Key: key} }

// IndexStep returns a step through an array element.
func IndexStep(i int) Step { return Step{Index: i, IsIndex: true} }

// String renders the step the way it appears in a path.
func (s Step) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path is the route from the document root to a node.
// Paths are never modified after they are handed out.
type Path []Step

// Child returns a new path extended by step. The receiver is left untouched.
func (p Path) Child(step Step) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, step)
}

// Len returns the number of steps.
func (p Path) Len() int { return len(p) }

// String joins the steps with '/'. The root path renders as "".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, step := range p {
		parts[i] = step.String()
	}
	return strings.Join(parts, "/")
}

// Display is String with "(root)" for the empty path.
func (p Path) Display() string {
	if len(p) == 0 {
		return "(root)"
	}
	return p.String()
}

// Strings returns each step as a string, for JSON reports.
func (p Path) Strings() []string {
	parts := make([]string, len(p))
	for i, step := range p {
		parts[i] = step.String()
	}
	return parts
}

// MarshalJSON renders the path as its slash-joined string.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

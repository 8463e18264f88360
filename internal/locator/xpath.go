package locator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openjab/jab-cli/internal/model"
)

// The xpath-like path language: steps separated by '/', each step a role
// name or '*', optionally followed by bracketed predicates.
//
//	window[@name=contains('Login')]/panel/push button[@name='OK']
//	dialog/*[2]
//
// Predicates are comma-separated inside one bracket pair: attribute tests
// (@name='v', @name="v", @name=contains('v')) and at most one positional
// index, 1-based among the siblings that pass the attribute tests. A leading
// '/' or '//' is accepted and ignored; every search is rooted at the node the
// caller supplies.

type predKind int

const (
	predExact predKind = iota
	predContains
)

// Pred is one attribute test of a step.
type Pred struct {
	Attr  string
	Kind  predKind
	Value string
}

// Step matches one hierarchy level of a path.
type Step struct {
	Role  string
	Preds []Pred
	// Index is the 1-based positional predicate, 0 when absent.
	Index int
}

// Path is a parsed xpath-like expression.
type Path struct {
	Steps []Step
}

// ParsePath parses and fully validates an expression. Any syntax error,
// unknown role or unknown attribute is reported here, before a search
// touches the tree.
func ParsePath(expr string) (Path, error) {
	s := strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(s, "//"):
		s = s[2:]
	case strings.HasPrefix(s, "/"):
		s = s[1:]
	}
	if s == "" {
		return Path{}, fmt.Errorf("%w: empty xpath", ErrInvalidLocator)
	}
	parts, err := splitTop(s, '/')
	if err != nil {
		return Path{}, err
	}
	p := Path{Steps: make([]Step, 0, len(parts))}
	for _, part := range parts {
		step, err := parseStep(part)
		if err != nil {
			return Path{}, err
		}
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

// MatchAttrs reports whether n passes the step's role and attribute tests.
// The positional index is evaluated by the engine across sibling groups.
func (s Step) MatchAttrs(n *model.Node) bool {
	if s.Role != "*" && n.Role != s.Role {
		return false
	}
	for _, p := range s.Preds {
		v, ok := n.Attribute(p.Attr)
		if !ok {
			return false
		}
		switch p.Kind {
		case predContains:
			if !strings.Contains(v, p.Value) {
				return false
			}
		default:
			if v != p.Value {
				return false
			}
		}
	}
	return true
}

func parseStep(s string) (Step, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Step{}, fmt.Errorf("%w: empty path step", ErrInvalidLocator)
	}
	rolePart := s
	predPart := ""
	if i := indexTop(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return Step{}, fmt.Errorf("%w: unterminated predicate in %q", ErrInvalidLocator, s)
		}
		rolePart = strings.TrimSpace(s[:i])
		predPart = s[i+1 : len(s)-1]
	}
	if rolePart != "*" && !model.IsKnownRole(rolePart) {
		return Step{}, fmt.Errorf("%w: unknown role %q", ErrInvalidLocator, rolePart)
	}
	step := Step{Role: rolePart}
	if i := indexTop(s, '['); i >= 0 {
		preds, err := splitTop(predPart, ',')
		if err != nil {
			return Step{}, err
		}
		for _, raw := range preds {
			if err := step.addPred(raw); err != nil {
				return Step{}, err
			}
		}
	}
	return step, nil
}

func (s *Step) addPred(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty predicate", ErrInvalidLocator)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 {
			return fmt.Errorf("%w: positional index %d, indices are 1-based", ErrInvalidLocator, n)
		}
		if s.Index != 0 {
			return fmt.Errorf("%w: more than one positional index in a step", ErrInvalidLocator)
		}
		s.Index = n
		return nil
	}
	if !strings.HasPrefix(raw, "@") {
		return fmt.Errorf("%w: predicate %q is neither @attr=value nor an index", ErrInvalidLocator, raw)
	}
	eq := strings.IndexByte(raw, '=')
	if eq < 0 {
		return fmt.Errorf("%w: predicate %q has no value", ErrInvalidLocator, raw)
	}
	attr := strings.TrimSpace(raw[1:eq])
	switch attr {
	case "name", "description":
	default:
		return fmt.Errorf("%w: unknown attribute %q", ErrInvalidLocator, attr)
	}
	rhs := strings.TrimSpace(raw[eq+1:])
	kind := predExact
	if strings.HasPrefix(rhs, "contains(") {
		if !strings.HasSuffix(rhs, ")") {
			return fmt.Errorf("%w: unterminated contains() in %q", ErrInvalidLocator, raw)
		}
		rhs = strings.TrimSpace(rhs[len("contains(") : len(rhs)-1])
		kind = predContains
	}
	value, err := unquote(rhs)
	if err != nil {
		return err
	}
	s.Preds = append(s.Preds, Pred{Attr: attr, Kind: kind, Value: value})
	return nil
}

func unquote(s string) (string, error) {
	if len(s) >= 2 {
		q := s[0]
		if (q == '\'' || q == '"') && s[len(s)-1] == q {
			return s[1 : len(s)-1], nil
		}
	}
	return "", fmt.Errorf("%w: value %q must be quoted with ' or \"", ErrInvalidLocator, s)
}

// splitTop splits s on sep at bracket depth zero, outside quotes.
func splitTop(s string, sep byte) ([]string, error) {
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced ']' in %q", ErrInvalidLocator, s)
			}
		case c == sep && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated quote in %q", ErrInvalidLocator, s)
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced '[' in %q", ErrInvalidLocator, s)
	}
	return append(out, s[start:]), nil
}

// indexTop returns the first position of c at bracket depth zero outside
// quotes, or -1.
func indexTop(s string, c byte) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '[':
			if c == '[' && depth == 0 {
				return i
			}
			depth++
		case ch == ']':
			depth--
		case ch == c && depth == 0:
			return i
		}
	}
	return -1
}

package vars

import (
	"fmt"
	"strings"
)

// UnresolvedError reports a %(name)s marker with no binding in the scope.
type UnresolvedError struct {
	Name string
	Text string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved variable %q in %q", e.Name, e.Text)
}

// MalformedError reports a template whose marker syntax is broken, such as an
// unterminated "%(".
type MalformedError struct {
	Text string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed template %q", e.Text)
}

// Expand substitutes every %(name)s marker in text with its binding from the
// scope. Substituted values are inserted literally and never re-scanned, so
// expansion is exactly one level deep. "%%" escapes a literal percent sign.
func (s *Scope) Expand(text string) (string, error) {
	if !strings.ContainsRune(text, '%') {
		return text, nil
	}

	var out strings.Builder
	rest := text
	for {
		i := strings.IndexByte(rest, '%')
		if i < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:i])
		rest = rest[i+1:]

		switch {
		case strings.HasPrefix(rest, "%"):
			out.WriteByte('%')
			rest = rest[1:]
		case strings.HasPrefix(rest, "("):
			end := strings.Index(rest, ")s")
			if end < 0 {
				return "", &MalformedError{Text: text}
			}
			name := rest[1:end]
			value, ok := s.values[name]
			if !ok {
				return "", &UnresolvedError{Name: name, Text: text}
			}
			out.WriteString(value)
			rest = rest[end+2:]
		default:
			return "", &MalformedError{Text: text}
		}
	}
}

// ExpandAll expands every element of args, returning a new slice.
func (s *Scope) ExpandAll(args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, arg := range args {
		expanded, err := s.Expand(arg)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}

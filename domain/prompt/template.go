// Package prompt substitutes row values into {column} placeholders of a
// prompt template.
//
// There is no escape syntax: every '{' opens a placeholder that must close
// with '}' and name an existing column, and a '}' outside a placeholder is
// rejected.
package prompt

import (
	"fmt"
	"strings"

	"sheetprompt/domain/dataset"
	"sheetprompt/internal/errors"
)

type segment struct {
	literal     string
	placeholder string
	isField     bool
}

// Template is a parsed prompt template
type Template struct {
	raw      string
	segments []segment
}

// Parse splits raw into literal text and {name} placeholders
func Parse(raw string) (*Template, error) {
	t := &Template{raw: raw}

	var lit strings.Builder
	for i := 0; i < len(raw); {
		switch raw[i] {
		case '{':
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				rest := raw[i+1:]
				return nil, &errors.AppError{
					Code:    errors.CodeMissingColumn,
					Message: fmt.Sprintf("unterminated placeholder {%s", rest),
					Detail:  rest,
				}
			}
			if lit.Len() > 0 {
				t.segments = append(t.segments, segment{literal: lit.String()})
				lit.Reset()
			}
			name := raw[i+1 : i+1+end]
			t.segments = append(t.segments, segment{placeholder: name, isField: true})
			i += end + 2
		case '}':
			return nil, &errors.AppError{
				Code:    errors.CodeMissingColumn,
				Message: fmt.Sprintf("unmatched '}' at offset %d", i),
				Detail:  "}",
			}
		default:
			lit.WriteByte(raw[i])
			i++
		}
	}
	if lit.Len() > 0 {
		t.segments = append(t.segments, segment{literal: lit.String()})
	}
	return t, nil
}

// MustParse is like Parse but panics on error
func MustParse(raw string) *Template {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template source
func (t *Template) String() string {
	return t.raw
}

// Placeholders returns the placeholder names in order of first appearance
func (t *Template) Placeholders() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, s := range t.segments {
		if !s.isField {
			continue
		}
		if _, ok := seen[s.placeholder]; ok {
			continue
		}
		seen[s.placeholder] = struct{}{}
		names = append(names, s.placeholder)
	}
	return names
}

// Validate checks every placeholder against header and returns a
// MissingColumn error for the first one that is not a column
func (t *Template) Validate(header *dataset.Header) error {
	for _, name := range t.Placeholders() {
		if !header.Has(name) {
			return errors.MissingColumn(name)
		}
	}
	return nil
}

// Render substitutes row values into the template. Blank cells render as
// the empty string.
func (t *Template) Render(row dataset.Row) (string, error) {
	var b strings.Builder
	b.Grow(len(t.raw))
	for _, s := range t.segments {
		if !s.isField {
			b.WriteString(s.literal)
			continue
		}
		cell, ok := row.Lookup(s.placeholder)
		if !ok {
			return "", errors.MissingColumn(s.placeholder)
		}
		b.WriteString(cell.String())
	}
	return b.String(), nil
}

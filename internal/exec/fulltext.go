package exec

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
)

// textMatcher evaluates a full-text search expression against stored values.
//
// The expression is split on whitespace into terms. A term is either
// "field:value", matching a leaf whose field name or dotted path equals
// field and which contains the word value, or a bare word matching any leaf.
// An entry matches when every term matches. Comparison uses Unicode case
// folding.
type textMatcher struct {
	fold  cases.Caser
	terms []textTerm
}

type textTerm struct {
	field string // empty for bare terms
	word  string
}

type textLeaf struct {
	path  string
	name  string
	words []string
}

func newTextMatcher(search string) *textMatcher {
	m := &textMatcher{fold: cases.Fold()}
	for _, raw := range strings.Fields(search) {
		term := textTerm{word: m.fold.String(raw)}
		if field, word, ok := strings.Cut(raw, ":"); ok && field != "" && word != "" {
			term = textTerm{field: m.fold.String(field), word: m.fold.String(word)}
		}
		m.terms = append(m.terms, term)
	}
	return m
}

// match reports whether the JSON value satisfies every term.
// Values that are not valid JSON never match.
func (m *textMatcher) match(raw json.RawMessage) bool {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return false
	}

	var leaves []textLeaf
	m.flatten("", "", v, &leaves)

	for _, term := range m.terms {
		if !term.matches(leaves) {
			return false
		}
	}
	return len(m.terms) > 0
}

func (m *textMatcher) flatten(path, name string, v any, out *[]textLeaf) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			key := m.fold.String(k)
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			m.flatten(childPath, key, child, out)
		}
	case []any:
		for _, child := range val {
			m.flatten(path, name, child, out)
		}
	case nil:
		// null carries no searchable text
	default:
		text := ""
		switch leaf := val.(type) {
		case string:
			text = leaf
		case json.Number:
			text = leaf.String()
		case bool:
			if leaf {
				text = "true"
			} else {
				text = "false"
			}
		}
		*out = append(*out, textLeaf{
			path:  path,
			name:  name,
			words: strings.Fields(m.fold.String(text)),
		})
	}
}

func (t textTerm) matches(leaves []textLeaf) bool {
	for _, leaf := range leaves {
		if t.field != "" && t.field != leaf.name && t.field != leaf.path {
			continue
		}
		for _, w := range leaf.words {
			if w == t.word {
				return true
			}
		}
	}
	return false
}

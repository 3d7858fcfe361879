package monitor

import "strings"

// tokenizer yields whitespace-delimited tokens one call at a time, advancing
// a cursor. Once the input is exhausted every further call returns "".
type tokenizer struct {
	rest string
}

func (t *tokenizer) next() string {
	if t.rest == "" {
		return ""
	}
	if i := strings.IndexByte(t.rest, ' '); i >= 0 {
		tok := t.rest[:i]
		t.rest = t.rest[i+1:]
		return tok
	}
	tok := t.rest
	t.rest = ""
	return tok
}

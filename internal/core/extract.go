package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// braceSpan is a single greedy capture from the first '{' to the last '}'.
// It is not a balanced-brace parser: text holding two separate objects, or
// prose with braces around the JSON, yields a span that fails to parse and
// the caller gets the raw text back.
var braceSpan = regexp.MustCompile(`(?s)\{.*\}`)

var errNotObject = errors.New("response is not a JSON object")

// ExtractJSON pulls a JSON object out of free-form model output.  When the
// text contains a brace span only that span is parsed; otherwise the whole
// text is.  Any failure comes back as *ExtractionError carrying text.
func ExtractJSON(text string) (map[string]any, error) {
	candidate := text
	if span := braceSpan.FindString(text); span != "" {
		candidate = span
	}

	data := []byte(candidate)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ExtractionError{Raw: text, Err: err}
	}
	if rest := bytes.TrimSpace(data[dec.InputOffset():]); len(rest) > 0 {
		return nil, &ExtractionError{Raw: text, Err: fmt.Errorf("extra data after JSON value: %.20q", rest)}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ExtractionError{Raw: text, Err: errNotObject}
	}
	return obj, nil
}

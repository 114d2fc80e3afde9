// Package source reads raw document records for an index build and validates
// them at the boundary. A record that fails validation is reported as
// ErrMalformedInput so the builder can skip it without aborting.
package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
)

// Record is one undecoded record and where it came from. Err is set when the
// source could not produce the record's bytes at all.
type Record struct {
	Origin string
	Data   []byte
	Err    error
}

// Document is a validated record. Text may be empty.
type Document struct {
	ID   string
	Text string
	HTML bool
}

type wireRecord struct {
	ID      *string `json:"id"`
	URL     *string `json:"url"`
	Title   *string `json:"title"`
	Text    *string `json:"text"`
	Body    *string `json:"body"`
	Content *string `json:"content"`
	HTML    bool    `json:"html"`
}

var knownFields = []string{"id", "url", "title", "text", "body", "content", "html"}

// Decode parses and validates a record. Two shapes are accepted: an object
// with an id (or url/title) and a text (or body/content) field, and the
// crawler's single pair {"<url>": "<text>"}.
func Decode(r Record) (Document, error) {
	if r.Err != nil {
		return Document{}, r.Err
	}
	data := bytes.TrimSpace(r.Data)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Document{}, apperrors.Malformedf("%s: not a JSON object: %v", r.Origin, err)
	}

	if !hasKnownField(fields) {
		return decodePair(r.Origin, fields)
	}

	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return Document{}, apperrors.Malformedf("%s: %v", r.Origin, err)
	}
	id := firstSet(w.ID, w.URL, w.Title)
	if id == nil {
		return Document{}, apperrors.Malformedf("%s: missing id", r.Origin)
	}
	text := firstSet(w.Text, w.Body, w.Content)
	if text == nil {
		return Document{}, apperrors.Malformedf("%s: missing text", r.Origin)
	}
	doc := Document{ID: *id, Text: *text, HTML: w.HTML}
	if err := Validate(doc); err != nil {
		return Document{}, fmt.Errorf("%s: %w", r.Origin, err)
	}
	return doc, nil
}

func decodePair(origin string, fields map[string]json.RawMessage) (Document, error) {
	if len(fields) != 1 {
		return Document{}, apperrors.Malformedf("%s: record has no id or text field", origin)
	}
	var doc Document
	for k, v := range fields {
		doc.ID = k
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return Document{}, apperrors.Malformedf("%s: missing text for %q", origin, k)
		}
		if err := json.Unmarshal(v, &doc.Text); err != nil {
			return Document{}, apperrors.Malformedf("%s: text for %q is not a string", origin, k)
		}
	}
	if err := Validate(doc); err != nil {
		return Document{}, fmt.Errorf("%s: %w", origin, err)
	}
	return doc, nil
}

// Validate checks the invariants of a document: a non-blank ID.
func Validate(doc Document) error {
	if strings.TrimSpace(doc.ID) == "" {
		return apperrors.Malformedf("blank id")
	}
	return nil
}

func hasKnownField(fields map[string]json.RawMessage) bool {
	for _, k := range knownFields {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

func firstSet(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
)

func collect(t *testing.T, src Source) []Record {
	t.Helper()
	var out []Record
	require.NoError(t, src.Each(context.Background(), func(r Record) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Document
	}{
		{"id and text", `{"id":"d1","text":"the quick fox"}`, Document{ID: "d1", Text: "the quick fox"}},
		{"url and body", `{"url":"https://en.wikipedia.org/wiki/Fox","body":"fox"}`, Document{ID: "https://en.wikipedia.org/wiki/Fox", Text: "fox"}},
		{"title and content", `{"title":"Fox","content":"fox"}`, Document{ID: "Fox", Text: "fox"}},
		{"html flag", `{"id":"p","text":"<p>x</p>","html":true}`, Document{ID: "p", Text: "<p>x</p>", HTML: true}},
		{"empty text", `{"id":"e","text":""}`, Document{ID: "e"}},
		{"crawler pair", `{"https://en.wikipedia.org/wiki/Dog": "lazy dog"}`, Document{ID: "https://en.wikipedia.org/wiki/Dog", Text: "lazy dog"}},
		{"id wins over url", `{"id":"a","url":"b","text":"t"}`, Document{ID: "a", Text: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(Record{Origin: "test:1", Data: []byte(tt.data)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":       `{"id": "d1", "text": `,
		"array":          `["d1","text"]`,
		"missing id":     `{"text":"orphan"}`,
		"blank id":       `{"id":"   ","text":"x"}`,
		"missing text":   `{"id":"d1"}`,
		"null text":      `{"id":"d1","text":null}`,
		"numeric id":     `{"id":7,"text":"x"}`,
		"empty object":   `{}`,
		"pair not text":  `{"https://x": 42}`,
		"pair null text": `{"https://x": null}`,
		"unknown fields": `{"a":"1","b":"2"}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(Record{Origin: "in.jsonl:3", Data: []byte(data)})
			require.ErrorIs(t, err, apperrors.ErrMalformedInput)
			assert.Contains(t, err.Error(), "in.jsonl:3")
		})
	}
}

func TestJSONLSource(t *testing.T) {
	input := `{"id":"d1","text":"one"}

{"id":"d2","text":"two"}
not json
`
	recs := collect(t, NewReader(strings.NewReader(input), "corpus.jsonl", FormatJSONL))
	require.Len(t, recs, 3)
	assert.Equal(t, "corpus.jsonl:1", recs[0].Origin)
	assert.Equal(t, "corpus.jsonl:3", recs[1].Origin)
	assert.Equal(t, "corpus.jsonl:4", recs[2].Origin)
	_, err := Decode(recs[2])
	assert.ErrorIs(t, err, apperrors.ErrMalformedInput)
}

func TestJSONLSourceSkipsOverlongLines(t *testing.T) {
	long := `{"id":"big","text":"` + strings.Repeat("x", 200) + `"}`
	input := `{"id":"d1","text":"one"}` + "\n" + long + "\r\n" + `{"id":"d2","text":"two"}` + "\r\n" + long
	recs := collect(t, NewJSONLReader(strings.NewReader(input), "corpus.jsonl", 64))
	require.Len(t, recs, 4)

	assert.ErrorIs(t, recs[1].Err, apperrors.ErrMalformedInput)
	assert.Nil(t, recs[1].Data)
	_, err := Decode(recs[1])
	assert.ErrorIs(t, err, apperrors.ErrMalformedInput)
	assert.Contains(t, err.Error(), "corpus.jsonl:2")

	doc, err := Decode(recs[2])
	require.NoError(t, err)
	assert.Equal(t, "d2", doc.ID)
	assert.Equal(t, "corpus.jsonl:3", recs[2].Origin)
	assert.ErrorIs(t, recs[3].Err, apperrors.ErrMalformedInput)
}

func TestJSONLSourceLastLineWithoutNewline(t *testing.T) {
	recs := collect(t, NewReader(strings.NewReader(`{"id":"d1","text":"one"}`), "c.jsonl", FormatJSONL))
	require.Len(t, recs, 1)
	doc, err := Decode(recs[0])
	require.NoError(t, err)
	assert.Equal(t, "one", doc.Text)

	assert.Empty(t, collect(t, NewReader(strings.NewReader(""), "c.jsonl", FormatJSONL)))
}

func TestJSONArraySource(t *testing.T) {
	input := `[{"id":"d1","text":"one"}, {"text":"no id"}, {"id":"d3","text":"three"}]`
	recs := collect(t, NewReader(strings.NewReader(input), "corpus.json", FormatJSON))
	require.Len(t, recs, 3)
	assert.Equal(t, "corpus.json[1]", recs[1].Origin)
	doc, err := Decode(recs[2])
	require.NoError(t, err)
	assert.Equal(t, "d3", doc.ID)
}

func TestJSONArraySourceRejectsNonArray(t *testing.T) {
	src := NewReader(strings.NewReader(`{"id":"d1"}`), "corpus.json", FormatJSON)
	err := src.Each(context.Background(), func(Record) error { return nil })
	assert.Error(t, err)
}

func TestEachStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	src := NewReader(strings.NewReader("{\"id\":\"a\",\"text\":\"\"}\n{\"id\":\"b\",\"text\":\"\"}\n"), "x", FormatJSONL)
	n := 0
	err := src.Each(context.Background(), func(Record) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestEachHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewReader(strings.NewReader("{\"id\":\"a\",\"text\":\"\"}\n"), "x", FormatJSONL)
	err := src.Each(ctx, func(Record) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"https://a": "alpha"}`+"\n"), 0o644))

	src, err := Open(path, FormatJSONL)
	require.NoError(t, err)
	recs := collect(t, src)
	require.Len(t, recs, 1)
	assert.Equal(t, path+":1", recs[0].Origin)

	_, err = Open(path, "xml")
	assert.Error(t, err)

	missing, err := Open(filepath.Join(t.TempDir(), "nope.jsonl"), FormatJSONL)
	require.NoError(t, err)
	assert.Error(t, missing.Each(context.Background(), func(Record) error { return nil }))
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Indexer.Format = FormatKafka
	src, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "kafka:crawler.documents", src.Name())

	cfg.Indexer.Format = FormatJSON
	cfg.Indexer.Input = "corpus.json"
	src, err = FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "corpus.json", src.Name())
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/tokenizer"
)

func writeFoxIndex(t *testing.T) string {
	t.Helper()
	tok := tokenizer.NewSnowball()
	acc := index.NewAccumulator()
	for id, text := range map[string]string{
		"d1": "The quick brown fox",
		"d2": "The lazy dog",
		"d3": "Quick brown dogs",
	} {
		tokens := tok.Tokenize(text)
		require.NoError(t, acc.Add(id, tokenizer.Frequencies(tokens), len(tokens)))
	}
	idx, err := acc.Freeze(index.Meta{Analyzer: tok.Name()})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "catalog.cidx")
	_, err = segment.NewWriter(path).Write(context.Background(), idx)
	require.NoError(t, err)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQueryCommand(t *testing.T) {
	path := writeFoxIndex(t)
	out, err := run(t, "--index", path, "query", "--json", "quick", "fox")
	require.NoError(t, err)

	var res struct {
		TotalHits int `json:"total_hits"`
		Results   []struct {
			DocID string `json:"doc_id"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "d1", res.Results[0].DocID)

	out, err = run(t, "--index", path, "query", "--k", "1", "brown")
	require.NoError(t, err)
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "1 of 2 matching documents")

	out, err = run(t, "--index", path, "query", "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, "no matching documents")
}

func TestQueryRequiresIndex(t *testing.T) {
	_, err := run(t, "--index", filepath.Join(t.TempDir(), "missing.cidx"), "query", "fox")
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	path := writeFoxIndex(t)
	out, err := run(t, "--index", path, "inspect", "--json")
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, uint32(3), report.Documents)
	assert.Equal(t, uint32(5), report.Terms)
	assert.Equal(t, "snowball", report.Analyzer)
	assert.Equal(t, "raw", report.TFScheme)
	assert.Len(t, report.Checksum, 8)
	assert.Nil(t, report.Manifest)
}

func TestExportCommand(t *testing.T) {
	path := writeFoxIndex(t)
	dest := filepath.Join(t.TempDir(), "index.json")
	_, err := run(t, "--index", path, "export", "-o", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var weights map[string]map[string]float64
	require.NoError(t, json.Unmarshal(data, &weights))
	assert.Len(t, weights, 5)
	assert.Len(t, weights["dog"], 2)
	assert.Contains(t, weights["fox"], "d1")
}

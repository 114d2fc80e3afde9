package ranker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
)

var foxDocs = map[string]string{
	"d1": "The quick brown fox",
	"d2": "The lazy dog",
	"d3": "Quick brown dogs",
}

func build(t testing.TB, docs map[string]string, scheme index.TFScheme) *index.Index {
	t.Helper()
	var sb strings.Builder
	for id, text := range docs {
		fmt.Fprintf(&sb, "{\"id\":%q,\"text\":%q}\n", id, text)
	}
	b, err := indexer.NewBuilder(indexer.Options{Workers: 2, MaxSkipped: -1, TFScheme: scheme}, nil)
	require.NoError(t, err)
	idx, _, err := b.Build(context.Background(), source.NewReader(strings.NewReader(sb.String()), "test", source.FormatJSONL))
	require.NoError(t, err)
	return idx
}

func rank(t *testing.T, idx *index.Index, query string, limit int) []ScoredDoc {
	t.Helper()
	res, err := Rank(context.Background(), idx, parser.Parse(tokenizer.NewSnowball(), query), limit)
	require.NoError(t, err)
	return res
}

func ids(docs []ScoredDoc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.DocID
	}
	return out
}

func TestFoxScenario(t *testing.T) {
	idx := build(t, foxDocs, index.TFRaw)
	res := rank(t, idx, "quick fox", 10)
	require.Equal(t, []string{"d1", "d3"}, ids(res))
	assert.Greater(t, res[0].Score, res[1].Score)
	assert.Greater(t, res[1].Score, 0.0)
}

func TestZeroMatchQuery(t *testing.T) {
	idx := build(t, foxDocs, index.TFRaw)
	assert.Empty(t, rank(t, idx, "zebra giraffe", 10))
}

func TestEmptyAndStopWordQueries(t *testing.T) {
	idx := build(t, foxDocs, index.TFRaw)
	for _, q := range []string{"", "   ", "the and of", "???"} {
		res := rank(t, idx, q, 10)
		assert.NotNil(t, res, q)
		assert.Empty(t, res, q)
	}
}

func TestUnknownTermsAreIgnored(t *testing.T) {
	idx := build(t, foxDocs, index.TFRaw)
	withUnknown := rank(t, idx, "fox zebra", 10)
	alone := rank(t, idx, "fox", 10)
	assert.Equal(t, alone, withUnknown)
}

func TestSelfQueryRanksFirst(t *testing.T) {
	for _, scheme := range []index.TFScheme{index.TFRaw, index.TFLog} {
		idx := build(t, foxDocs, scheme)
		for id, text := range foxDocs {
			res := rank(t, idx, text, 0)
			require.NotEmpty(t, res, id)
			assert.Equal(t, id, res[0].DocID, "%s/%s", scheme, id)
			if scheme == index.TFRaw {
				assert.InDelta(t, 1.0, res[0].Score, 1e-9, id)
			}
		}
	}
}

func TestScoresBoundedAndOrdered(t *testing.T) {
	docs := map[string]string{}
	for i := 0; i < 60; i++ {
		docs[fmt.Sprintf("doc-%02d", i)] = fmt.Sprintf("search engine ranking %s relevance %s",
			strings.Repeat("index ", i%5), strings.Repeat("cosine ", i%3))
	}
	idx := build(t, docs, index.TFRaw)
	res := rank(t, idx, "cosine index ranking", 0)
	require.NotEmpty(t, res)
	for i, d := range res {
		assert.GreaterOrEqual(t, d.Score, 0.0)
		assert.LessOrEqual(t, d.Score, 1.0)
		if i > 0 {
			prev := res[i-1]
			assert.True(t, prev.Score > d.Score || (prev.Score == d.Score && prev.DocID < d.DocID),
				"out of order at %d: %+v then %+v", i, prev, d)
		}
	}
	assert.Equal(t, res[:7], rank(t, idx, "cosine index ranking", 7))
}

func TestEmptyDocumentNeverMatches(t *testing.T) {
	docs := map[string]string{"blank": "", "stops": "the of and", "real": "fox"}
	idx := build(t, docs, index.TFRaw)
	assert.Equal(t, []string{"real"}, ids(rank(t, idx, "fox the", 10)))
}

func TestRoundTripScoresMatch(t *testing.T) {
	idx := build(t, foxDocs, index.TFLog)
	data, err := segment.Encode(idx)
	require.NoError(t, err)
	loaded, err := segment.Decode(data)
	require.NoError(t, err)

	for _, q := range []string{"quick fox", "lazy dogs", "brown", "quick quick brown dog"} {
		want := rank(t, idx, q, 0)
		got := rank(t, loaded, q, 0)
		require.Equal(t, ids(want), ids(got), q)
		for i := range want {
			assert.InDelta(t, want[i].Score, got[i].Score, 1e-9, q)
		}
	}
}

func TestRankNilIndex(t *testing.T) {
	_, err := Rank(context.Background(), nil, parser.Parse(tokenizer.NewSnowball(), "fox"), 10)
	assert.ErrorIs(t, err, apperrors.ErrIndexUnavailable)
}

func TestRankCancelled(t *testing.T) {
	idx := build(t, foxDocs, index.TFRaw)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Rank(ctx, idx, parser.Parse(tokenizer.NewSnowball(), "brown"), 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCosineDegenerate(t *testing.T) {
	assert.Zero(t, cosine(1, 0, 1))
	assert.Zero(t, cosine(1, 1, 0))
	assert.Equal(t, 1.0, cosine(1.0000001, 1, 1))
	assert.Zero(t, cosine(-1, 1, 1))
}

func TestConcurrentQueries(t *testing.T) {
	idx := build(t, foxDocs, index.TFRaw)
	want := rank(t, idx, "quick brown fox", 0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := Rank(context.Background(), idx, parser.Parse(tokenizer.NewSnowball(), "quick brown fox"), 0)
			assert.NoError(t, err)
			assert.Equal(t, want, res)
		}()
	}
	wg.Wait()
}

func BenchmarkRank(b *testing.B) {
	docs := make(map[string]string, 2000)
	for i := 0; i < 2000; i++ {
		docs[fmt.Sprintf("doc-%04d", i)] = fmt.Sprintf("page %d on search ranking term weights and inverted index number %d", i%97, i%31)
	}
	idx := build(b, docs, index.TFRaw)
	plan := parser.Parse(tokenizer.NewSnowball(), "search ranking index weights")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Rank(context.Background(), idx, plan, 10); err != nil {
			b.Fatal(err)
		}
	}
}

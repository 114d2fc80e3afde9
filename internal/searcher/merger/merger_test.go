package merger

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopKOrdersByScoreThenDocID(t *testing.T) {
	docs := []ScoredDoc{
		{DocID: "c", Score: 0.5},
		{DocID: "a", Score: 0.9},
		{DocID: "b", Score: 0.5},
		{DocID: "d", Score: 0.1},
	}
	got := TopK(docs, 3)
	assert.Equal(t, []ScoredDoc{
		{DocID: "a", Score: 0.9},
		{DocID: "b", Score: 0.5},
		{DocID: "c", Score: 0.5},
	}, got)
	assert.Equal(t, "c", docs[0].DocID, "input must not be reordered")
}

func TestTopKUnbounded(t *testing.T) {
	docs := []ScoredDoc{{DocID: "x", Score: 0.2}, {DocID: "y", Score: 0.7}}
	assert.Equal(t, []ScoredDoc{{DocID: "y", Score: 0.7}, {DocID: "x", Score: 0.2}}, TopK(docs, 0))
	assert.Len(t, TopK(docs, -1), 2)
	assert.Len(t, TopK(docs, 10), 2)
	assert.Empty(t, TopK(nil, 5))
}

func TestTopKMatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	docs := make([]ScoredDoc, 500)
	for i := range docs {
		docs[i] = ScoredDoc{DocID: fmt.Sprintf("doc-%03d", i), Score: float64(rng.Intn(20)) / 20}
	}
	full := TopK(docs, 0)
	for _, k := range []int{1, 5, 17, 100, 499} {
		assert.Equal(t, full[:k], TopK(docs, k), "k=%d", k)
	}
}

func BenchmarkTopK(b *testing.B) {
	docs := make([]ScoredDoc, 10000)
	for i := range docs {
		docs[i] = ScoredDoc{DocID: fmt.Sprintf("doc-%d", i), Score: rand.Float64()}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = TopK(docs, 10)
	}
}

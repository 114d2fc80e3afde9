// Package merger selects the best-scoring documents from a candidate set
// using a bounded min-heap, so a top-k query over many candidates costs
// O(n log k) instead of a full sort.
package merger

import (
	"container/heap"
	"sort"
)

// ScoredDoc is a document and its relevance to a query.
type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Before reports whether a ranks ahead of b: higher score first, then lower
// DocID, which makes the order total and deterministic.
func Before(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// TopK returns the first limit documents of docs in ranking order. A limit
// of zero or less returns every document, sorted. docs is not modified.
func TopK(docs []ScoredDoc, limit int) []ScoredDoc {
	if limit <= 0 || limit >= len(docs) {
		out := make([]ScoredDoc, len(docs))
		copy(out, docs)
		sort.Slice(out, func(i, j int) bool { return Before(out[i], out[j]) })
		return out
	}
	h := make(scoredDocHeap, 0, limit+1)
	for _, doc := range docs {
		if h.Len() < limit {
			heap.Push(&h, doc)
			continue
		}
		if Before(doc, h[0]) {
			h[0] = doc
			heap.Fix(&h, 0)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

// scoredDocHeap keeps the worst-ranked document at the root.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return Before(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

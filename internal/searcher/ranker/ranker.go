// Package ranker scores documents against a parsed query by the cosine of
// their tf-idf vectors. Scoring only reads the index, so any number of
// queries may run at once.
package ranker

import (
	"context"
	"math"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
)

type ScoredDoc = merger.ScoredDoc

// QueryVector is the weighted form of a query against one index.
type QueryVector struct {
	Terms   []string
	Weights map[string]float64
	Norm    float64
}

// Vectorize weights each query term known to idx by its query count times
// its idf. Terms outside the vocabulary are dropped.
func Vectorize(idx *index.Index, plan *parser.QueryPlan) QueryVector {
	qv := QueryVector{Weights: make(map[string]float64, len(plan.Terms))}
	var sumSquares float64
	for _, term := range plan.Terms {
		if idx.DocFreq(term) == 0 {
			continue
		}
		w := float64(plan.Freq[term]) * idx.IDF(term)
		if w <= 0 {
			continue
		}
		qv.Terms = append(qv.Terms, term)
		qv.Weights[term] = w
		sumSquares += w * w
	}
	qv.Norm = math.Sqrt(sumSquares)
	return qv
}

// Score returns every document sharing at least one term with the query,
// unordered, with its cosine similarity in [0, 1].
func Score(ctx context.Context, idx *index.Index, plan *parser.QueryPlan) ([]ScoredDoc, error) {
	if idx == nil {
		return nil, apperrors.ErrIndexUnavailable
	}
	qv := Vectorize(idx, plan)
	if len(qv.Terms) == 0 || qv.Norm == 0 {
		return []ScoredDoc{}, nil
	}

	dots := make(map[string]float64)
	order := make([]string, 0)
	for _, term := range qv.Terms {
		qw := qv.Weights[term]
		for _, p := range idx.Postings(term) {
			if _, seen := dots[p.DocID]; !seen {
				order = append(order, p.DocID)
			}
			dots[p.DocID] += qw * p.Weight
		}
	}

	results := make([]ScoredDoc, 0, len(order))
	for _, docID := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, _ := idx.Doc(docID)
		results = append(results, ScoredDoc{
			DocID: docID,
			Score: cosine(dots[docID], qv.Norm, doc.Norm),
		})
	}
	return results, nil
}

// Rank scores the query and returns the best limit documents, highest score
// first with ties broken by DocID. limit <= 0 returns all matches. A query
// with no known terms yields an empty list, not an error.
func Rank(ctx context.Context, idx *index.Index, plan *parser.QueryPlan, limit int) ([]ScoredDoc, error) {
	scored, err := Score(ctx, idx, plan)
	if err != nil {
		return nil, err
	}
	return merger.TopK(scored, limit), nil
}

func cosine(dot, queryNorm, docNorm float64) float64 {
	if queryNorm == 0 || docNorm == 0 {
		return 0
	}
	s := dot / (queryNorm * docNorm)
	switch {
	case math.IsNaN(s) || s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

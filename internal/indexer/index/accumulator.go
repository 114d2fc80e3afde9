package index

import (
	"math"
	"sort"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
)

// Accumulator collects per-document term frequencies during a build. Add is
// safe for concurrent use; Freeze turns the collected counts into an
// immutable Index.
type Accumulator struct {
	mu      sync.RWMutex
	freqs   map[string]map[string]int
	lengths map[string]int
	size    int64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		freqs:   make(map[string]map[string]int),
		lengths: make(map[string]int),
	}
}

// Add records one document. freqs maps each normalized term to its count in
// the document and length is the total number of kept tokens. A document
// with no terms is still counted toward the corpus size. Adding the same
// DocID twice is an error.
func (a *Accumulator) Add(docID string, freqs map[string]int, length int) error {
	if docID == "" {
		return apperrors.Malformedf("document with empty id")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.lengths[docID]; dup {
		return apperrors.Malformedf("duplicate document %q", docID)
	}
	a.lengths[docID] = length
	for term, n := range freqs {
		if n <= 0 {
			continue
		}
		docs, ok := a.freqs[term]
		if !ok {
			docs = make(map[string]int)
			a.freqs[term] = docs
		}
		docs[docID] = n
		a.size += int64(len(term) + len(docID) + 16)
	}
	return nil
}

// Has reports whether docID has already been added.
func (a *Accumulator) Has(docID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.lengths[docID]
	return ok
}

// Size is a rough estimate of the bytes held by the accumulator.
func (a *Accumulator) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

func (a *Accumulator) DocCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.lengths)
}

func (a *Accumulator) TermCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.freqs)
}

// Freeze computes idf, posting weights, and document norms from the counts
// collected so far. Terms and documents are visited in lexical order, so the
// same input always yields bit-identical weights and norms regardless of the
// order documents were added in.
func (a *Accumulator) Freeze(meta Meta) (*Index, error) {
	if meta.TFScheme == "" {
		meta.TFScheme = TFRaw
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := len(a.lengths)
	terms := make([]string, 0, len(a.freqs))
	for term := range a.freqs {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	sumSquares := make(map[string]float64, n)
	entries := make([]TermEntry, 0, len(terms))
	for _, term := range terms {
		docs := a.freqs[term]
		ids := make([]string, 0, len(docs))
		for id := range docs {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		idf := IDF(n, len(ids))
		postings := make(PostingList, len(ids))
		for i, id := range ids {
			f := docs[id]
			w := meta.TFScheme.TF(f) * idf
			postings[i] = Posting{DocID: id, Frequency: f, Weight: w}
			sumSquares[id] += w * w
		}
		entries = append(entries, TermEntry{
			Term:     term,
			DocFreq:  len(ids),
			IDF:      idf,
			Postings: postings,
		})
	}

	docs := make([]DocStats, 0, n)
	for id, length := range a.lengths {
		docs = append(docs, DocStats{
			DocID:  id,
			Length: length,
			Norm:   math.Sqrt(sumSquares[id]),
		})
	}
	return Assemble(meta, entries, docs)
}

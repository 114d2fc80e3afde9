// Package index holds the inverted index: term-level postings with tf-idf
// weights, per-document norms, and the corpus statistics needed to score a
// query. An Index is immutable once assembled, so any number of goroutines
// may read it without locking.
package index

import (
	"math"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
)

// Index is an immutable inverted index. Slices returned by its accessors are
// shared with the index and must not be modified.
type Index struct {
	meta      Meta
	terms     map[string]*TermEntry
	termOrder []string
	docs      map[string]DocStats
	docOrder  []DocStats
	postings  int
}

// Assemble validates the parts of an index and returns it. entries and docs
// may be in any order; docs must list every document in the corpus, including
// documents that produced no terms.
func Assemble(meta Meta, entries []TermEntry, docs []DocStats) (*Index, error) {
	idx := &Index{
		meta:      meta,
		terms:     make(map[string]*TermEntry, len(entries)),
		termOrder: make([]string, 0, len(entries)),
		docs:      make(map[string]DocStats, len(docs)),
		docOrder:  make([]DocStats, 0, len(docs)),
	}
	for _, d := range docs {
		if d.DocID == "" {
			return nil, apperrors.Malformedf("document with empty id")
		}
		if _, dup := idx.docs[d.DocID]; dup {
			return nil, apperrors.Malformedf("duplicate document %q", d.DocID)
		}
		if d.Length < 0 || !validWeight(d.Norm) {
			return nil, apperrors.Malformedf("document %q has invalid stats (len=%d norm=%v)", d.DocID, d.Length, d.Norm)
		}
		idx.docs[d.DocID] = d
		idx.docOrder = append(idx.docOrder, d)
	}
	sort.Slice(idx.docOrder, func(i, j int) bool {
		return idx.docOrder[i].DocID < idx.docOrder[j].DocID
	})

	n := len(docs)
	for i := range entries {
		e := entries[i]
		if e.Term == "" {
			return nil, apperrors.Malformedf("empty term")
		}
		if _, dup := idx.terms[e.Term]; dup {
			return nil, apperrors.Malformedf("duplicate term %q", e.Term)
		}
		if e.DocFreq != len(e.Postings) || e.DocFreq < 1 || e.DocFreq > n {
			return nil, apperrors.Malformedf("term %q: document frequency %d does not match %d postings in %d documents",
				e.Term, e.DocFreq, len(e.Postings), n)
		}
		if !validWeight(e.IDF) {
			return nil, apperrors.Malformedf("term %q: invalid idf %v", e.Term, e.IDF)
		}
		for j, p := range e.Postings {
			if _, ok := idx.docs[p.DocID]; !ok {
				return nil, apperrors.Malformedf("term %q: posting for unknown document %q", e.Term, p.DocID)
			}
			if j > 0 && e.Postings[j-1].DocID >= p.DocID {
				return nil, apperrors.Malformedf("term %q: postings not strictly ordered by document", e.Term)
			}
			if p.Frequency < 1 || !validWeight(p.Weight) {
				return nil, apperrors.Malformedf("term %q: invalid posting for %q", e.Term, p.DocID)
			}
		}
		idx.terms[e.Term] = &e
		idx.termOrder = append(idx.termOrder, e.Term)
		idx.postings += len(e.Postings)
	}
	sort.Strings(idx.termOrder)
	return idx, nil
}

func validWeight(w float64) bool {
	return w >= 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

func (x *Index) Meta() Meta { return x.meta }

// WithChecksum returns a copy of the index that reports the given file
// checksum. The underlying postings are shared.
func (x *Index) WithChecksum(sum uint32) *Index {
	cp := *x
	cp.meta.Checksum = sum
	return &cp
}

// DocCount is N, the number of documents in the corpus.
func (x *Index) DocCount() int { return len(x.docOrder) }

func (x *Index) TermCount() int { return len(x.termOrder) }

func (x *Index) PostingCount() int { return x.postings }

// Terms returns the vocabulary in lexical order.
func (x *Index) Terms() []string { return x.termOrder }

// Entry returns the term's entry and whether the term is in the vocabulary.
func (x *Index) Entry(term string) (TermEntry, bool) {
	e, ok := x.terms[term]
	if !ok {
		return TermEntry{}, false
	}
	return *e, true
}

// Postings returns the postings for term ordered by DocID, or nil.
func (x *Index) Postings(term string) PostingList {
	if e, ok := x.terms[term]; ok {
		return e.Postings
	}
	return nil
}

// DocFreq returns the number of documents containing term.
func (x *Index) DocFreq(term string) int {
	if e, ok := x.terms[term]; ok {
		return e.DocFreq
	}
	return 0
}

// IDF returns the stored idf for term, or 0 for a term outside the vocabulary.
func (x *Index) IDF(term string) float64 {
	if e, ok := x.terms[term]; ok {
		return e.IDF
	}
	return 0
}

func (x *Index) Doc(docID string) (DocStats, bool) {
	d, ok := x.docs[docID]
	return d, ok
}

// Docs returns per-document stats ordered by DocID.
func (x *Index) Docs() []DocStats { return x.docOrder }

// Package parser turns a free-text query into the normalized term vector the
// ranker scores. Queries are a bag of independent terms combined with OR;
// words such as "and", "or" and "not" are ordinary stop-words.
package parser

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/tokenizer"
)

type QueryPlan struct {
	RawQuery string
	// Terms holds each distinct normalized term once, in lexical order.
	Terms []string
	// Freq counts occurrences of each term in the query.
	Freq map[string]int
}

// Parse normalizes query with tok, which must be the tokenizer the index was
// built with.
func Parse(tok tokenizer.Tokenizer, query string) *QueryPlan {
	plan := &QueryPlan{
		RawQuery: query,
		Terms:    make([]string, 0),
		Freq:     make(map[string]int),
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	plan.Freq = tokenizer.Frequencies(tok.Tokenize(query))
	for term := range plan.Freq {
		plan.Terms = append(plan.Terms, term)
	}
	sort.Strings(plan.Terms)
	return plan
}

// Empty reports whether normalization left no terms.
func (p *QueryPlan) Empty() bool { return len(p.Terms) == 0 }

// Key is a canonical form of the term vector: two queries with the same key
// score identically against any index.
func (p *QueryPlan) Key() string {
	var b strings.Builder
	for i, term := range p.Terms {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(term)
		b.WriteByte('^')
		b.WriteString(strconv.Itoa(p.Freq[term]))
	}
	return b.String()
}

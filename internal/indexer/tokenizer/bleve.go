package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/registry"
)

// bleveTokenizer delegates to Bleve's English analyzer: unicode word
// segmentation, possessive and lower-case filters, the Bleve English stop
// list, and the Porter stemmer.
type bleveTokenizer struct {
	analyzer analysis.Analyzer
}

// NewBleve builds a tokenizer backed by Bleve's "en" analyzer.
func NewBleve() (Tokenizer, error) {
	cache := registry.NewCache()
	analyzer, err := cache.AnalyzerNamed(en.AnalyzerName)
	if err != nil {
		return nil, fmt.Errorf("loading bleve analyzer %q: %w", en.AnalyzerName, err)
	}
	return &bleveTokenizer{analyzer: analyzer}, nil
}

func (b *bleveTokenizer) Name() string { return Bleve }

func (b *bleveTokenizer) Tokenize(text string) []Token {
	stream := b.analyzer.Analyze([]byte(text))
	tokens := make([]Token, 0, len(stream))
	pos := 0
	for _, tok := range stream {
		term := string(tok.Term)
		if utf8.RuneCountInString(term) < 2 || IsStopWord(term) {
			continue
		}
		tokens = append(tokens, Token{Term: term, Position: pos})
		pos++
	}
	return tokens
}

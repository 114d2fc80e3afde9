// Package tokenizer turns raw page text into normalized terms. Every
// implementation lower-cases input, splits on non-alphanumeric boundaries,
// drops stop-words and single characters, and reduces each word to a stem.
//
// The index file records the name of the tokenizer it was built with, and the
// searcher rebuilds the same one with New; a query term that normalizes
// differently from its indexed form can never match.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
)

// Names accepted by New.
const (
	Snowball = "snowball"
	Light    = "light"
	Bleve    = "bleve"
)

// Token represents a single normalised term and its position in the
// filtered term sequence.
type Token struct {
	Term     string
	Position int
}

// Tokenizer converts text into an ordered, deterministic sequence of terms.
// Implementations are safe for concurrent use.
type Tokenizer interface {
	Name() string
	Tokenize(text string) []Token
}

// New returns the tokenizer registered under name. An empty name selects the
// snowball tokenizer.
func New(name string) (Tokenizer, error) {
	switch name {
	case "", Snowball:
		return NewSnowball(), nil
	case Light:
		return NewLight(), nil
	case Bleve:
		return NewBleve()
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownAnalyzer, name)
	}
}

// Frequencies counts how many times each term occurs in tokens.
func Frequencies(tokens []Token) map[string]int {
	freqs := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freqs[t.Term]++
	}
	return freqs
}

type stemFunc func(word string) string

// pipeline is the segment / fold / stop / stem chain shared by the snowball
// and light tokenizers.
type pipeline struct {
	name string
	stem stemFunc
}

func (p *pipeline) Name() string { return p.name }

func (p *pipeline) Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words)/2)
	pos := 0
	for _, word := range words {
		if !keep(word) {
			continue
		}
		stemmed := p.stem(word)
		if !keep(stemmed) {
			continue
		}
		tokens = append(tokens, Token{
			Term:     stemmed,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// keep reports whether a lower-cased word survives stop-word filtering.
func keep(word string) bool {
	if utf8.RuneCountInString(word) < 2 {
		return false
	}
	_, isStop := stopWords[word]
	return !isStop
}

package tokenizer

import "github.com/kljensen/snowball/english"

// NewSnowball returns the default tokenizer, which stems with the English
// Snowball algorithm.
func NewSnowball() Tokenizer {
	return &pipeline{
		name: Snowball,
		stem: func(word string) string {
			return english.Stem(word, false)
		},
	}
}

package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
)

func terms(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Term
	}
	return out
}

func allTokenizers(t *testing.T) []Tokenizer {
	t.Helper()
	var out []Tokenizer
	for _, name := range []string{Snowball, Light, Bleve} {
		tok, err := New(name)
		require.NoError(t, err, name)
		out = append(out, tok)
	}
	return out
}

func TestNewUnknownAnalyzer(t *testing.T) {
	_, err := New("klingon")
	require.ErrorIs(t, err, apperrors.ErrUnknownAnalyzer)
}

func TestNewDefaultsToSnowball(t *testing.T) {
	tok, err := New("")
	require.NoError(t, err)
	assert.Equal(t, Snowball, tok.Name())
}

func TestSnowballTokenize(t *testing.T) {
	tok := NewSnowball()
	got := terms(tok.Tokenize("The Quick foxes were RUNNING, quickly!"))
	assert.Equal(t, []string{"quick", "fox", "run", "quick"}, got)
}

func TestStopWordsAndSingleCharactersDropped(t *testing.T) {
	for _, tok := range allTokenizers(t) {
		t.Run(tok.Name(), func(t *testing.T) {
			assert.Empty(t, tok.Tokenize("the a of and x y z ! ?? -- ..."))
		})
	}
}

func TestEmptyInput(t *testing.T) {
	for _, tok := range allTokenizers(t) {
		t.Run(tok.Name(), func(t *testing.T) {
			assert.Empty(t, tok.Tokenize(""))
			assert.Empty(t, tok.Tokenize("   \n\t "))
		})
	}
}

func TestDeterministic(t *testing.T) {
	text := strings.Repeat("Distributed search engines rank documents by relevance. ", 20)
	for _, tok := range allTokenizers(t) {
		t.Run(tok.Name(), func(t *testing.T) {
			first := tok.Tokenize(text)
			for i := 0; i < 5; i++ {
				assert.Equal(t, first, tok.Tokenize(text))
			}
		})
	}
}

func TestCaseInsensitiveEquality(t *testing.T) {
	for _, tok := range allTokenizers(t) {
		t.Run(tok.Name(), func(t *testing.T) {
			assert.Equal(t, terms(tok.Tokenize("Indexing Documents")), terms(tok.Tokenize("indexing documents")))
			assert.Equal(t, terms(tok.Tokenize("INDEXING DOCUMENTS")), terms(tok.Tokenize("indexing documents")))
		})
	}
}

func TestPositionsAreSequential(t *testing.T) {
	tokens := NewSnowball().Tokenize("the cat sat on the mat with another cat")
	for i, tk := range tokens {
		assert.Equal(t, i, tk.Position)
	}
}

func TestSegmentationOnPunctuation(t *testing.T) {
	got := terms(NewSnowball().Tokenize("https://en.wikipedia.org/wiki/Search_engine"))
	assert.Contains(t, got, "wikipedia")
	assert.Contains(t, got, "search")
	assert.Contains(t, got, "engin")
}

func TestLightStem(t *testing.T) {
	tests := map[string]string{
		"indexing":    "index",
		"searches":    "search",
		"relational":  "relate",
		"happiness":   "happy",
		"class":       "class",
		"cats":        "cat",
		"sing":        "sing",
		"libraries":   "library",
		"attachments": "attachment",
	}
	for in, want := range tests {
		assert.Equal(t, want, lightStem(in), in)
	}
}

func TestBleveTokenize(t *testing.T) {
	tok, err := NewBleve()
	require.NoError(t, err)
	got := terms(tok.Tokenize("The foxes are running"))
	assert.Equal(t, []string{"fox", "run"}, got)
}

func TestFrequencies(t *testing.T) {
	freqs := Frequencies(NewSnowball().Tokenize("fox fox dog foxes"))
	assert.Equal(t, map[string]int{"fox": 3, "dog": 1}, freqs)
}

func TestConcurrentUse(t *testing.T) {
	for _, tok := range allTokenizers(t) {
		tok := tok
		t.Run(tok.Name(), func(t *testing.T) {
			t.Parallel()
			want := tok.Tokenize("concurrent tokenization must be safe")
			done := make(chan []Token, 8)
			for i := 0; i < 8; i++ {
				go func() { done <- tok.Tokenize("concurrent tokenization must be safe") }()
			}
			for i := 0; i < 8; i++ {
				assert.Equal(t, want, <-done)
			}
		})
	}
}

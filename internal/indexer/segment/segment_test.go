package segment

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
)

func sampleIndex(t *testing.T) *index.Index {
	t.Helper()
	acc := index.NewAccumulator()
	require.NoError(t, acc.Add("https://en.wikipedia.org/wiki/Fox", map[string]int{"quick": 1, "brown": 2, "fox": 3}, 6))
	require.NoError(t, acc.Add("https://en.wikipedia.org/wiki/Dog", map[string]int{"lazi": 1, "dog": 1}, 2))
	require.NoError(t, acc.Add("d3", map[string]int{"quick": 1, "brown": 1, "dog": 4}, 6))
	require.NoError(t, acc.Add("empty", nil, 0))
	idx, err := acc.Freeze(index.Meta{Analyzer: "snowball", TFScheme: index.TFLog})
	require.NoError(t, err)
	return idx
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	idx := sampleIndex(t)
	data, err := Encode(idx)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, idx.Terms(), got.Terms())
	assert.Equal(t, idx.Docs(), got.Docs())
	assert.Equal(t, idx.DocCount(), got.DocCount())
	assert.Equal(t, "snowball", got.Meta().Analyzer)
	assert.Equal(t, index.TFLog, got.Meta().TFScheme)
	assert.Equal(t, crc32.ChecksumIEEE(data), got.Meta().Checksum)
	for _, term := range idx.Terms() {
		want, _ := idx.Entry(term)
		have, ok := got.Entry(term)
		require.True(t, ok, term)
		assert.Equal(t, want.DocFreq, have.DocFreq, term)
		assert.Equal(t, want.IDF, have.IDF, term)
		assert.Equal(t, want.Postings, have.Postings, term)
	}
}

func TestEncodeIsByteReproducible(t *testing.T) {
	a, err := Encode(sampleIndex(t))
	require.NoError(t, err)
	b, err := Encode(sampleIndex(t))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeEmptyIndex(t *testing.T) {
	idx, err := index.NewAccumulator().Freeze(index.Meta{Analyzer: "light"})
	require.NoError(t, err)
	data, err := Encode(idx)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.Zero(t, got.DocCount())
	assert.Empty(t, got.Terms())
}

func TestWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.cidx")
	idx := sampleIndex(t)

	sum, err := NewWriter(path).Write(context.Background(), idx)
	require.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sum, got.Meta().Checksum)
	assert.Equal(t, idx.Terms(), got.Terms())

	info, err := Stat(path)
	require.NoError(t, err)
	assert.Equal(t, sum, info.Checksum)
	assert.Equal(t, uint32(4), info.Header.DocCount)
	assert.Equal(t, uint32(5), info.Header.TermCount)
	assert.Equal(t, "snowball", info.Analyzer)
}

func TestConcurrentWritersSerialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cidx")
	idx := sampleIndex(t)
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := NewWriter(path).Write(context.Background(), idx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	_, err := Load(path)
	assert.NoError(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cidx"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrMalformedInput)
}

func TestDecodeRejectsCorruption(t *testing.T) {
	good, err := Encode(sampleIndex(t))
	require.NoError(t, err)

	mutate := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return f(b)
	}
	cases := map[string][]byte{
		"empty":     {},
		"truncated": good[:len(good)-5],
		"bad magic": mutate(func(b []byte) []byte { b[0] ^= 0xff; return b }),
		"bad version": mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[4:8], FormatVersion+1)
			return b
		}),
		"flipped posting byte": mutate(func(b []byte) []byte { b[HeaderSize+3] ^= 0x01; return b }),
		"flipped meta byte":    mutate(func(b []byte) []byte { b[len(b)-FooterSize-2] ^= 0x01; return b }),
		"bad footer magic":     mutate(func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }),
		"term count": mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[8:12], 99)
			return b
		}),
		"trailing garbage": mutate(func(b []byte) []byte { return append(b, 0) }),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			assert.ErrorIs(t, err, apperrors.ErrMalformedInput)
		})
	}
}

func TestExport(t *testing.T) {
	idx := sampleIndex(t)
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, idx))

	var got map[string]map[string]float64
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got, idx.TermCount())
	for _, term := range idx.Terms() {
		postings := idx.Postings(term)
		require.Len(t, got[term], len(postings), term)
		for _, p := range postings {
			assert.Equal(t, p.Weight, got[term][p.DocID], "%s/%s", term, p.DocID)
		}
	}
}

func TestExportEmptyIndex(t *testing.T) {
	idx, err := index.NewAccumulator().Freeze(index.Meta{Analyzer: "light"})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, idx))
	assert.Equal(t, "{}\n", buf.String())
}

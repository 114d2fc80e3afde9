package segment

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/index"
)

// MagicBytes identifies a .cidx index file ("CIDX").
const (
	MagicBytes    uint32 = 0x43494458
	FormatVersion uint32 = 1
	HeaderSize    int    = 96
	FooterSize    int    = 16
)

// Header is the fixed 96-byte header at the start of every index file. The
// three blocks follow it back to back: postings, dictionary, meta.
type Header struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	PostOffset int64
	PostSize   int64
	DictOffset int64
	DictSize   int64
	MetaOffset int64
	MetaSize   int64
}

// Footer holds a CRC32 (IEEE) of each block followed by the magic number.
type Footer struct {
	PostCRC uint32
	DictCRC uint32
	MetaCRC uint32
	Magic   uint32
}

// DictEntry locates a term's postings inside the postings block.
type DictEntry struct {
	Term       string  `json:"t"`
	PostOffset int64   `json:"o"`
	PostLen    int     `json:"l"`
	DocFreq    int     `json:"df"`
	IDF        float64 `json:"idf"`
}

// metaBlock carries the corpus-level statistics.
type metaBlock struct {
	Analyzer string           `json:"analyzer"`
	TFScheme index.TFScheme   `json:"tf_scheme"`
	DocCount int              `json:"doc_count"`
	Docs     []index.DocStats `json:"docs"`
}

// Encode serialises idx into the .cidx layout. The output depends only on
// the index contents, so the same index always encodes to the same bytes.
func Encode(idx *index.Index) ([]byte, error) {
	var post bytes.Buffer
	terms := idx.Terms()
	dict := make([]DictEntry, 0, len(terms))
	for _, term := range terms {
		entry, _ := idx.Entry(term)
		data, err := json.Marshal(entry.Postings)
		if err != nil {
			return nil, fmt.Errorf("marshaling postings for term %q: %w", term, err)
		}
		dict = append(dict, DictEntry{
			Term:       term,
			PostOffset: int64(post.Len()),
			PostLen:    len(data),
			DocFreq:    entry.DocFreq,
			IDF:        entry.IDF,
		})
		post.Write(data)
	}
	dictData, err := json.Marshal(dict)
	if err != nil {
		return nil, fmt.Errorf("marshaling dictionary: %w", err)
	}
	docs := idx.Docs()
	if docs == nil {
		docs = []index.DocStats{}
	}
	meta := idx.Meta()
	metaData, err := json.Marshal(metaBlock{
		Analyzer: meta.Analyzer,
		TFScheme: meta.TFScheme,
		DocCount: idx.DocCount(),
		Docs:     docs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling meta: %w", err)
	}

	header := Header{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		TermCount:  uint32(len(dict)),
		DocCount:   uint32(idx.DocCount()),
		PostOffset: int64(HeaderSize),
		PostSize:   int64(post.Len()),
	}
	header.DictOffset = header.PostOffset + header.PostSize
	header.DictSize = int64(len(dictData))
	header.MetaOffset = header.DictOffset + header.DictSize
	header.MetaSize = int64(len(metaData))

	footer := Footer{
		PostCRC: crc32.ChecksumIEEE(post.Bytes()),
		DictCRC: crc32.ChecksumIEEE(dictData),
		MetaCRC: crc32.ChecksumIEEE(metaData),
		Magic:   MagicBytes,
	}

	out := make([]byte, 0, int(header.MetaOffset+header.MetaSize)+FooterSize)
	out = append(out, header.encode()...)
	out = append(out, post.Bytes()...)
	out = append(out, dictData...)
	out = append(out, metaData...)
	out = append(out, footer.encode()...)
	return out, nil
}

func (h Header) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.MetaOffset))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.MetaSize))
	return b
}

func (f Footer) encode() []byte {
	b := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(b[0:4], f.PostCRC)
	binary.LittleEndian.PutUint32(b[4:8], f.DictCRC)
	binary.LittleEndian.PutUint32(b[8:12], f.MetaCRC)
	binary.LittleEndian.PutUint32(b[12:16], f.Magic)
	return b
}

// Writer publishes index files to a fixed path.
type Writer struct {
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Path() string { return w.path }

// Write encodes idx and replaces the file at the writer's path. The bytes go
// to <path>.tmp first and are renamed into place after a sync, while an
// exclusive lock on <path>.lock is held, so readers never observe a partial
// file and concurrent builders publish one at a time. It returns the CRC32 of
// the whole file, which the searcher uses as the index version.
func (w *Writer) Write(ctx context.Context, idx *index.Index) (uint32, error) {
	data, err := Encode(idx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return 0, fmt.Errorf("creating index directory: %w", err)
	}

	lock := flock.New(w.path + ".lock")
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return 0, fmt.Errorf("locking %s: %w", w.path, err)
	}
	if !locked {
		return 0, fmt.Errorf("locking %s: lock not acquired", w.path)
	}
	defer lock.Unlock()

	tmpPath := w.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("creating temp index file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing index file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("syncing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming index file: %w", err)
	}
	return crc32.ChecksumIEEE(data), nil
}

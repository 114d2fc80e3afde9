package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
)

// Load reads and validates the index file at path.
func Load(path string) (*index.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}
	idx, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return idx, nil
}

// Decode parses an encoded index. Any inconsistency, from a bad magic number
// to a posting that references an unknown document, fails the whole decode
// with ErrMalformedInput. The returned index reports the file's CRC32 as its
// checksum.
func Decode(data []byte) (*index.Index, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	end := int64(len(data) - FooterSize)
	if header.PostOffset != int64(HeaderSize) ||
		header.DictOffset != header.PostOffset+header.PostSize ||
		header.MetaOffset != header.DictOffset+header.DictSize ||
		header.MetaOffset+header.MetaSize != end {
		return nil, apperrors.Malformedf("block layout does not match file size %d", len(data))
	}
	footer := parseFooter(data[end:])
	if footer.Magic != MagicBytes {
		return nil, apperrors.Malformedf("bad footer magic %x", footer.Magic)
	}

	post := data[header.PostOffset:header.DictOffset]
	dictData := data[header.DictOffset:header.MetaOffset]
	metaData := data[header.MetaOffset:end]
	switch {
	case crc32.ChecksumIEEE(post) != footer.PostCRC:
		return nil, apperrors.Malformedf("postings checksum mismatch")
	case crc32.ChecksumIEEE(dictData) != footer.DictCRC:
		return nil, apperrors.Malformedf("dictionary checksum mismatch")
	case crc32.ChecksumIEEE(metaData) != footer.MetaCRC:
		return nil, apperrors.Malformedf("meta checksum mismatch")
	}

	var dict []DictEntry
	if err := json.Unmarshal(dictData, &dict); err != nil {
		return nil, apperrors.Malformedf("parsing dictionary: %v", err)
	}
	if len(dict) != int(header.TermCount) {
		return nil, apperrors.Malformedf("header declares %d terms, dictionary has %d", header.TermCount, len(dict))
	}
	var meta metaBlock
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, apperrors.Malformedf("parsing meta: %v", err)
	}
	if meta.DocCount != len(meta.Docs) || meta.DocCount != int(header.DocCount) {
		return nil, apperrors.Malformedf("document count mismatch (header %d, meta %d, docs %d)",
			header.DocCount, meta.DocCount, len(meta.Docs))
	}
	scheme, err := index.ParseTFScheme(string(meta.TFScheme))
	if err != nil {
		return nil, apperrors.Malformedf("%v", err)
	}

	entries := make([]index.TermEntry, 0, len(dict))
	for i, d := range dict {
		if i > 0 && dict[i-1].Term >= d.Term {
			return nil, apperrors.Malformedf("dictionary not sorted at %q", d.Term)
		}
		if d.PostOffset < 0 || d.PostLen < 0 || d.PostOffset+int64(d.PostLen) > int64(len(post)) {
			return nil, apperrors.Malformedf("term %q: postings out of bounds", d.Term)
		}
		var postings index.PostingList
		if err := json.Unmarshal(post[d.PostOffset:d.PostOffset+int64(d.PostLen)], &postings); err != nil {
			return nil, apperrors.Malformedf("term %q: parsing postings: %v", d.Term, err)
		}
		entries = append(entries, index.TermEntry{
			Term:     d.Term,
			DocFreq:  d.DocFreq,
			IDF:      d.IDF,
			Postings: postings,
		})
	}

	idx, err := index.Assemble(index.Meta{
		Analyzer: meta.Analyzer,
		TFScheme: scheme,
		Checksum: crc32.ChecksumIEEE(data),
	}, entries, meta.Docs)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// ParseHeader decodes and checks the fixed header. It does not look past the
// header except to confirm the file is long enough to hold a footer.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize+FooterSize {
		return Header{}, apperrors.Malformedf("file too short (%d bytes)", len(data))
	}
	h := Header{
		Magic:      binary.LittleEndian.Uint32(data[0:4]),
		Version:    binary.LittleEndian.Uint32(data[4:8]),
		TermCount:  binary.LittleEndian.Uint32(data[8:12]),
		DocCount:   binary.LittleEndian.Uint32(data[12:16]),
		PostOffset: int64(binary.LittleEndian.Uint64(data[16:24])),
		PostSize:   int64(binary.LittleEndian.Uint64(data[24:32])),
		DictOffset: int64(binary.LittleEndian.Uint64(data[32:40])),
		DictSize:   int64(binary.LittleEndian.Uint64(data[40:48])),
		MetaOffset: int64(binary.LittleEndian.Uint64(data[48:56])),
		MetaSize:   int64(binary.LittleEndian.Uint64(data[56:64])),
	}
	if h.Magic != MagicBytes {
		return Header{}, apperrors.Malformedf("invalid index file: bad magic bytes %x", h.Magic)
	}
	if h.Version != FormatVersion {
		return Header{}, apperrors.Malformedf("unsupported index format version %d (want %d)", h.Version, FormatVersion)
	}
	size := int64(len(data))
	for _, v := range []int64{h.PostOffset, h.PostSize, h.DictOffset, h.DictSize, h.MetaOffset, h.MetaSize} {
		if v < 0 || v > size {
			return Header{}, apperrors.Malformedf("block offset or size out of range")
		}
	}
	return h, nil
}

func parseFooter(b []byte) Footer {
	return Footer{
		PostCRC: binary.LittleEndian.Uint32(b[0:4]),
		DictCRC: binary.LittleEndian.Uint32(b[4:8]),
		MetaCRC: binary.LittleEndian.Uint32(b[8:12]),
		Magic:   binary.LittleEndian.Uint32(b[12:16]),
	}
}

// Info describes an index file without loading its postings.
type Info struct {
	Path     string
	Size     int64
	Checksum uint32
	Header   Header
	Analyzer string
	TFScheme index.TFScheme
}

// Stat reads the header and meta block of the file at path.
func Stat(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("reading index file: %w", err)
	}
	h, err := ParseHeader(data)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Path:     path,
		Size:     int64(len(data)),
		Checksum: crc32.ChecksumIEEE(data),
		Header:   h,
	}
	if h.MetaOffset+h.MetaSize <= int64(len(data)) {
		var meta metaBlock
		if err := json.Unmarshal(data[h.MetaOffset:h.MetaOffset+h.MetaSize], &meta); err == nil {
			info.Analyzer = meta.Analyzer
			info.TFScheme = meta.TFScheme
		}
	}
	return info, nil
}

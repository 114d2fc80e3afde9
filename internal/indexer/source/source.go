package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/kafka"
)

const (
	FormatJSONL = "jsonl"
	FormatJSON  = "json"
	FormatKafka = "kafka"
)

// maxLineSize bounds a single JSONL record. Crawled pages are plain text but
// occasionally very long; longer lines are skipped as malformed.
const maxLineSize = 16 << 20

// Source streams raw records to fn in input order. Each stops at the first
// error returned by fn, on ctx cancellation, or when the input cannot be read
// any further. A single undecodable record is not an error here; Decode
// reports it.
type Source interface {
	Name() string
	Each(ctx context.Context, fn func(Record) error) error
}

// FromConfig selects the source named by indexer.format.
func FromConfig(cfg *config.Config) (Source, error) {
	if cfg.Indexer.Format == FormatKafka {
		return NewKafka(cfg.Kafka), nil
	}
	return Open(cfg.Indexer.Input, cfg.Indexer.Format)
}

// Open returns a file-backed source for the jsonl or json format.
func Open(path, format string) (Source, error) {
	switch format {
	case FormatJSONL, FormatJSON:
	default:
		return nil, fmt.Errorf("unsupported file format %q", format)
	}
	return &fileSource{path: path, format: format}, nil
}

type fileSource struct {
	path   string
	format string
}

func (f *fileSource) Name() string { return f.path }

func (f *fileSource) Each(ctx context.Context, fn func(Record) error) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.path, err)
	}
	defer file.Close()
	return NewReader(file, f.path, f.format).Each(ctx, fn)
}

// NewReader returns a source over r. name is used as the origin prefix.
func NewReader(r io.Reader, name, format string) Source {
	if format == FormatJSON {
		return &jsonSource{r: r, name: name}
	}
	return &jsonlSource{r: r, name: name}
}

// NewJSONLReader is NewReader for JSONL with a custom per-line byte limit.
func NewJSONLReader(r io.Reader, name string, maxLine int) Source {
	return &jsonlSource{r: r, name: name, maxLine: maxLine}
}

type jsonlSource struct {
	r       io.Reader
	name    string
	maxLine int
}

func (s *jsonlSource) Name() string { return s.name }

// Each hands over one record per non-blank line. A line longer than the limit
// is not buffered; it becomes a record carrying ErrMalformedInput and reading
// resumes at the next line.
func (s *jsonlSource) Each(ctx context.Context, fn func(Record) error) error {
	limit := s.maxLine
	if limit <= 0 {
		limit = maxLineSize
	}
	br := bufio.NewReaderSize(s.r, 64*1024)
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, tooLong, err := readLine(br, limit)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading %s after line %d: %w", s.name, line, err)
		}
		if errors.Is(err, io.EOF) && len(data) == 0 && !tooLong {
			return nil
		}
		line++
		origin := fmt.Sprintf("%s:%d", s.name, line)
		switch {
		case tooLong:
			rec := Record{Origin: origin, Err: apperrors.Malformedf("%s: line longer than %d bytes", origin, limit)}
			if ferr := fn(rec); ferr != nil {
				return ferr
			}
		case len(bytes.TrimSpace(data)) > 0:
			if ferr := fn(Record{Origin: origin, Data: data}); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			return nil
		}
	}
}

// readLine returns the next line without its terminator. Once the line grows
// past limit the rest of it is discarded and tooLong is set. err is io.EOF on
// the last line of the input.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, rerr := br.ReadSlice('\n')
		if !tooLong {
			content := bytes.TrimSuffix(chunk, []byte("\n"))
			if len(line)+len(content) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, content...)
			}
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			line = nil
		}
		return bytes.TrimSuffix(line, []byte("\r")), tooLong, rerr
	}
}

type jsonSource struct {
	r    io.Reader
	name string
}

func (s *jsonSource) Name() string { return s.name }

// Each walks a top-level JSON array. Elements are handed over undecoded so a
// bad element is skipped by the caller; a syntax error in the array itself
// ends the stream.
func (s *jsonSource) Each(ctx context.Context, fn func(Record) error) error {
	dec := json.NewDecoder(s.r)
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.name, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return fmt.Errorf("reading %s: expected a JSON array", s.name)
	}
	i := 0
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("reading %s element %d: %w", s.name, i, err)
		}
		if err := fn(Record{Origin: fmt.Sprintf("%s[%d]", s.name, i), Data: raw}); err != nil {
			return err
		}
		i++
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading %s: %w", s.name, err)
	}
	return nil
}

// KafkaSource drains the crawler's document topic.
type KafkaSource struct {
	cfg   config.KafkaConfig
	topic string
	idle  time.Duration
}

func NewKafka(cfg config.KafkaConfig) *KafkaSource {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = 10 * time.Second
	}
	return &KafkaSource{cfg: cfg, topic: cfg.Topics.Documents, idle: idle}
}

func (k *KafkaSource) Name() string { return "kafka:" + k.topic }

func (k *KafkaSource) Each(ctx context.Context, fn func(Record) error) error {
	consumer := kafka.NewConsumer(k.cfg, k.topic, func(_ context.Context, msg kafka.Message) error {
		return fn(Record{Origin: msg.Origin(), Data: msg.Value})
	})
	defer consumer.Close()
	return consumer.Drain(ctx, k.idle)
}

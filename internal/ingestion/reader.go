package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"case-metrics/internal/domain"
)

// MaxLineBytes bounds a single feed line.
const MaxLineBytes = 4 << 20

// ReadStats counts the lines of one feed.
type ReadStats struct {
	Lines     int // non-blank lines
	Records   int // lines decoded into a JSON object
	Malformed int // lines that were not a JSON object
}

// RecordFunc receives each decoded record. Returning an error stops the read.
type RecordFunc func(rec domain.Record) error

// Reader streams records out of feed files.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a Reader. A nil logger discards log output.
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// ReadFeed decodes feed line by line and calls fn for every JSON object.
// Blank lines are ignored; other malformed lines are skipped and counted.
// Numbers are decoded as json.Number.
func (r *Reader) ReadFeed(ctx context.Context, feed Feed, fn RecordFunc) (*ReadStats, error) {
	f, err := os.Open(feed.Path)
	if err != nil {
		return nil, fmt.Errorf("open feed %s: %w", feed.Name, err)
	}
	defer f.Close()

	stats := &ReadStats{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		rec, err := decodeRecord(line)
		if err != nil {
			stats.Malformed++
			r.logger.Debug("skip malformed line",
				zap.String("feed", feed.Name),
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			continue
		}
		stats.Records++

		if err := fn(rec); err != nil {
			return stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan feed %s: %w", feed.Name, err)
	}

	return stats, nil
}

func decodeRecord(line []byte) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var rec domain.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("not a json object")
	}
	return rec, nil
}

package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-metrics/internal/domain"
)

func TestReader_ReadFeed(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		`{"item": "Kilowatt Case", "price": 1.25}`,
		``,
		`   `,
		`not json`,
		`[1, 2, 3]`,
		`null`,
		`{"playing": 1350000}`,
	}, "\n")
	path := writeFile(t, dir, "steam_prices.ndjson", content)

	var records []domain.Record
	stats, err := NewReader(nil).ReadFeed(context.Background(), Feed{Name: "steam_prices", Path: path}, func(rec domain.Record) error {
		records = append(records, rec)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Lines)
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 3, stats.Malformed)

	require.Len(t, records, 2)
	assert.Equal(t, json.Number("1.25"), records[0]["price"])
	assert.Equal(t, json.Number("1350000"), records[1]["playing"])
}

func TestReader_StopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "feed.ndjson", "{\"a\":1}\n{\"a\":2}\n")
	boom := errors.New("boom")

	calls := 0
	_, err := NewReader(nil).ReadFeed(context.Background(), Feed{Name: "feed", Path: path}, func(domain.Record) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestReader_LongLine(t *testing.T) {
	dir := t.TempDir()
	long := `{"item": "` + strings.Repeat("x", 1<<20) + `", "price": 1}`
	path := writeFile(t, dir, "feed.ndjson", long+"\n")

	stats, err := NewReader(nil).ReadFeed(context.Background(), Feed{Name: "feed", Path: path}, func(domain.Record) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Records)
}

func TestReader_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "feed.ndjson", "{\"a\":1}\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(nil).ReadFeed(ctx, Feed{Name: "feed", Path: path}, func(domain.Record) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

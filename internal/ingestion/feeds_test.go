package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscoverFeeds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "steam_prices.ndjson", "")
	writeFile(t, dir, "csfloat_prices.ndjson", "")
	writeFile(t, dir, "final_data_output_20240501_120000.ndjson", "")
	writeFile(t, dir, "final_data_output_latest.ndjson", "")
	writeFile(t, dir, "other_latest.ndjson", "")
	writeFile(t, dir, "notes.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.ndjson"), 0o755))

	feeds, err := DiscoverFeeds(dir, "final_data_output")
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	assert.Equal(t, "csfloat_prices", feeds[0].Name)
	assert.Equal(t, filepath.Join(dir, "csfloat_prices.ndjson"), feeds[0].Path)
	assert.Equal(t, "steam_prices", feeds[1].Name)
}

func TestDiscoverFeeds_MissingDir(t *testing.T) {
	_, err := DiscoverFeeds(filepath.Join(t.TempDir(), "absent"), "final_data_output")
	assert.Error(t, err)
}

package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// feedExt is the extension of producer feed files.
const feedExt = ".ndjson"

// Feed is one producer output file. Its name is the record source.
type Feed struct {
	Name string // base name without extension, e.g. steam_prices
	Path string
}

// DiscoverFeeds lists the feed files in dir sorted by file name. Files that
// start with snapshotBase, or end with _latest.ndjson, are previous outputs
// and are excluded.
func DiscoverFeeds(dir, snapshotBase string) ([]Feed, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", dir, err)
	}

	var feeds []Feed
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, feedExt) {
			continue
		}
		if snapshotBase != "" && strings.HasPrefix(name, snapshotBase) {
			continue
		}
		if strings.HasSuffix(name, "_latest"+feedExt) {
			continue
		}
		feeds = append(feeds, Feed{
			Name: strings.TrimSuffix(name, feedExt),
			Path: filepath.Join(dir, name),
		})
	}

	sort.Slice(feeds, func(i, j int) bool {
		return feeds[i].Name < feeds[j].Name
	})
	return feeds, nil
}

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/types"
)

// ReportCache writes one JSON file per run for debugging
type ReportCache struct {
	dir string
}

// NewReportCache stores reports in dir
func NewReportCache(dir string) *ReportCache {
	return &ReportCache{dir: dir}
}

// DefaultReportCache stores reports under the cache directory.
// On macOS this is ~/Library/Caches/kudos4me/runs/
func DefaultReportCache() (*ReportCache, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return nil, err
	}
	return NewReportCache(filepath.Join(cacheDir, "runs")), nil
}

// Dir returns the cache directory
func (c *ReportCache) Dir() string {
	return c.dir
}

// Save serializes the run to a file named after its start time and run ID.
// Returns the path to the saved file.
func (c *ReportCache) Save(result types.RunResult) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report cache dir: %w", err)
	}

	// Dashes instead of colons for filesystem compatibility. The fixed-width
	// fraction keeps names sorting chronologically.
	filename := result.StartedAt.Format("2006-01-02T15-04-05.000000000") + "_" + result.ID + ".json"
	path := filepath.Join(c.dir, filename)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write run report: %w", err)
	}

	return path, nil
}

// Latest loads the most recent report and the path it was read from
func (c *ReportCache) Latest() (types.RunResult, string, error) {
	var result types.RunResult

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, "", fmt.Errorf("no cached run reports in %s", c.dir)
		}
		return result, "", err
	}

	// os.ReadDir sorts by name, which is chronological for our timestamps
	var latest string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			latest = entry.Name()
		}
	}
	if latest == "" {
		return result, "", fmt.Errorf("no cached run reports in %s", c.dir)
	}

	path := filepath.Join(c.dir, latest)
	data, err := os.ReadFile(path)
	if err != nil {
		return result, "", fmt.Errorf("failed to read run report: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, "", fmt.Errorf("failed to unmarshal run report: %w", err)
	}

	return result, path, nil
}

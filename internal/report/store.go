package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/cotestpilot/internal/model"
)

// Store persists check results and screenshots to a directory so reports
// can be regenerated after the fact.
//
// Each result is written as <id>.json with its screenshot as <id>.png
// next to it. The screenshot path recorded on the result is relative to
// the directory, so an HTML report written into the same directory can
// reference the images directly.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created on
// first save, not here, so constructing a store has no side effects.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store persists into.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the result and its screenshot to the store directory.
// It fills in the result's ScreenshotPath and OutputFile fields.
func (s *Store) Save(result *model.CheckResult, screenshot []byte) error {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	if len(screenshot) > 0 {
		name := result.ID + ".png"
		if err := os.WriteFile(filepath.Join(s.dir, name), screenshot, 0600); err != nil {
			return fmt.Errorf("write screenshot: %w", err)
		}
		result.ScreenshotPath = name
	}

	path := filepath.Join(s.dir, result.ID+".json")
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal check result: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write check result: %w", err)
	}
	result.OutputFile = path
	return nil
}

// LoadAll reads every stored result, ordered by check timestamp.
// A missing directory yields an empty slice, not an error: no results
// have been saved yet.
func (s *Store) LoadAll() ([]*model.CheckResult, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read results directory: %w", err)
	}

	var results []*model.CheckResult
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name())) //nolint:gosec // Path is within the store directory
		if err != nil {
			return nil, fmt.Errorf("read result %s: %w", entry.Name(), err)
		}

		var result model.CheckResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("parse result %s: %w", entry.Name(), err)
		}
		results = append(results, &result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.Before(results[j].Timestamp)
	})
	return results, nil
}

// PruneScreenshots removes stored screenshots older than the retention
// window and returns how many were removed. Screenshots dominate the
// store's disk usage; the JSON results are small and kept indefinitely
// so history reports keep working after pruning.
//
// A missing directory is not an error: there is nothing to prune.
func (s *Store) PruneScreenshots(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read results directory: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, fmt.Errorf("stat screenshot %s: %w", entry.Name(), err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove screenshot %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// LoadByLabel reads stored results filtered to the given label.
// An empty label returns all results.
func (s *Store) LoadByLabel(label string) ([]*model.CheckResult, error) {
	results, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	if label == "" {
		return results, nil
	}

	filtered := results[:0]
	for _, r := range results {
		if r.Label == label {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/cotestpilot/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*CheckDB, func()) {
	t.Helper()

	tmpDir := t.TempDir()

	db, err := Open(tmpDir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

// testCheckResult returns a check result with a couple of bugs for storage tests.
func testCheckResult(url string) *model.CheckResult {
	result := model.NewCheckResult(url)
	result.Title = "Test Page"
	result.AddFindings(model.PersonaFindings{
		Persona: "Jason",
		Bugs: []model.Bug{
			{Title: "Broken link", Severity: model.SeverityMedium, Confidence: 0.8},
			{Title: "Typo in footer", Severity: model.SeverityCosmetic, Confidence: 0.9},
		},
	})
	return result
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()

		dbDir := filepath.Join(tmpDir, "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		// Check that database file exists
		dbPath := filepath.Join(dbDir, "cotestpilot.db")
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		dbDir := filepath.Join(tmpDir, "nonexistent-db")

		opts := Options{
			CreateIfNotExists: false,
			EnableWAL:         true,
		}

		_, err := Open(dbDir, opts)
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected error to mention missing database, got %q", err.Error())
		}

		// Verify database directory was NOT created
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		dbDir := filepath.Join(tmpDir, "existing-db")

		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}

		ctx := context.Background()
		result := testCheckResult("https://example.com/persist")
		if err := db1.SaveCheckReport(ctx, result); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		db1.Close()

		openOpts := Options{
			CreateIfNotExists: false,
			EnableWAL:         true,
		}
		db2, err := Open(dbDir, openOpts)
		if err != nil {
			t.Fatalf("failed to open existing database with CreateIfNotExists=false: %v", err)
		}
		defer db2.Close()

		// Verify data persists
		retrieved, err := db2.GetLatestCheckReport(ctx, result.URL)
		if err != nil {
			t.Fatalf("failed to get report: %v", err)
		}
		if retrieved == nil {
			t.Error("expected report to exist in database")
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()

	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

// TestCheckReports tests saving and retrieving check reports.
func TestCheckReports(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("save and retrieve report", func(t *testing.T) {
		result := testCheckResult("https://example.com/checkout")
		result.Label = "smoke"

		if err := db.SaveCheckReport(ctx, result); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		retrieved, err := db.GetLatestCheckReport(ctx, "https://example.com/checkout")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if retrieved == nil {
			t.Fatal("expected report, got nil")
		}
		if retrieved.ID != result.ID {
			t.Errorf("expected ID %q, got %q", result.ID, retrieved.ID)
		}
		if retrieved.TotalBugs() != 2 {
			t.Errorf("expected 2 bugs, got %d", retrieved.TotalBugs())
		}
		if retrieved.Label != "smoke" {
			t.Errorf("expected label 'smoke', got %q", retrieved.Label)
		}
	})

	t.Run("returns nil for non-existent URL", func(t *testing.T) {
		retrieved, err := db.GetLatestCheckReport(ctx, "https://nonexistent.example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if retrieved != nil {
			t.Error("expected nil for non-existent URL")
		}
	})

	t.Run("list checked URLs", func(t *testing.T) {
		for _, url := range []string{"https://example.com/a", "https://example.com/b"} {
			if err := db.SaveCheckReport(ctx, testCheckResult(url)); err != nil {
				t.Fatalf("failed to save: %v", err)
			}
		}

		urls, err := db.ListCheckedURLs(ctx)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}

		// Includes the checkout URL from the earlier subtest plus the two new ones
		if len(urls) < 2 {
			t.Errorf("expected at least 2 URLs, got %d", len(urls))
		}
	})
}

// TestGetCheckHistory tests retrieval of check history for a URL.
func TestGetCheckHistory(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("returns empty list for non-existent URL", func(t *testing.T) {
		history, err := db.GetCheckHistory(ctx, "https://nonexistent.example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 0 {
			t.Errorf("expected empty history, got %d reports", len(history))
		}
	})

	t.Run("returns all check reports for URL", func(t *testing.T) {
		for i := range 3 {
			result := testCheckResult("https://example.com/history")
			result.Label = "run"
			if err := db.SaveCheckReport(ctx, result); err != nil {
				t.Fatalf("failed to save report %d: %v", i, err)
			}
			// Small delay to ensure different timestamps
			time.Sleep(10 * time.Millisecond)
		}

		history, err := db.GetCheckHistory(ctx, "https://example.com/history")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 3 {
			t.Errorf("expected 3 reports, got %d", len(history))
		}

		for _, report := range history {
			if report.URL != "https://example.com/history" {
				t.Errorf("expected URL 'https://example.com/history', got %q", report.URL)
			}
		}
	})
}

// TestGetCheckHistoryWithMetadata tests retrieval of check history metadata.
func TestGetCheckHistoryWithMetadata(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("returns empty list for non-existent URL", func(t *testing.T) {
		history, err := db.GetCheckHistoryWithMetadata(ctx, "https://nonexistent.example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 0 {
			t.Errorf("expected empty history, got %d records", len(history))
		}
	})

	t.Run("returns metadata for all checks", func(t *testing.T) {
		for i := range 3 {
			result := testCheckResult("https://example.com/metadata")
			if err := db.SaveCheckReport(ctx, result); err != nil {
				t.Fatalf("failed to save report %d: %v", i, err)
			}
			time.Sleep(10 * time.Millisecond)
		}

		history, err := db.GetCheckHistoryWithMetadata(ctx, "https://example.com/metadata")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 3 {
			t.Errorf("expected 3 records, got %d", len(history))
		}

		for _, meta := range history {
			if meta.ID == 0 {
				t.Error("expected non-zero ID")
			}
			if meta.URL != "https://example.com/metadata" {
				t.Errorf("expected 'https://example.com/metadata', got %q", meta.URL)
			}
			if meta.CheckID == "" {
				t.Error("expected non-empty CheckID")
			}
			if meta.SeveritySummary == nil {
				t.Error("expected non-nil SeveritySummary")
			}
			if meta.SeveritySummary["medium"] != 1 {
				t.Errorf("expected 1 medium bug in summary, got %d", meta.SeveritySummary["medium"])
			}
		}
	})
}

// TestGetCheckReportByID tests retrieval of check report by ID.
func TestGetCheckReportByID(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("returns nil for non-existent ID", func(t *testing.T) {
		report, err := db.GetCheckReportByID(ctx, 99999)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report != nil {
			t.Error("expected nil for non-existent ID")
		}
	})

	t.Run("retrieves report by ID", func(t *testing.T) {
		original := testCheckResult("https://example.com/byid")
		if err := db.SaveCheckReport(ctx, original); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		metadata, err := db.GetCheckHistoryWithMetadata(ctx, "https://example.com/byid")
		if err != nil {
			t.Fatalf("failed to get metadata: %v", err)
		}
		if len(metadata) == 0 {
			t.Fatal("expected at least one metadata record")
		}

		retrieved, err := db.GetCheckReportByID(ctx, metadata[0].ID)
		if err != nil {
			t.Fatalf("failed to get report by ID: %v", err)
		}
		if retrieved == nil {
			t.Fatal("expected report, got nil")
		}
		if retrieved.URL != "https://example.com/byid" {
			t.Errorf("expected 'https://example.com/byid', got %q", retrieved.URL)
		}
	})
}

// TestParseTimestamp tests parsing of the timestamp formats SQLite returns.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "sqlite default format",
			input: "2025-03-14 10:30:00",
			want:  time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "iso8601 with z suffix",
			input: "2025-03-14T10:30:00Z",
			want:  time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "unparseable returns zero time",
			input: "not-a-timestamp",
			want:  time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

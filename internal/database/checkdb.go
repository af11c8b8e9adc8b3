package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/cotestpilot/internal/model"
)

// CheckDB provides SQLite-based storage for check results.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file rather than one per
// target URL. This simplifies history queries across pages and
// backup/restore operations.
type CheckDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CheckDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CheckDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CheckDB, error) {
	dbPath := filepath.Join(dbDir, "cotestpilot.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		// Check if database file exists
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CheckDB{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CheckDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CheckDB) createTables() error {
	schema := `
	-- Check reports store complete check results as JSON
	CREATE TABLE IF NOT EXISTS check_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		check_id TEXT NOT NULL,
		url TEXT NOT NULL,
		label TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		severity_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_url ON check_reports(url);
	CREATE INDEX IF NOT EXISTS idx_reports_label ON check_reports(label);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON check_reports(timestamp);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCheckReport saves a complete check result as JSON.
func (cdb *CheckDB) SaveCheckReport(ctx context.Context, result *model.CheckResult) error {
	// Serialize result to JSON
	reportJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize check result: %w", err)
	}

	summaryJSON, _ := json.Marshal(result.SeveritySummary()) //nolint:errcheck,errchkjson // SeveritySummary is a simple map; Marshal won't fail

	query := `
	INSERT INTO check_reports (check_id, url, label, report_json, severity_summary)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err = cdb.db.ExecContext(ctx, query,
		result.ID,
		result.URL,
		result.Label,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save check report: %w", err)
	}

	return nil
}

// GetLatestCheckReport retrieves the most recent check result for a URL.
func (cdb *CheckDB) GetLatestCheckReport(ctx context.Context, url string) (*model.CheckResult, error) {
	query := `
	SELECT report_json FROM check_reports
	WHERE url = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, url).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get check report: %w", err)
	}

	var result model.CheckResult
	if err := json.Unmarshal([]byte(reportJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse check report: %w", err)
	}

	return &result, nil
}

// ListCheckedURLs returns a list of all checked URLs.
func (cdb *CheckDB) ListCheckedURLs(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT url FROM check_reports
	ORDER BY url
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan URL: %w", err)
		}
		urls = append(urls, url)
	}

	return urls, rows.Err()
}

// GetCheckHistory retrieves all check results for a URL, newest first.
func (cdb *CheckDB) GetCheckHistory(ctx context.Context, url string) ([]*model.CheckResult, error) {
	query := `
	SELECT report_json FROM check_reports
	WHERE url = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get check history: %w", err)
	}
	defer rows.Close()

	var results []*model.CheckResult
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan check report: %w", err)
		}

		var result model.CheckResult
		if err := json.Unmarshal([]byte(reportJSON), &result); err != nil {
			continue // Skip malformed reports
		}
		results = append(results, &result)
	}

	return results, rows.Err()
}

// CheckReportMetadata contains summary information about a check report.
// This is used for displaying check history without loading the full report.
type CheckReportMetadata struct {
	// ID is the unique identifier of the check report in the database.
	ID int64

	// CheckID is the identifier the result carries in its JSON form.
	CheckID string

	// URL is the checked page URL.
	URL string

	// Label is the optional run label.
	Label string

	// Timestamp is when the check was performed.
	Timestamp time.Time

	// SeveritySummary contains counts of bugs by severity level.
	SeveritySummary map[string]int
}

// GetCheckHistoryWithMetadata retrieves check report metadata for a URL.
// This is more efficient than GetCheckHistory when only metadata is needed.
func (cdb *CheckDB) GetCheckHistoryWithMetadata(ctx context.Context, url string) ([]CheckReportMetadata, error) {
	query := `
	SELECT id, check_id, url, label, timestamp, severity_summary
	FROM check_reports
	WHERE url = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get check history: %w", err)
	}
	defer rows.Close()

	var results []CheckReportMetadata
	for rows.Next() {
		var meta CheckReportMetadata
		var label sql.NullString
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.CheckID, &meta.URL, &label, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Label = label.String

		// Parse timestamp
		meta.Timestamp = parseTimestamp(timestamp)

		// Parse severity summary
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.SeveritySummary); err != nil {
				meta.SeveritySummary = make(map[string]int)
			}
		} else {
			meta.SeveritySummary = make(map[string]int)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetCheckReportByID retrieves a check result by its database ID.
func (cdb *CheckDB) GetCheckReportByID(ctx context.Context, id int64) (*model.CheckResult, error) {
	query := `
	SELECT report_json FROM check_reports
	WHERE id = ?
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get check report: %w", err)
	}

	var result model.CheckResult
	if err := json.Unmarshal([]byte(reportJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse check report: %w", err)
	}

	return &result, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}

package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lepinkainen/preview-forge/pkg/filesystem"
	"github.com/lepinkainen/preview-forge/pkg/preview"
)

// DefaultDBFile is the cache database filename when none is configured.
const DefaultDBFile = "preview-cache.db"

// SQLiteStore persists preview records in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Compile-time check that the store satisfies the collaborator interface.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the cache database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}

	if err := filesystem.EnsureDirectoryExists(dbPath); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure SQLite for better concurrency and performance
	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Enable WAL mode for concurrent readers/writers
		"PRAGMA busy_timeout=5000",  // 5 second timeout for lock contention
		"PRAGMA synchronous=NORMAL", // Balance between performance and safety
		"PRAGMA temp_store=memory",  // Store temp tables in memory
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	slog.Info("Preview cache database initialized", "path", dbPath)
	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS preview_cache (
		cache_key TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT DEFAULT '',
		description TEXT DEFAULT '',
		image TEXT DEFAULT '',
		site_name TEXT DEFAULT '',
		source TEXT DEFAULT '',
		fetched_at TEXT NOT NULL,
		is_custom BOOLEAN DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_preview_source ON preview_cache(source);
	CREATE INDEX IF NOT EXISTS idx_preview_fetched ON preview_cache(fetched_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get retrieves the record stored under key, or (nil, nil) when absent.
// Rows whose timestamp no longer parses are reported as absent: a corrupt
// cache entry is a miss, not an error.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*preview.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT url, title, description, image, site_name, source, fetched_at, is_custom
	FROM preview_cache
	WHERE cache_key = ?
	`

	var rec preview.Record
	var source, fetchedAt string

	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&rec.URL,
		&rec.Title,
		&rec.Description,
		&rec.Image,
		&rec.SiteName,
		&source,
		&fetchedAt,
		&rec.IsCustom,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cached record: %w", err)
	}

	rec.Source = preview.Source(source)
	rec.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		slog.Warn("Discarding cache row with malformed timestamp", "key", key, "fetched_at", fetchedAt)
		return nil, nil
	}

	return &rec, nil
}

// List returns every cached record, newest first. Rows with malformed
// timestamps are skipped, same as Get.
func (s *SQLiteStore) List(ctx context.Context) ([]*preview.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT url, title, description, image, site_name, source, fetched_at, is_custom
	FROM preview_cache
	ORDER BY fetched_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached records: %w", err)
	}
	defer rows.Close()

	var records []*preview.Record
	for rows.Next() {
		var rec preview.Record
		var source, fetchedAt string
		if err := rows.Scan(
			&rec.URL,
			&rec.Title,
			&rec.Description,
			&rec.Image,
			&rec.SiteName,
			&source,
			&fetchedAt,
			&rec.IsCustom,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cached record: %w", err)
		}
		rec.Source = preview.Source(source)
		rec.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt)
		if err != nil {
			slog.Warn("Skipping cache row with malformed timestamp", "url", rec.URL, "fetched_at", fetchedAt)
			continue
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cached records: %w", err)
	}

	return records, nil
}

// Set writes a record under key, replacing any previous row.
func (s *SQLiteStore) Set(ctx context.Context, key string, rec *preview.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT OR REPLACE INTO preview_cache
	(cache_key, url, title, description, image, site_name, source, fetched_at, is_custom)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		key,
		rec.URL,
		rec.Title,
		rec.Description,
		rec.Image,
		rec.SiteName,
		string(rec.Source),
		rec.FetchedAt.UTC().Format(time.RFC3339),
		rec.IsCustom,
	)
	if err != nil {
		return fmt.Errorf("failed to save cached record: %w", err)
	}

	return nil
}

// Delete removes the record stored under key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM preview_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cached record: %w", err)
	}
	return nil
}

// CleanupExpired removes placeholder rows older than the social window. They
// would be refetched on next access anyway; pruning keeps the table small.
func (s *SQLiteStore) CleanupExpired() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-SocialMaxAge).UTC().Format(time.RFC3339)
	result, err := s.db.Exec(
		`DELETE FROM preview_cache WHERE source = ? AND fetched_at < ? AND is_custom = 0`,
		string(preview.SourcePlaceholder), cutoff,
	)
	if err != nil {
		return fmt.Errorf("failed to cleanup expired entries: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		slog.Debug("Cleaned up expired placeholder cache entries", "count", rowsAffected)
	}

	return nil
}

// GetStats returns statistics about the cache.
func (s *SQLiteStore) GetStats() (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]any)

	counts := map[string]string{
		"total_entries":       `SELECT COUNT(*) FROM preview_cache`,
		"custom_entries":      `SELECT COUNT(*) FROM preview_cache WHERE is_custom = 1`,
		"placeholder_entries": `SELECT COUNT(*) FROM preview_cache WHERE source = 'platform-fallback'`,
	}
	for name, query := range counts {
		var n int
		if err := s.db.QueryRow(query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", name, err)
		}
		stats[name] = n
	}

	return stats, nil
}

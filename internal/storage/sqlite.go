package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/romangod6/sitemap-harvester/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sources (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            sitemap_url TEXT UNIQUE NOT NULL,
            user_agent TEXT,
            fetch_interval TEXT,
            max_depth INTEGER NOT NULL DEFAULT 0,
            max_documents INTEGER NOT NULL DEFAULT 0,
            failure_policy TEXT,
            status TEXT,
            last_run DATETIME,
            next_run DATETIME,
            errors TEXT,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS urls (
            id TEXT PRIMARY KEY,
            source_id TEXT NOT NULL,
            location TEXT NOT NULL,
            last_mod DATETIME,
            change_freq TEXT,
            priority REAL,
            title TEXT,
            status_code INTEGER NOT NULL DEFAULT 0,
            first_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            last_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(source_id, location),
            FOREIGN KEY(source_id) REFERENCES sources(id)
        )`,
		`CREATE TABLE IF NOT EXISTS harvest_runs (
            id TEXT PRIMARY KEY,
            source_id TEXT NOT NULL,
            started_at DATETIME NOT NULL,
            finished_at DATETIME NOT NULL,
            urls_found INTEGER NOT NULL DEFAULT 0,
            documents_fetched INTEGER NOT NULL DEFAULT 0,
            skipped_records INTEGER NOT NULL DEFAULT 0,
            error_count INTEGER NOT NULL DEFAULT 0,
            errors TEXT,
            FOREIGN KEY(source_id) REFERENCES sources(id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_urls_source_id ON urls(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_urls_location ON urls(location)`,
		`CREATE INDEX IF NOT EXISTS idx_harvest_runs_source_id ON harvest_runs(source_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *SQLiteStore) CreateSource(ctx context.Context, source *models.SitemapSource) error {
	errorsJSON, err := json.Marshal(source.Errors)
	if err != nil {
		return fmt.Errorf("error marshaling errors: %w", err)
	}

	query := `
        INSERT INTO sources (id, name, sitemap_url, user_agent, fetch_interval, max_depth,
            max_documents, failure_policy, status, last_run, next_run, errors, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            sitemap_url = excluded.sitemap_url,
            user_agent = excluded.user_agent,
            fetch_interval = excluded.fetch_interval,
            max_depth = excluded.max_depth,
            max_documents = excluded.max_documents,
            failure_policy = excluded.failure_policy,
            status = excluded.status,
            updated_at = CURRENT_TIMESTAMP
    `

	_, err = s.db.ExecContext(ctx, query,
		source.ID.String(),
		source.Name,
		source.SitemapURL,
		source.UserAgent,
		source.FetchInterval,
		source.MaxDepth,
		source.MaxDocuments,
		source.FailurePolicy,
		source.Status,
		source.LastRun,
		source.NextRun,
		string(errorsJSON),
		source.CreatedAt,
		source.UpdatedAt,
	)

	return err
}

func (s *SQLiteStore) GetSource(ctx context.Context, id uuid.UUID) (*models.SitemapSource, error) {
	query := `
        SELECT id, name, sitemap_url, user_agent, fetch_interval, max_depth,
            max_documents, failure_policy, status, last_run, next_run, errors, created_at, updated_at
        FROM sources
        WHERE id = ?
    `

	row := s.db.QueryRowContext(ctx, query, id.String())
	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return source, err
}

func (s *SQLiteStore) ListSources(ctx context.Context) ([]*models.SitemapSource, error) {
	query := `
        SELECT id, name, sitemap_url, user_agent, fetch_interval, max_depth,
            max_documents, failure_policy, status, last_run, next_run, errors, created_at, updated_at
        FROM sources
        ORDER BY created_at
    `

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.SitemapSource
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

func (s *SQLiteStore) UpdateSource(ctx context.Context, source *models.SitemapSource) error {
	errorsJSON, err := json.Marshal(source.Errors)
	if err != nil {
		return fmt.Errorf("error marshaling errors: %w", err)
	}

	query := `
        UPDATE sources SET
            name = ?,
            sitemap_url = ?,
            user_agent = ?,
            fetch_interval = ?,
            max_depth = ?,
            max_documents = ?,
            failure_policy = ?,
            status = ?,
            last_run = ?,
            next_run = ?,
            errors = ?,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = ?
    `

	_, err = s.db.ExecContext(ctx, query,
		source.Name,
		source.SitemapURL,
		source.UserAgent,
		source.FetchInterval,
		source.MaxDepth,
		source.MaxDocuments,
		source.FailurePolicy,
		source.Status,
		source.LastRun,
		source.NextRun,
		string(errorsJSON),
		source.ID.String(),
	)

	return err
}

func (s *SQLiteStore) DeleteSource(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM urls WHERE source_id = ?`, id.String()); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM harvest_runs WHERE source_id = ?`, id.String()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id.String())
	return err
}

func (s *SQLiteStore) UpsertURL(ctx context.Context, url *models.DiscoveredURL) error {
	query := `
        INSERT INTO urls (id, source_id, location, last_mod, change_freq, priority, first_seen, last_seen)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(source_id, location) DO UPDATE SET
            last_mod = excluded.last_mod,
            change_freq = excluded.change_freq,
            priority = excluded.priority,
            last_seen = excluded.last_seen
    `

	_, err := s.db.ExecContext(ctx, query,
		url.ID.String(),
		url.SourceID.String(),
		url.Location,
		url.LastMod,
		url.ChangeFreq,
		url.Priority,
		url.FirstSeen,
		url.LastSeen,
	)

	return err
}

func (s *SQLiteStore) ListURLs(ctx context.Context, sourceID uuid.UUID, limit, offset int) ([]*models.DiscoveredURL, error) {
	query := `
        SELECT id, source_id, location, last_mod, change_freq, priority, title, status_code, first_seen, last_seen
        FROM urls
        WHERE source_id = ?
        ORDER BY location
        LIMIT ? OFFSET ?
    `

	rows, err := s.db.QueryContext(ctx, query, sourceID.String(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanURLs(rows)
}

func (s *SQLiteStore) SearchURLs(ctx context.Context, search string, limit, offset int) ([]*models.DiscoveredURL, error) {
	query := `
        SELECT id, source_id, location, last_mod, change_freq, priority, title, status_code, first_seen, last_seen
        FROM urls
        WHERE location LIKE ? OR title LIKE ?
        ORDER BY location
        LIMIT ? OFFSET ?
    `

	pattern := "%" + search + "%"
	rows, err := s.db.QueryContext(ctx, query, pattern, pattern, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanURLs(rows)
}

func (s *SQLiteStore) CountURLs(ctx context.Context, sourceID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM urls WHERE source_id = ?`, sourceID.String()).Scan(&count)
	return count, err
}

func (s *SQLiteStore) SetProbeResult(ctx context.Context, sourceID uuid.UUID, location string, statusCode int, title string) error {
	query := `
        UPDATE urls SET status_code = ?, title = ?
        WHERE source_id = ? AND location = ?
    `

	_, err := s.db.ExecContext(ctx, query, statusCode, title, sourceID.String(), location)
	return err
}

func (s *SQLiteStore) CreateHarvestRun(ctx context.Context, run *models.HarvestRun) error {
	errorsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("error marshaling errors: %w", err)
	}

	query := `
        INSERT INTO harvest_runs (id, source_id, started_at, finished_at, urls_found,
            documents_fetched, skipped_records, error_count, errors)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	_, err = s.db.ExecContext(ctx, query,
		run.ID.String(),
		run.SourceID.String(),
		run.StartedAt,
		run.FinishedAt,
		run.URLsFound,
		run.DocumentsFetched,
		run.SkippedRecords,
		run.ErrorCount,
		string(errorsJSON),
	)

	return err
}

func (s *SQLiteStore) ListHarvestRuns(ctx context.Context, sourceID uuid.UUID, limit int) ([]*models.HarvestRun, error) {
	query := `
        SELECT id, source_id, started_at, finished_at, urls_found,
            documents_fetched, skipped_records, error_count, errors
        FROM harvest_runs
        WHERE source_id = ?
        ORDER BY started_at DESC
        LIMIT ?
    `

	rows, err := s.db.QueryContext(ctx, query, sourceID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.HarvestRun
	for rows.Next() {
		run := &models.HarvestRun{}
		var id, sourceIDStr, errorsJSON string

		err := rows.Scan(
			&id,
			&sourceIDStr,
			&run.StartedAt,
			&run.FinishedAt,
			&run.URLsFound,
			&run.DocumentsFetched,
			&run.SkippedRecords,
			&run.ErrorCount,
			&errorsJSON,
		)
		if err != nil {
			return nil, err
		}

		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if run.SourceID, err = uuid.Parse(sourceIDStr); err != nil {
			return nil, err
		}
		if errorsJSON != "" {
			if err := json.Unmarshal([]byte(errorsJSON), &run.Errors); err != nil {
				return nil, err
			}
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSource(row rowScanner) (*models.SitemapSource, error) {
	source := &models.SitemapSource{}
	var id, errorsJSON string

	err := row.Scan(
		&id,
		&source.Name,
		&source.SitemapURL,
		&source.UserAgent,
		&source.FetchInterval,
		&source.MaxDepth,
		&source.MaxDocuments,
		&source.FailurePolicy,
		&source.Status,
		&source.LastRun,
		&source.NextRun,
		&errorsJSON,
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if source.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if errorsJSON != "" {
		if err := json.Unmarshal([]byte(errorsJSON), &source.Errors); err != nil {
			return nil, err
		}
	}

	return source, nil
}

func scanURLs(rows *sql.Rows) ([]*models.DiscoveredURL, error) {
	var urls []*models.DiscoveredURL
	for rows.Next() {
		url := &models.DiscoveredURL{}
		var id, sourceID string
		var title sql.NullString

		err := rows.Scan(
			&id,
			&sourceID,
			&url.Location,
			&url.LastMod,
			&url.ChangeFreq,
			&url.Priority,
			&title,
			&url.StatusCode,
			&url.FirstSeen,
			&url.LastSeen,
		)
		if err != nil {
			return nil, err
		}

		if url.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if url.SourceID, err = uuid.Parse(sourceID); err != nil {
			return nil, err
		}
		url.Title = title.String

		urls = append(urls, url)
	}

	return urls, rows.Err()
}

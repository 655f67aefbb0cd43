package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/romangod6/sitemap-harvester/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sources (
            id UUID PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            sitemap_url VARCHAR(2048) UNIQUE NOT NULL,
            user_agent VARCHAR(255),
            fetch_interval VARCHAR(64),
            max_depth INTEGER NOT NULL DEFAULT 0,
            max_documents INTEGER NOT NULL DEFAULT 0,
            failure_policy VARCHAR(32),
            status VARCHAR(32),
            last_run TIMESTAMP,
            next_run TIMESTAMP,
            errors TEXT[],
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS urls (
            id UUID PRIMARY KEY,
            source_id UUID REFERENCES sources(id),
            location VARCHAR(2048) NOT NULL,
            last_mod TIMESTAMP,
            change_freq VARCHAR(32),
            priority DOUBLE PRECISION,
            title TEXT,
            status_code INTEGER NOT NULL DEFAULT 0,
            first_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            last_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(source_id, location)
        )`,
		`CREATE TABLE IF NOT EXISTS harvest_runs (
            id UUID PRIMARY KEY,
            source_id UUID REFERENCES sources(id),
            started_at TIMESTAMP NOT NULL,
            finished_at TIMESTAMP NOT NULL,
            urls_found INTEGER NOT NULL DEFAULT 0,
            documents_fetched INTEGER NOT NULL DEFAULT 0,
            skipped_records INTEGER NOT NULL DEFAULT 0,
            error_count INTEGER NOT NULL DEFAULT 0,
            errors TEXT[]
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

func (s *PostgresStore) CreateSource(ctx context.Context, source *models.SitemapSource) error {
	query := `
        INSERT INTO sources (id, name, sitemap_url, user_agent, fetch_interval, max_depth,
            max_documents, failure_policy, status, last_run, next_run, errors, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            sitemap_url = EXCLUDED.sitemap_url,
            user_agent = EXCLUDED.user_agent,
            fetch_interval = EXCLUDED.fetch_interval,
            max_depth = EXCLUDED.max_depth,
            max_documents = EXCLUDED.max_documents,
            failure_policy = EXCLUDED.failure_policy,
            status = EXCLUDED.status,
            updated_at = CURRENT_TIMESTAMP
    `

	_, err := s.db.ExecContext(ctx, query,
		source.ID,
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
		pq.Array(source.Errors),
		source.CreatedAt,
		source.UpdatedAt,
	)

	return err
}

func (s *PostgresStore) GetSource(ctx context.Context, id uuid.UUID) (*models.SitemapSource, error) {
	query := `
        SELECT id, name, sitemap_url, user_agent, fetch_interval, max_depth,
            max_documents, failure_policy, status, last_run, next_run, errors, created_at, updated_at
        FROM sources
        WHERE id = $1
    `

	source := &models.SitemapSource{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&source.ID,
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
		pq.Array(&source.Errors),
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return source, nil
}

func (s *PostgresStore) ListSources(ctx context.Context) ([]*models.SitemapSource, error) {
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
		source := &models.SitemapSource{}
		err := rows.Scan(
			&source.ID,
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
			pq.Array(&source.Errors),
			&source.CreatedAt,
			&source.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

func (s *PostgresStore) UpdateSource(ctx context.Context, source *models.SitemapSource) error {
	query := `
        UPDATE sources SET
            name = $1,
            sitemap_url = $2,
            user_agent = $3,
            fetch_interval = $4,
            max_depth = $5,
            max_documents = $6,
            failure_policy = $7,
            status = $8,
            last_run = $9,
            next_run = $10,
            errors = $11,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $12
    `

	_, err := s.db.ExecContext(ctx, query,
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
		pq.Array(source.Errors),
		source.ID,
	)

	return err
}

func (s *PostgresStore) DeleteSource(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM urls WHERE source_id = $1`, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM harvest_runs WHERE source_id = $1`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) UpsertURL(ctx context.Context, url *models.DiscoveredURL) error {
	query := `
        INSERT INTO urls (id, source_id, location, last_mod, change_freq, priority, first_seen, last_seen)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (source_id, location) DO UPDATE SET
            last_mod = EXCLUDED.last_mod,
            change_freq = EXCLUDED.change_freq,
            priority = EXCLUDED.priority,
            last_seen = EXCLUDED.last_seen
    `

	_, err := s.db.ExecContext(ctx, query,
		url.ID,
		url.SourceID,
		url.Location,
		url.LastMod,
		url.ChangeFreq,
		url.Priority,
		url.FirstSeen,
		url.LastSeen,
	)

	return err
}

func (s *PostgresStore) ListURLs(ctx context.Context, sourceID uuid.UUID, limit, offset int) ([]*models.DiscoveredURL, error) {
	query := `
        SELECT id, source_id, location, last_mod, change_freq, priority, title, status_code, first_seen, last_seen
        FROM urls
        WHERE source_id = $1
        ORDER BY location
        LIMIT $2 OFFSET $3
    `

	rows, err := s.db.QueryContext(ctx, query, sourceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPostgresURLs(rows)
}

func (s *PostgresStore) SearchURLs(ctx context.Context, search string, limit, offset int) ([]*models.DiscoveredURL, error) {
	query := `
        SELECT id, source_id, location, last_mod, change_freq, priority, title, status_code, first_seen, last_seen
        FROM urls
        WHERE location ILIKE $1 OR title ILIKE $1
        ORDER BY location
        LIMIT $2 OFFSET $3
    `

	rows, err := s.db.QueryContext(ctx, query, "%"+search+"%", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPostgresURLs(rows)
}

func (s *PostgresStore) CountURLs(ctx context.Context, sourceID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM urls WHERE source_id = $1`, sourceID).Scan(&count)
	return count, err
}

func (s *PostgresStore) SetProbeResult(ctx context.Context, sourceID uuid.UUID, location string, statusCode int, title string) error {
	query := `
        UPDATE urls SET status_code = $1, title = $2
        WHERE source_id = $3 AND location = $4
    `

	_, err := s.db.ExecContext(ctx, query, statusCode, title, sourceID, location)
	return err
}

func (s *PostgresStore) CreateHarvestRun(ctx context.Context, run *models.HarvestRun) error {
	query := `
        INSERT INTO harvest_runs (id, source_id, started_at, finished_at, urls_found,
            documents_fetched, skipped_records, error_count, errors)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.SourceID,
		run.StartedAt,
		run.FinishedAt,
		run.URLsFound,
		run.DocumentsFetched,
		run.SkippedRecords,
		run.ErrorCount,
		pq.Array(run.Errors),
	)

	return err
}

func (s *PostgresStore) ListHarvestRuns(ctx context.Context, sourceID uuid.UUID, limit int) ([]*models.HarvestRun, error) {
	query := `
        SELECT id, source_id, started_at, finished_at, urls_found,
            documents_fetched, skipped_records, error_count, errors
        FROM harvest_runs
        WHERE source_id = $1
        ORDER BY started_at DESC
        LIMIT $2
    `

	rows, err := s.db.QueryContext(ctx, query, sourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.HarvestRun
	for rows.Next() {
		run := &models.HarvestRun{}
		err := rows.Scan(
			&run.ID,
			&run.SourceID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.URLsFound,
			&run.DocumentsFetched,
			&run.SkippedRecords,
			&run.ErrorCount,
			pq.Array(&run.Errors),
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scanPostgresURLs(rows *sql.Rows) ([]*models.DiscoveredURL, error) {
	var urls []*models.DiscoveredURL
	for rows.Next() {
		url := &models.DiscoveredURL{}
		var title sql.NullString

		err := rows.Scan(
			&url.ID,
			&url.SourceID,
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
		url.Title = title.String

		urls = append(urls, url)
	}

	return urls, rows.Err()
}

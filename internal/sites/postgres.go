package sites

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *database.DB and pgx transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PostgresStore keeps the registry in the sites table.
type PostgresStore struct {
	db Querier
}

func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Seed inserts DefaultSites when the table is empty.
func (s *PostgresStore) Seed(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM sites`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count sites: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, site := range DefaultSites() {
		if err := s.Add(ctx, site); err != nil && !errors.Is(err, ErrDuplicate) {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Site, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, url, base_url
		FROM sites
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	sites := []Site{}
	for rows.Next() {
		var site Site
		if err := rows.Scan(&site.ID, &site.Name, &site.URL, &site.BaseURL); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sites: %w", err)
	}
	return sites, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Site, error) {
	var site Site
	err := s.db.QueryRow(ctx, `
		SELECT id, name, url, base_url
		FROM sites
		WHERE id = $1
	`, id).Scan(&site.ID, &site.Name, &site.URL, &site.BaseURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return Site{}, ErrNotFound
	}
	if err != nil {
		return Site{}, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

func (s *PostgresStore) Add(ctx context.Context, site Site) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO sites (id, name, url, base_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, site.ID, site.Name, site.URL, site.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to insert site: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

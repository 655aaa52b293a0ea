package reportstore

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists reports in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

const createReportsTable = `
CREATE TABLE IF NOT EXISTS reports (
	id          UUID PRIMARY KEY,
	url         TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	reporter_ip TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
)`

// NewPGStore connects to the database and ensures the reports table
// exists. The caller decides whether a connection failure is fatal;
// typically the service falls back to MemStore.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 8

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createReportsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure reports table: %w", err)
	}

	log.Printf("[REPORTS] postgres store ready (max %d conns)", cfg.MaxConns)
	return &PGStore{pool: pool}, nil
}

func (p *PGStore) Save(ctx context.Context, r *Report) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO reports (id, url, description, reporter_ip, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.URL, r.Description, r.ReporterIP, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (p *PGStore) Recent(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, url, description, reporter_ip, created_at
		 FROM reports ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.URL, &r.Description, &r.ReporterIP, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PGStore) Close() {
	p.pool.Close()
}

// Package database holds the relational store handle consumed by the
// health aggregator. Schema and migration management live outside this
// service.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Service wraps the database handle together with its reported type.
type Service struct {
	db  *sql.DB
	typ string
}

// Open connects to the database named by url. SQLite URLs
// ("sqlite://file.db", ":memory:", plain paths) are served by the embedded
// driver; other schemes are rejected until a driver is wired for them.
func Open(url string) (*Service, error) {
	typ := TypeFromURL(url)
	if typ != "sqlite" {
		return nil, fmt.Errorf("open database: unsupported url %q (no %s driver wired)", url, typ)
	}

	dsn := strings.TrimPrefix(url, "sqlite://")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Service{db: db, typ: typ}, nil
}

// NewFromDB wraps an existing handle. Used by tests and by callers that
// manage the pool themselves.
func NewFromDB(db *sql.DB, typ string) *Service {
	return &Service{db: db, typ: typ}
}

// Type reports the database flavor for health reports.
func (s *Service) Type() string {
	return s.typ
}

// HealthCheck verifies connectivity with a trivial query.
func (s *Service) HealthCheck(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *Service) Close() error {
	return s.db.Close()
}

// TypeFromURL classifies a connection URL as postgresql, sqlite, or unknown.
func TypeFromURL(url string) string {
	switch {
	case strings.Contains(url, "postgresql"), strings.Contains(url, "postgres://"):
		return "postgresql"
	case strings.Contains(url, "sqlite"), url == ":memory:", strings.HasSuffix(url, ".db"):
		return "sqlite"
	default:
		return "unknown"
	}
}

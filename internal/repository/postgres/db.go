package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/jwalitptl/jobboard-messaging/internal/config"
)

// ErrMissingServiceCredential is returned when the elevated connection
// string is not configured.
var ErrMissingServiceCredential = errors.New("service database credential is not configured")

func NewDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return connect(cfg.DSN(), cfg)
}

// ServiceDB is a connection made with the elevated service credential. It
// bypasses row-level policies and is the only way to write notifications
// for users other than the caller.
type ServiceDB struct {
	*sqlx.DB
}

// NewServiceDB connects with the elevated credential in url. It refuses to
// start without one rather than silently falling back to the user pool.
func NewServiceDB(url string, cfg config.DatabaseConfig) (*ServiceDB, error) {
	if url == "" {
		return nil, ErrMissingServiceCredential
	}
	db, err := connect(url, cfg)
	if err != nil {
		return nil, fmt.Errorf("service database: %w", err)
	}
	return &ServiceDB{DB: db}, nil
}

func connect(dsn string, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

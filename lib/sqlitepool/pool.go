// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// connectionPragmas apply to every connection before OnConnect. The
// state database is tiny and written rarely, so durability wins over
// write throughput.
var connectionPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=FULL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// Config describes a pool.
type Config struct {
	// Path is the database file; its directory must exist. Required.
	Path string

	// Size is the connection count. Zero means 2: the session
	// runner's writer plus one reader for the control API.
	Size int

	// OnConnect prepares each new connection, usually by creating the
	// schema.
	OnConnect func(conn *sqlite.Conn) error

	Logger *slog.Logger
}

// Pool hands out prepared SQLite connections.
type Pool struct {
	inner  *sqlitex.Pool
	path   string
	logger *slog.Logger
}

// Open opens a pool. Connections are prepared on first use.
func Open(config Config) (*Pool, error) {
	if config.Path == "" {
		return nil, errors.New("sqlitepool: Path is required")
	}
	if config.Size <= 0 {
		config.Size = 2
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	inner, err := sqlitex.NewPool(config.Path, sqlitex.PoolOptions{
		PoolSize: config.Size,
		PrepareConn: func(conn *sqlite.Conn) error {
			for _, pragma := range connectionPragmas {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("%s: %w", pragma, err)
				}
			}
			if config.OnConnect == nil {
				return nil
			}
			return config.OnConnect(conn)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", config.Path, err)
	}
	config.Logger.Debug("state database open", "path", config.Path, "connections", config.Size)
	return &Pool{inner: inner, path: config.Path, logger: config.Logger}, nil
}

// Take borrows a connection until Put. It blocks while all are in use.
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: %s: %w", p.path, err)
	}
	return conn, nil
}

// Put returns a borrowed connection.
func (p *Pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Do runs fn on a borrowed connection and returns it afterwards.
func (p *Pool) Do(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)
	return fn(conn)
}

// Close waits for borrowed connections, then closes every connection.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Warn("closing state database", "path", p.path, "error", err)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	return nil
}

// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package basic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/mattn/go-sqlite3"

	"github.com/united-manufacturing-hub/htapp/pkg/constants"
	"github.com/united-manufacturing-hub/htapp/pkg/logger"
)

type sqliteStore struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
}

// NewSQLiteStore opens (creating if needed) the database file at dbPath.
// Opening is retried with exponential backoff while the file is locked by
// another process.
func NewSQLiteStore(dbPath string) (Store, error) {
	log := logger.For(logger.ComponentStore)

	if network, fsType, err := IsNetworkFilesystem(dbPath); err == nil && network {
		log.Warnf("database %s is on a %s filesystem, WAL locking may be unreliable", dbPath, fsType)
	}

	db, err := sql.Open("sqlite3", buildConnectionString(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ping := func() error {
		err := db.Ping()
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), constants.StoreOpenRetries)

	if err := backoff.RetryNotify(ping, policy, func(err error, next time.Duration) {
		log.Debugf("database busy, retrying in %s: %v", next, err)
	}); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", unwrapPermanent(err))
	}

	log.Debugf("opened database at %s", dbPath)

	return &sqliteStore{
		db:   db,
		path: dbPath,
	}, nil
}

func buildConnectionString(dbPath string) string {
	params := "?cache=shared&mode=rwc&_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000&_cache_size=-64000"

	if runtime.GOOS == "darwin" {
		params += "&_fullfsync=1"
	}

	return dbPath + params
}

func isBusy(err error) bool {
	msg := err.Error()

	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func unwrapPermanent(err error) error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}

	return err
}

func (s *sqliteStore) Path() string {
	return s.path
}

func (s *sqliteStore) Query(ctx context.Context, query string, params ...any) ([]Row, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	return queryRows(ctx, s.db, query, params)
}

func (s *sqliteStore) QueryRow(ctx context.Context, query string, params ...any) (Row, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	return firstRow(ctx, s.db, query, params)
}

func (s *sqliteStore) Exec(ctx context.Context, query string, params ...any) (ExecResult, error) {
	if s.closed.Load() {
		return ExecResult{}, ErrStoreClosed
	}

	return execStatement(ctx, s.db, query, params)
}

func (s *sqliteStore) BeginTx(ctx context.Context) (Tx, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelDefault,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTx{tx: tx}, nil
}

func (s *sqliteStore) Backup(ctx context.Context, destPath string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}

	return nil
}

func (s *sqliteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return errors.New("store already closed")
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

type sqliteTx struct {
	tx     *sql.Tx
	closed bool
}

func (t *sqliteTx) Query(ctx context.Context, query string, params ...any) ([]Row, error) {
	if t.closed {
		return nil, ErrTxClosed
	}

	return queryRows(ctx, t.tx, query, params)
}

func (t *sqliteTx) QueryRow(ctx context.Context, query string, params ...any) (Row, error) {
	if t.closed {
		return nil, ErrTxClosed
	}

	return firstRow(ctx, t.tx, query, params)
}

func (t *sqliteTx) Exec(ctx context.Context, query string, params ...any) (ExecResult, error) {
	if t.closed {
		return ExecResult{}, ErrTxClosed
	}

	return execStatement(ctx, t.tx, query, params)
}

func (t *sqliteTx) Commit() error {
	if t.closed {
		return errors.New("transaction already closed")
	}

	t.closed = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (t *sqliteTx) Rollback() error {
	if t.closed {
		return nil
	}

	t.closed = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

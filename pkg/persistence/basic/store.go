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

// Package basic is the relational store: a single embedded SQLite file
// exposing parameterized statements that return generic rows.
package basic

import (
	"context"
	"errors"
)

// Row is one result row keyed by column name. Values are the driver's
// primitive types: int64, float64, string, []byte or nil.
type Row map[string]any

// ExecResult describes the effect of a statement that returns no rows.
type ExecResult struct {
	Changes         int64 `json:"changes"`
	LastInsertRowID int64 `json:"lastInsertRowid"`
}

var (
	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("store is closed")
	// ErrTxClosed is returned by every operation after Commit or Rollback.
	ErrTxClosed = errors.New("transaction is closed")
)

// Executor runs parameterized statements.
type Executor interface {
	// Query returns every row produced by the statement. The result is never nil.
	Query(ctx context.Context, query string, params ...any) ([]Row, error)

	// QueryRow returns the first row, or nil when the statement produced none.
	QueryRow(ctx context.Context, query string, params ...any) (Row, error)

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, query string, params ...any) (ExecResult, error)
}

// Store is the owner of the database handle.
type Store interface {
	Executor

	// BeginTx starts a transaction. Nested transactions are not supported.
	BeginTx(ctx context.Context) (Tx, error)

	// Backup writes a consistent copy of the database to destPath, which must not exist.
	Backup(ctx context.Context, destPath string) error

	// Path returns the database file path.
	Path() string

	// Close releases the handle. Calling it twice is an error.
	Close() error
}

// Tx is a transaction. It must be finished with Commit or Rollback;
// Rollback after Commit is a no-op.
type Tx interface {
	Executor

	Commit() error
	Rollback() error
}

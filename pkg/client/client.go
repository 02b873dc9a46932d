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

// Package client is the unprivileged side of the data layer. It builds
// statements from a chainable description and sends them across the
// boundary; it never touches the database or the disk itself.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/htapp/pkg/ipc"
	"github.com/united-manufacturing-hub/htapp/pkg/logger"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/basic"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
	"github.com/united-manufacturing-hub/htapp/pkg/safejson"
)

var (
	// ErrOfflineOnly is returned when no host process is available.
	ErrOfflineOnly = errors.New("the application runs offline inside the desktop host only; no host is available")
	// ErrNoRows is the Single error for an empty result.
	ErrNoRows = errors.New("No rows found") //nolint:staticcheck // ST1005: shown to users verbatim
)

// Row is one table row keyed by column name.
type Row = basic.Row

// Result carries the data of a terminal operation or its error.
type Result[T any] struct {
	Data T
	Err  error
}

// DB is the entry point of the query builder.
type DB struct {
	bridge *ipc.Bridge
	logger *zap.SugaredLogger
}

// New returns a client over host. A nil host fails with ErrOfflineOnly.
func New(host ipc.Transport) (*DB, error) {
	if host == nil {
		return nil, ErrOfflineOnly
	}

	return &DB{
		bridge: ipc.NewBridge(host),
		logger: logger.For(logger.ComponentClient),
	}, nil
}

// From starts a builder on table. Nothing is sent before a terminal call.
func (db *DB) From(table schema.TableName) *QueryBuilder {
	def, _ := schema.Lookup(table)

	return &QueryBuilder{
		db:    db,
		table: table,
		def:   def,
		query: persistence.NewQuery(),
	}
}

// Raw runs a parameterized statement and decodes its rows without table
// knowledge. Non-SELECT statements yield an empty list; use Exec to see
// their effect.
func (db *DB) Raw(ctx context.Context, sql string, params ...any) Result[[]Row] {
	args, err := encodeArgs(params)
	if err != nil {
		return Result[[]Row]{Err: err}
	}

	resp := db.bridge.Query(ctx, sql, args)
	if resp.Failed() {
		return Result[[]Row]{Err: errors.New(resp.ErrorMessage())}
	}

	if bytes.HasPrefix(bytes.TrimSpace(resp.Data), []byte("{")) {
		return Result[[]Row]{Data: []Row{}}
	}

	rows, err := decodeRows(nil, resp.Data)

	return Result[[]Row]{Data: rows, Err: err}
}

// Exec runs a parameterized statement that returns no rows and reports the
// number of changed rows and the last inserted rowid.
func (db *DB) Exec(ctx context.Context, sql string, params ...any) Result[basic.ExecResult] {
	args, err := encodeArgs(params)
	if err != nil {
		return Result[basic.ExecResult]{Err: err}
	}

	resp := db.bridge.Query(ctx, sql, args)
	if resp.Failed() {
		return Result[basic.ExecResult]{Err: errors.New(resp.ErrorMessage())}
	}

	if !bytes.HasPrefix(bytes.TrimSpace(resp.Data), []byte("{")) {
		return Result[basic.ExecResult]{Err: errors.New("statement returned rows; use Raw")}
	}

	var res basic.ExecResult
	if err := safejson.Unmarshal(resp.Data, &res); err != nil {
		return Result[basic.ExecResult]{Err: fmt.Errorf("failed to decode statement result: %w", err)}
	}

	return Result[basic.ExecResult]{Data: res}
}

// Storage returns the file storage facade.
func (db *DB) Storage() *Storage {
	return &Storage{bridge: db.bridge}
}

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

// Package gateway is the privileged side of the data layer: the only code
// holding the database handle and touching the storage directories. Every
// operation returns a Result and never panics across its boundary.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/htapp/pkg/filestore"
	"github.com/united-manufacturing-hub/htapp/pkg/logger"
	"github.com/united-manufacturing-hub/htapp/pkg/metrics"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/basic"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/codec"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
)

// Result is the outcome of one gateway operation. Error is nil on success.
type Result struct {
	Data  any     `json:"data"`
	Error *string `json:"error"`
}

// Failed reports whether the operation failed.
func (r Result) Failed() bool {
	return r.Error != nil
}

// Options configures Open.
type Options struct {
	DatabasePath string
	StoragePath  string
}

// Service owns the relational store and the file store.
type Service struct {
	store     basic.Store
	files     *filestore.Store
	lifecycle *fsm.FSM
	logger    *zap.SugaredLogger
}

// Open brings the gateway up in order: open the store, ensure the schema,
// ensure the storage directories, then accept requests. Any failure closes
// what was opened and is returned.
func Open(ctx context.Context, opts Options) (*Service, error) {
	s := &Service{logger: logger.For(logger.ComponentGateway)}
	s.lifecycle = s.newLifecycle()

	if err := s.start(ctx, opts); err != nil {
		_ = s.Close()

		return nil, err
	}

	return s, nil
}

func (s *Service) start(ctx context.Context, opts Options) error {
	store, err := basic.NewSQLiteStore(opts.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	s.store = store

	if err := s.lifecycle.Event(ctx, EventOpenStore); err != nil {
		return err
	}

	if err := schema.Bootstrap(ctx, s.store); err != nil {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	if err := s.lifecycle.Event(ctx, EventBootstrap); err != nil {
		return err
	}

	files, err := filestore.New(opts.StoragePath)
	if err != nil {
		return err
	}

	if err := files.EnsureDirs(); err != nil {
		return err
	}

	s.files = files

	if err := s.lifecycle.Event(ctx, EventPrepareStorage); err != nil {
		return err
	}

	return s.lifecycle.Event(ctx, EventServe)
}

// Close stops accepting requests and closes the store. It is safe to call
// more than once.
func (s *Service) Close() error {
	if s.lifecycle.Current() == StateClosed {
		return nil
	}

	if err := s.lifecycle.Event(context.Background(), EventClose); err != nil {
		return err
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return err
		}
	}

	s.logger.Infof("gateway closed")

	return nil
}

// Files returns the file store.
func (s *Service) Files() *filestore.Store {
	return s.files
}

// run executes op on behalf of channel. The operation is detached from
// ctx cancellation so a dispatched statement always runs to completion.
// Panics and errors become an error string.
func (s *Service) run(ctx context.Context, channel string, op func(ctx context.Context) (any, error)) (res Result) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = failure(fmt.Errorf("internal error: %v", r))
		}

		metrics.ObserveGatewayRequest(channel, res.Failed(), time.Since(started))

		if res.Failed() {
			metrics.IncErrorCount(metrics.ComponentGateway, channel)
			s.logger.Warnf("%s failed: %s", channel, *res.Error)
		}
	}()

	if !s.serving() {
		return failure(fmt.Errorf("gateway is not serving (state=%s)", s.State()))
	}

	data, err := op(context.WithoutCancel(ctx))
	if err != nil {
		return failure(err)
	}

	return Result{Data: data}
}

func failure(err error) Result {
	msg := err.Error()
	if msg == "" {
		msg = "unknown error"
	}

	return Result{Error: &msg}
}

// IsSelect reports whether a statement returns rows, judged by a leading SELECT.
func IsSelect(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT")
}

// Query runs a parameterized statement. SELECT statements yield rows; all
// others yield a basic.ExecResult.
func (s *Service) Query(ctx context.Context, sql string, params []any) Result {
	return s.run(ctx, "db:query", func(ctx context.Context) (any, error) {
		args, err := codec.EncodeParams(params)
		if err != nil {
			return nil, err
		}

		if IsSelect(sql) {
			return s.store.Query(ctx, sql, args...)
		}

		return s.store.Exec(ctx, sql, args...)
	})
}

// Get runs a parameterized statement and yields its first row or nil.
func (s *Service) Get(ctx context.Context, sql string, params []any) Result {
	return s.run(ctx, "db:get", func(ctx context.Context) (any, error) {
		args, err := codec.EncodeParams(params)
		if err != nil {
			return nil, err
		}

		row, err := s.store.QueryRow(ctx, sql, args...)
		if err != nil || row == nil {
			return nil, err
		}

		return row, nil
	})
}

// Insert adds one row, generating an id when data has none, and yields the
// row as stored.
func (s *Service) Insert(ctx context.Context, table string, data map[string]any) Result {
	return s.run(ctx, "db:insert", func(ctx context.Context) (any, error) {
		if err := persistence.ValidateIdentifier(table); err != nil {
			return nil, err
		}

		values, err := codec.EncodeMap(data)
		if err != nil {
			return nil, err
		}

		if id, ok := values["id"]; !ok || id == nil || id == "" {
			values["id"] = uuid.New().String()
		}

		columns, err := sortedColumns(values)
		if err != nil {
			return nil, err
		}

		args := make([]any, len(columns))
		for i, c := range columns {
			args[i] = values[c]
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)

		if _, err := s.store.Exec(ctx, stmt, args...); err != nil {
			return nil, err
		}

		return s.store.QueryRow(ctx, fmt.Sprintf("SELECT * FROM %s WHERE id = ?", table), values["id"])
	})
}

// Update sets the columns in data on every row matching all of where, and
// yields the first matching row afterwards.
func (s *Service) Update(ctx context.Context, table string, data, where map[string]any) Result {
	return s.run(ctx, "db:update", func(ctx context.Context) (any, error) {
		if err := persistence.ValidateIdentifier(table); err != nil {
			return nil, err
		}

		if len(data) == 0 {
			return nil, errors.New("update requires at least one column")
		}

		set, setArgs, err := assignments(data, ", ")
		if err != nil {
			return nil, err
		}

		cond, condArgs, err := whereClause(where)
		if err != nil {
			return nil, err
		}

		stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, set, cond)
		if _, err := s.store.Exec(ctx, stmt, append(setArgs, condArgs...)...); err != nil {
			return nil, err
		}

		row, err := s.store.QueryRow(ctx, fmt.Sprintf("SELECT * FROM %s WHERE %s", table, cond), condArgs...)
		if err != nil || row == nil {
			return nil, err
		}

		return row, nil
	})
}

// Delete removes every row matching all of where and yields true.
func (s *Service) Delete(ctx context.Context, table string, where map[string]any) Result {
	return s.run(ctx, "db:delete", func(ctx context.Context) (any, error) {
		if err := persistence.ValidateIdentifier(table); err != nil {
			return nil, err
		}

		cond, args, err := whereClause(where)
		if err != nil {
			return nil, err
		}

		if _, err := s.store.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", table, cond), args...); err != nil {
			return nil, err
		}

		return true, nil
	})
}

func whereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, errors.New("a where condition is required")
	}

	return assignments(where, " AND ")
}

// assignments renders `col = ?` pairs joined by sep, in column order.
func assignments(m map[string]any, sep string) (string, []any, error) {
	values, err := codec.EncodeMap(m)
	if err != nil {
		return "", nil, err
	}

	columns, err := sortedColumns(values)
	if err != nil {
		return "", nil, err
	}

	parts := make([]string, len(columns))
	args := make([]any, len(columns))

	for i, c := range columns {
		parts[i] = c + " = ?"
		args[i] = values[c]
	}

	return strings.Join(parts, sep), args, nil
}

func sortedColumns(m map[string]any) ([]string, error) {
	columns := make([]string, 0, len(m))

	for c := range m {
		if err := persistence.ValidateIdentifier(c); err != nil {
			return nil, err
		}

		columns = append(columns, c)
	}

	sort.Strings(columns)

	return columns, nil
}

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

package client

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tiendc/go-deepcopy"

	"github.com/united-manufacturing-hub/htapp/pkg/persistence"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/codec"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
)

type mode int

const (
	modeSelect mode = iota
	modeInsert
	modeUpdate
	modeDelete
)

func (m mode) String() string {
	switch m {
	case modeInsert:
		return "insert"
	case modeUpdate:
		return "update"
	case modeDelete:
		return "delete"
	default:
		return "select"
	}
}

// QueryBuilder accumulates one operation against one table. Setters return
// the builder; terminal calls send it.
type QueryBuilder struct {
	db      *DB
	table   schema.TableName
	def     *schema.Table
	mode    mode
	columns []string
	query   *persistence.Query
	rows    []Row
	values  Row
	err     error
}

// Select sets the projection. Each argument may itself be a comma separated
// list; no columns or "*" selects every column. Select never changes the
// operation: after Insert or Update it only trims the returned rows.
func (b *QueryBuilder) Select(columns ...string) *QueryBuilder {
	b.columns = nil

	for _, c := range columns {
		b.columns = append(b.columns, persistence.ParseColumns(c)...)
	}

	return b
}

// Insert queues rows for insertion, one request per row.
func (b *QueryBuilder) Insert(rows ...Row) *QueryBuilder {
	b.mode = modeInsert
	b.rows = make([]Row, 0, len(rows))

	for _, r := range rows {
		b.rows = append(b.rows, b.copyRow(r))
	}

	return b
}

// InsertOne queues a single row for insertion.
func (b *QueryBuilder) InsertOne(row Row) *QueryBuilder {
	return b.Insert(row)
}

// Update sets the new column values. Rows are chosen by Eq filters.
func (b *QueryBuilder) Update(values Row) *QueryBuilder {
	b.mode = modeUpdate
	b.values = b.copyRow(values)

	return b
}

// Delete removes the rows chosen by Eq filters.
func (b *QueryBuilder) Delete() *QueryBuilder {
	b.mode = modeDelete

	return b
}

func (b *QueryBuilder) copyRow(r Row) Row {
	if r == nil {
		return Row{}
	}

	var out Row
	if err := deepcopy.Copy(&out, &r); err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to copy row: %w", err)
	}

	return out
}

func (b *QueryBuilder) filter(column string, op persistence.Operator, value any) *QueryBuilder {
	b.query.Filter(column, op, value)

	return b
}

func (b *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return b.filter(column, persistence.Eq, value)
}

func (b *QueryBuilder) Neq(column string, value any) *QueryBuilder {
	return b.filter(column, persistence.Neq, value)
}

func (b *QueryBuilder) Gt(column string, value any) *QueryBuilder {
	return b.filter(column, persistence.Gt, value)
}

func (b *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	return b.filter(column, persistence.Gte, value)
}

func (b *QueryBuilder) Lt(column string, value any) *QueryBuilder {
	return b.filter(column, persistence.Lt, value)
}

func (b *QueryBuilder) Lte(column string, value any) *QueryBuilder {
	return b.filter(column, persistence.Lte, value)
}

func (b *QueryBuilder) Like(column, pattern string) *QueryBuilder {
	return b.filter(column, persistence.Like, pattern)
}

// ILike matches case-insensitively.
func (b *QueryBuilder) ILike(column, pattern string) *QueryBuilder {
	return b.filter(column, persistence.ILike, pattern)
}

// In matches any element of values, which must be a slice or array.
func (b *QueryBuilder) In(column string, values any) *QueryBuilder {
	return b.filter(column, persistence.In, values)
}

// Contains matches JSON text columns holding value, e.g. Contains("assigned_grades", []int{5}).
func (b *QueryBuilder) Contains(column string, value any) *QueryBuilder {
	return b.filter(column, persistence.Contains, value)
}

// Order appends a sort column.
func (b *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	b.query.Sort(column, ascending)

	return b
}

// Limit caps the number of selected rows. Zero means no limit.
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	b.query.Limit(n)

	return b
}

// Execute sends the operation. Select yields the matching rows, insert the
// stored rows (those stored before a failure stay stored and are returned
// alongside the error), update the first updated row, delete nothing.
func (b *QueryBuilder) Execute(ctx context.Context) Result[[]Row] {
	if b.err != nil {
		return Result[[]Row]{Err: b.err}
	}

	var (
		rows []Row
		err  error
	)

	switch b.mode {
	case modeInsert:
		rows, err = b.insert(ctx)
		rows = b.project(rows)
	case modeUpdate:
		rows, err = b.update(ctx)
		rows = b.project(rows)
	case modeDelete:
		rows, err = b.delete(ctx)
	default:
		rows, err = b.selectRows(ctx)
	}

	if err != nil {
		b.db.logger.Debugf("%s on %s failed: %v", b.mode, b.table, err)
	}

	return Result[[]Row]{Data: rows, Err: err}
}

// Single yields the first row, failing with ErrNoRows when there is none.
func (b *QueryBuilder) Single(ctx context.Context) Result[Row] {
	res := b.Execute(ctx)
	if res.Err != nil {
		return Result[Row]{Err: res.Err}
	}

	if len(res.Data) == 0 {
		return Result[Row]{Err: ErrNoRows}
	}

	return Result[Row]{Data: res.Data[0]}
}

// MaybeSingle yields the first row, or nil data and no error when there is none.
func (b *QueryBuilder) MaybeSingle(ctx context.Context) Result[Row] {
	res := b.Execute(ctx)
	if res.Err != nil || len(res.Data) == 0 {
		return Result[Row]{Err: res.Err}
	}

	return Result[Row]{Data: res.Data[0]}
}

func (b *QueryBuilder) selectRows(ctx context.Context) ([]Row, error) {
	sql, args, err := b.query.BuildSelect(string(b.table), b.columns)
	if err != nil {
		return nil, err
	}

	if args, err = encodeArgs(args); err != nil {
		return nil, err
	}

	resp := b.db.bridge.Query(ctx, sql, args)
	if resp.Failed() {
		return nil, errors.New(resp.ErrorMessage())
	}

	return decodeRows(b.def, resp.Data)
}

// project trims rows returned by a write to the selected columns.
func (b *QueryBuilder) project(rows []Row) []Row {
	if rows == nil || len(b.columns) == 0 || slices.Contains(b.columns, "*") {
		return rows
	}

	out := make([]Row, 0, len(rows))

	for _, r := range rows {
		trimmed := make(Row, len(b.columns))

		for _, c := range b.columns {
			if v, ok := r[c]; ok {
				trimmed[c] = v
			}
		}

		out = append(out, trimmed)
	}

	return out
}

func (b *QueryBuilder) insert(ctx context.Context) ([]Row, error) {
	if len(b.rows) == 0 {
		return nil, errors.New("insert requires at least one row")
	}

	inserted := make([]Row, 0, len(b.rows))

	for _, r := range b.rows {
		values, err := codec.EncodeMap(r)
		if err != nil {
			return inserted, err
		}

		resp := b.db.bridge.Insert(ctx, string(b.table), values)
		if resp.Failed() {
			return inserted, errors.New(resp.ErrorMessage())
		}

		row, err := decodeRow(b.def, resp.Data)
		if err != nil {
			return inserted, err
		}

		if row != nil {
			inserted = append(inserted, row)
		}
	}

	return inserted, nil
}

func (b *QueryBuilder) update(ctx context.Context) ([]Row, error) {
	where, err := b.where()
	if err != nil {
		return nil, err
	}

	values, err := codec.EncodeMap(b.values)
	if err != nil {
		return nil, err
	}

	resp := b.db.bridge.Update(ctx, string(b.table), values, where)
	if resp.Failed() {
		return nil, errors.New(resp.ErrorMessage())
	}

	row, err := decodeRow(b.def, resp.Data)
	if err != nil || row == nil {
		return []Row{}, err
	}

	return []Row{row}, nil
}

func (b *QueryBuilder) delete(ctx context.Context) ([]Row, error) {
	where, err := b.where()
	if err != nil {
		return nil, err
	}

	resp := b.db.bridge.Delete(ctx, string(b.table), where)
	if resp.Failed() {
		return nil, errors.New(resp.ErrorMessage())
	}

	return []Row{}, nil
}

// where turns the Eq filters into the column map of an update or delete.
func (b *QueryBuilder) where() (map[string]any, error) {
	if !b.query.HasOnlyEquality() {
		return nil, fmt.Errorf("%s on %s accepts only Eq filters", b.mode, b.table)
	}

	where := b.query.EqualityMap()
	if len(where) == 0 {
		return nil, fmt.Errorf("%s on %s requires at least one Eq filter", b.mode, b.table)
	}

	return codec.EncodeMap(where)
}

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
	"fmt"
	"strings"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func queryRows(ctx context.Context, q queryer, query string, params []any) ([]Row, error) {
	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	defer func() { _ = rows.Close() }()

	result, err := scanRows(rows, 0)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func firstRow(ctx context.Context, q queryer, query string, params []any) (Row, error) {
	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	defer func() { _ = rows.Close() }()

	result, err := scanRows(rows, 1)
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, nil
	}

	return result[0], nil
}

func execStatement(ctx context.Context, q queryer, query string, params []any) (ExecResult, error) {
	res, err := q.ExecContext(ctx, query, params...)
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to execute statement: %w", err)
	}

	changes, err := res.RowsAffected()
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to get rows affected: %w", err)
	}

	lastID, err := res.LastInsertId()
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return ExecResult{Changes: changes, LastInsertRowID: lastID}, nil
}

// scanRows reads up to limit rows (0 means all). TEXT values the driver
// hands out as []byte are converted to string; declared BLOB columns keep
// their bytes.
func scanRows(rows *sql.Rows, limit int) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	blob := make([]bool, len(columns))

	if types, err := rows.ColumnTypes(); err == nil {
		for i, t := range types {
			blob[i] = strings.EqualFold(t.DatabaseTypeName(), "BLOB")
		}
	}

	result := make([]Row, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))

		for i, col := range columns {
			if b, ok := values[i].([]byte); ok && !blob[i] {
				row[col] = string(b)

				continue
			}

			row[col] = values[i]
		}

		result = append(result, row)

		if limit > 0 && len(result) >= limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

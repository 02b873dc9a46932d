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

// Package persistence holds the query model shared by the UI-side query
// builder and the relational store: filter conditions, ordering and the
// compilation of both into parameterized SQL.
package persistence

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/united-manufacturing-hub/htapp/pkg/safejson"
)

// Operator is a comparison applied by a filter condition.
type Operator string

const (
	Eq       Operator = "="
	Neq      Operator = "!="
	Gt       Operator = ">"
	Gte      Operator = ">="
	Lt       Operator = "<"
	Lte      Operator = "<="
	Like     Operator = "LIKE"
	ILike    Operator = "ILIKE"    // Case-insensitive LIKE, compiled as LOWER(col) LIKE lower(value)
	In       Operator = "IN"       // Value must be a slice or array
	Contains Operator = "CONTAINS" // Substring match against a JSON-encoded column
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrInvalidIdentifier is returned for table or column names that are not
// safe to interpolate into SQL.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ValidateIdentifier checks a table or column name before it is placed into SQL text.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidIdentifier)
	}

	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q must contain only alphanumeric characters and underscores, and must start with a letter or underscore", ErrInvalidIdentifier, name)
	}

	return nil
}

// FilterCondition is a single `column op value` predicate.
type FilterCondition struct {
	Field string
	Op    Operator
	Value any
}

// SortField orders results by one column.
type SortField struct {
	Field     string
	Ascending bool
}

// Query collects filters, ordering and a row limit. Conditions are combined with AND.
type Query struct {
	Filters    []FilterCondition
	SortBy     []SortField
	LimitCount int // 0 means unlimited
}

func NewQuery() *Query {
	return &Query{}
}

func (q *Query) Filter(field string, op Operator, value any) *Query {
	q.Filters = append(q.Filters, FilterCondition{
		Field: field,
		Op:    op,
		Value: value,
	})

	return q
}

func (q *Query) Sort(field string, ascending bool) *Query {
	q.SortBy = append(q.SortBy, SortField{
		Field:     field,
		Ascending: ascending,
	})

	return q
}

// Limit sets the maximum number of rows. Zero or negative removes the limit.
func (q *Query) Limit(count int) *Query {
	if count < 0 {
		count = 0
	}

	q.LimitCount = count

	return q
}

// HasOnlyEquality reports whether every filter uses Eq.
func (q *Query) HasOnlyEquality() bool {
	for _, f := range q.Filters {
		if f.Op != Eq {
			return false
		}
	}

	return true
}

// EqualityMap returns the Eq filters as a column to value map. Later
// conditions on the same column overwrite earlier ones.
func (q *Query) EqualityMap() map[string]any {
	where := make(map[string]any)

	for _, f := range q.Filters {
		if f.Op == Eq {
			where[f.Field] = f.Value
		}
	}

	return where
}

// BuildWhere compiles the filters into " WHERE ..." (with a leading space)
// and the positional parameters. No filters yield an empty clause.
func (q *Query) BuildWhere() (string, []any, error) {
	if len(q.Filters) == 0 {
		return "", nil, nil
	}

	parts := make([]string, 0, len(q.Filters))
	args := make([]any, 0, len(q.Filters))

	for _, f := range q.Filters {
		if err := ValidateIdentifier(f.Field); err != nil {
			return "", nil, err
		}

		part, partArgs, err := compileCondition(f)
		if err != nil {
			return "", nil, err
		}

		parts = append(parts, part)
		args = append(args, partArgs...)
	}

	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func compileCondition(f FilterCondition) (string, []any, error) {
	switch f.Op {
	case Eq, Neq, Gt, Gte, Lt, Lte, Like:
		return fmt.Sprintf("%s %s ?", f.Field, f.Op), []any{f.Value}, nil
	case ILike:
		return fmt.Sprintf("LOWER(%s) LIKE ?", f.Field), []any{lowerOperand(f.Value)}, nil
	case In:
		items, err := expandList(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("filter on %s: %w", f.Field, err)
		}

		if len(items) == 0 {
			return "0 = 1", nil, nil
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(items)), ", ")

		return fmt.Sprintf("%s IN (%s)", f.Field, placeholders), items, nil
	case Contains:
		pattern, err := containsPattern(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("filter on %s: %w", f.Field, err)
		}

		return f.Field + " LIKE ?", []any{pattern}, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", f.Op)
	}
}

func lowerOperand(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToLower(s)
	}

	return strings.ToLower(fmt.Sprint(v))
}

func expandList(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("IN requires a list, got %T", v)
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items, nil
}

// containsPattern encodes the value as JSON and drops the outer delimiters,
// so ["a"] matches the text `"a"` anywhere inside a JSON array column.
func containsPattern(v any) (string, error) {
	encoded, err := safejson.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode contains operand: %w", err)
	}

	inner := string(encoded)
	if len(inner) >= 2 {
		inner = inner[1 : len(inner)-1]
	}

	return "%" + inner + "%", nil
}

// BuildOrder compiles the sort fields into " ORDER BY ..." and the limit into " LIMIT n".
func (q *Query) BuildOrder() (string, error) {
	var b strings.Builder

	if len(q.SortBy) > 0 {
		parts := make([]string, 0, len(q.SortBy))

		for _, s := range q.SortBy {
			if err := ValidateIdentifier(s.Field); err != nil {
				return "", err
			}

			direction := "ASC"
			if !s.Ascending {
				direction = "DESC"
			}

			parts = append(parts, s.Field+" "+direction)
		}

		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	if q.LimitCount > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.LimitCount)
	}

	return b.String(), nil
}

// BuildSelect compiles a full SELECT statement for table. An empty column
// list selects every column.
func (q *Query) BuildSelect(table string, columns []string) (string, []any, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", nil, err
	}

	projection := "*"

	if len(columns) > 0 {
		for _, c := range columns {
			if c == "*" {
				continue
			}

			if err := ValidateIdentifier(c); err != nil {
				return "", nil, err
			}
		}

		projection = strings.Join(columns, ", ")
	}

	where, args, err := q.BuildWhere()
	if err != nil {
		return "", nil, err
	}

	order, err := q.BuildOrder()
	if err != nil {
		return "", nil, err
	}

	return "SELECT " + projection + " FROM " + table + where + order, args, nil
}

// ParseColumns splits a comma separated projection such as "id, title".
func ParseColumns(projection string) []string {
	var columns []string

	for _, c := range strings.Split(projection, ",") {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}

	return columns
}

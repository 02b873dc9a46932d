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

// Package schema declares every table of the relational store. Each column
// carries its own storage encoding, which is the single source for both DDL
// generation and read-side type normalization.
package schema

import (
	"fmt"
	"strings"
)

// Encoding describes how a column's logical value is stored.
type Encoding int

const (
	// Primitive values are stored as-is (TEXT, INTEGER, REAL).
	Primitive Encoding = iota
	// BoolInt stores a boolean as 0 or 1.
	BoolInt
	// JSONText stores an array or object as JSON text.
	JSONText
)

func (e Encoding) String() string {
	switch e {
	case BoolInt:
		return "bool-int"
	case JSONText:
		return "json-text"
	default:
		return "primitive"
	}
}

// SQL column types used by the schema.
const (
	TypeText    = "TEXT"
	TypeInteger = "INTEGER"
	TypeReal    = "REAL"
)

// Column is one column definition. Default is a raw SQL expression.
type Column struct {
	Name       string
	Type       string
	Encoding   Encoding
	PrimaryKey bool
	NotNull    bool
	Unique     bool
	Default    string
}

// ForeignKey is declared in DDL for documentation. SQLite does not enforce it
// unless PRAGMA foreign_keys is enabled, which the store leaves off.
type ForeignKey struct {
	Column    string
	RefTable  TableName
	RefColumn string
	OnDelete  string
}

// Table is a table definition.
type Table struct {
	Name           TableName
	Columns        []Column
	ForeignKeys    []ForeignKey
	UniqueTogether [][]string
}

// Column returns the definition of a column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}

	return Column{}, false
}

// EncodingOf returns the declared encoding of a column, or Primitive for
// columns the table does not declare.
func (t *Table) EncodingOf(name string) Encoding {
	if c, ok := t.Column(name); ok {
		return c.Encoding
	}

	return Primitive
}

// JSONColumns lists the columns stored as JSON text, in declaration order.
func (t *Table) JSONColumns() []string {
	var cols []string

	for _, c := range t.Columns {
		if c.Encoding == JSONText {
			cols = append(cols, c.Name)
		}
	}

	return cols
}

// CreateSQL renders the CREATE TABLE IF NOT EXISTS statement.
func (t *Table) CreateSQL() string {
	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+len(t.UniqueTogether))

	for _, c := range t.Columns {
		var b strings.Builder

		b.WriteString(c.Name)
		b.WriteString(" ")
		b.WriteString(c.Type)

		if c.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}

		if c.NotNull {
			b.WriteString(" NOT NULL")
		}

		if c.Unique {
			b.WriteString(" UNIQUE")
		}

		if c.Default != "" {
			b.WriteString(" DEFAULT ")
			b.WriteString(c.Default)
		}

		lines = append(lines, b.String())
	}

	for _, fk := range t.ForeignKeys {
		line := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)", fk.Column, fk.RefTable, fk.RefColumn)
		if fk.OnDelete != "" {
			line += " ON DELETE " + fk.OnDelete
		}

		lines = append(lines, line)
	}

	for _, cols := range t.UniqueTogether {
		lines = append(lines, "UNIQUE("+strings.Join(cols, ", ")+")")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.Name, strings.Join(lines, ",\n\t"))
}

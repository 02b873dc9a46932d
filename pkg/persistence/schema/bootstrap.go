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

package schema

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/united-manufacturing-hub/htapp/pkg/constants"
	"github.com/united-manufacturing-hub/htapp/pkg/logger"
	"github.com/united-manufacturing-hub/htapp/pkg/metrics"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/basic"
)

const metaTableSQL = `CREATE TABLE IF NOT EXISTS schema_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Bootstrap creates every table that does not exist, guards against a
// database written by a newer major schema version, and seeds the singleton
// settings rows and the default grade classes. It is idempotent and runs
// in one transaction.
func Bootstrap(ctx context.Context, store basic.Store) (err error) {
	log := logger.For(logger.ComponentBootstrap)

	tx, err := store.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
			metrics.IncErrorCountAndLog(metrics.ComponentBootstrap, "bootstrap", err, log)
		}
	}()

	if _, err = tx.Exec(ctx, metaTableSQL); err != nil {
		return fmt.Errorf("failed to create schema_meta: %w", err)
	}

	if err = checkVersion(ctx, tx); err != nil {
		return err
	}

	for _, t := range tables {
		if _, err = tx.Exec(ctx, t.CreateSQL()); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
	}

	for _, singleton := range []TableName{AppSettings, AdminSettings} {
		if _, err = tx.Exec(ctx, fmt.Sprintf("INSERT OR IGNORE INTO %s (id) VALUES (?)", singleton), constants.SingletonRowID); err != nil {
			return fmt.Errorf("failed to seed %s: %w", singleton, err)
		}
	}

	seeded, err := seedGradeClasses(ctx, tx)
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	log.Infof("schema ready (version %s, %d tables, grade classes seeded: %t)", constants.SchemaVersion, len(tables), seeded)

	return nil
}

func checkVersion(ctx context.Context, tx basic.Tx) error {
	current := semver.MustParse(constants.SchemaVersion)

	row, err := tx.QueryRow(ctx, `SELECT value FROM schema_meta WHERE key = 'schema_version'`)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if row != nil {
		raw, _ := row["value"].(string)

		stored, err := semver.NewVersion(raw)
		if err != nil {
			return fmt.Errorf("invalid stored schema version %q: %w", raw, err)
		}

		if stored.Major() > current.Major() {
			return fmt.Errorf("database schema version %s is newer than supported version %s", stored, current)
		}

		if !stored.LessThan(current) {
			return nil
		}
	}

	if _, err := tx.Exec(ctx, `INSERT OR REPLACE INTO schema_meta (key, value) VALUES ('schema_version', ?)`, current.String()); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}

	return nil
}

func seedGradeClasses(ctx context.Context, tx basic.Tx) (bool, error) {
	row, err := tx.QueryRow(ctx, `SELECT COUNT(*) AS cnt FROM grade_classes`)
	if err != nil {
		return false, fmt.Errorf("failed to count grade classes: %w", err)
	}

	if count, _ := row["cnt"].(int64); count > 0 {
		return false, nil
	}

	for i := 1; i <= constants.DefaultGradeCount; i++ {
		if _, err := tx.Exec(ctx,
			`INSERT INTO grade_classes (id, name, display_order, is_active) VALUES (?, ?, ?, 1)`,
			fmt.Sprintf("g%d", i), fmt.Sprintf("%d-sinf", i), i,
		); err != nil {
			return false, fmt.Errorf("failed to seed grade class %d: %w", i, err)
		}
	}

	return true, nil
}

// StoredVersion returns the schema version recorded in the database.
func StoredVersion(ctx context.Context, store basic.Executor) (string, error) {
	row, err := store.QueryRow(ctx, `SELECT value FROM schema_meta WHERE key = 'schema_version'`)
	if err != nil {
		return "", err
	}

	if row == nil {
		return "", nil
	}

	v, _ := row["value"].(string)

	return v, nil
}

package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpdateConfig defines the parameters for a bulk update operation.
type UpdateConfig struct {
	Table   string   // target table (e.g., "records")
	KeyCols []string // columns matching temp rows to target rows
	Columns []string // all columns copied in; non-key columns are written
}

// BulkUpdate updates existing rows via a temp table and UPDATE ... FROM.
// 1. Creates a temp table holding only the copied columns
// 2. COPY rows into the temp table
// 3. UPDATE target SET col = t.col ... FROM temp t joined on the keys
// Rows whose keys match nothing in the target are ignored; callers that
// require every row to land compare the returned count against what
// they sent.
func BulkUpdate(ctx context.Context, pool Pool, cfg UpdateConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: update: no columns specified")
	}
	if len(cfg.KeyCols) == 0 {
		return 0, eris.New("db: update: no key columns specified")
	}

	keySet := make(map[string]bool, len(cfg.KeyCols))
	for _, k := range cfg.KeyCols {
		keySet[k] = true
	}
	var updateCols []string
	for _, c := range cfg.Columns {
		if !keySet[c] {
			updateCols = append(updateCols, c)
		}
	}
	if len(updateCols) == 0 {
		return 0, eris.New("db: update: no non-key columns to write")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: update: begin tx")
	}
	defer tx.Rollback(ctx)

	tempTable := fmt.Sprintf("_tmp_update_%s", strings.ReplaceAll(cfg.Table, ".", "_"))

	// The temp table carries only the copied columns, so the COPY never
	// trips constraints on target columns outside the update.
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WITH NO DATA",
		pgx.Identifier{tempTable}.Sanitize(),
		quoteAndJoin(cfg.Columns),
		sanitizeTable(cfg.Table),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: update: create temp table for %s", cfg.Table)
	}

	copySource := pgx.CopyFromRows(rows)
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, cfg.Columns, copySource); err != nil {
		return 0, eris.Wrapf(err, "db: update: COPY into temp table for %s", cfg.Table)
	}

	var setClauses []string
	for _, col := range updateCols {
		setClauses = append(setClauses, fmt.Sprintf("%s = t.%s", pgx.Identifier{col}.Sanitize(), pgx.Identifier{col}.Sanitize()))
	}
	var joinClauses []string
	for _, k := range cfg.KeyCols {
		joinClauses = append(joinClauses, fmt.Sprintf("%s.%s = t.%s", sanitizeTable(cfg.Table), pgx.Identifier{k}.Sanitize(), pgx.Identifier{k}.Sanitize()))
	}

	updateSQL := fmt.Sprintf(
		"UPDATE %s SET %s FROM %s t WHERE %s",
		sanitizeTable(cfg.Table),
		strings.Join(setClauses, ", "),
		pgx.Identifier{tempTable}.Sanitize(),
		strings.Join(joinClauses, " AND "),
	)

	tag, err := tx.Exec(ctx, updateSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: update: UPDATE FROM for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: update: commit tx")
	}

	return tag.RowsAffected(), nil
}

// sanitizeTable handles schema-qualified table names like "public.records".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

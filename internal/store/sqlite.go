package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/transparencydata/payments-cli/internal/check"
	"github.com/transparencydata/payments-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying handle for subsystems that need direct
// access (the geocode cache shares the database file).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	type                 TEXT NOT NULL,
	company              TEXT NOT NULL,
	origin               TEXT NOT NULL,
	currency             TEXT NOT NULL,
	year                 INTEGER NOT NULL,
	name                 TEXT,
	first_name           TEXT,
	last_name            TEXT,
	title                TEXT,
	gender               TEXT,
	recipient_detail     TEXT,
	address              TEXT,
	location             TEXT,
	country              TEXT,
	postcode             TEXT,
	lat                  REAL,
	lng                  REAL,
	donations_grants     REAL,
	sponsorship          REAL,
	registration_fees    REAL,
	travel_accommodation REAL,
	fees                 REAL,
	related_expenses     REAL,
	total                REAL,
	total_dirty          TEXT NOT NULL DEFAULT '',
	group_id             TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS entities (
	group_id         TEXT PRIMARY KEY,
	type             TEXT NOT NULL,
	name             TEXT,
	first_name       TEXT,
	last_name        TEXT,
	title            TEXT,
	gender           TEXT,
	recipient_detail TEXT,
	address          TEXT,
	location         TEXT,
	country          TEXT,
	postcode         TEXT,
	origin           TEXT NOT NULL,
	lat              REAL,
	lng              REAL,
	payments         TEXT NOT NULL,
	slug_raw         TEXT NOT NULL,
	slug             TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS total_flags (
	record_id      INTEGER PRIMARY KEY,
	company        TEXT NOT NULL,
	name           TEXT NOT NULL,
	address        TEXT NOT NULL,
	declared_total REAL NOT NULL,
	total_dirty    TEXT NOT NULL,
	computed_total REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_company ON records(company);
CREATE INDEX IF NOT EXISTS idx_records_type ON records(type);
CREATE INDEX IF NOT EXISTS idx_records_group_id ON records(group_id);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ImportRecords(ctx context.Context, records []*model.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO records (` + strings.Join(recordColumns, ", ") + `)
		VALUES (` + placeholders(len(recordColumns)) + `)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range records {
		res, err := stmt.ExecContext(ctx, recordArgs(r)...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert record for %s", r.Company)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: last insert id")
		}
		r.ID = id
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return int64(len(records)), nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, filter RecordFilter) ([]*model.Record, error) {
	query := `SELECT id, ` + strings.Join(recordColumns, ", ") + ` FROM records WHERE 1=1`
	var args []any

	if filter.Company != "" {
		query += ` AND company = ?`
		args = append(args, filter.Company)
	}
	if filter.Year != 0 {
		query += ` AND year = ?`
		args = append(args, filter.Year)
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY id`

	// The pipeline reads whole datasets, so no limit is applied unless
	// the caller asks for one.
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(recordDests(&r)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		records = append(records, &r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) UpdateRecords(ctx context.Context, records []*model.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin update")
	}
	defer tx.Rollback() //nolint:errcheck

	var sets []string
	for _, col := range recordColumns {
		sets = append(sets, col+" = ?")
	}
	stmt, err := tx.PrepareContext(ctx,
		`UPDATE records SET `+strings.Join(sets, ", ")+` WHERE id = ?`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare update")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range records {
		res, err := stmt.ExecContext(ctx, append(recordArgs(r), r.ID)...)
		if err != nil {
			return eris.Wrapf(err, "sqlite: update record %d", r.ID)
		}
		if err := checkRowsAffected(res, "record", r.ID); err != nil {
			return err
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit update")
}

func (s *SQLiteStore) UpdateGroupIDs(ctx context.Context, groups map[int64]string) error {
	if len(groups) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin group update")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `UPDATE records SET group_id = ? WHERE id = ?`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare group update")
	}
	defer stmt.Close() //nolint:errcheck

	for id, groupID := range groups {
		res, err := stmt.ExecContext(ctx, groupID, id)
		if err != nil {
			return eris.Wrapf(err, "sqlite: update group for record %d", id)
		}
		if err := checkRowsAffected(res, "record", id); err != nil {
			return err
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit group update")
}

func (s *SQLiteStore) ReplaceEntities(ctx context.Context, entities []*model.Entity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace entities")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		return eris.Wrap(err, "sqlite: clear entities")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entities (`+strings.Join(entityColumns, ", ")+`)
		 VALUES (`+placeholders(len(entityColumns))+`)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare entity insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, e := range entities {
		paymentsJSON, err := json.Marshal(e.Payments)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal payments for %s", e.GroupID)
		}
		_, err = stmt.ExecContext(ctx,
			e.GroupID, string(e.Type),
			e.Name, e.FirstName, e.LastName, e.Title, e.Gender,
			e.RecipientDetail, e.Address, e.Location, e.Country, e.Postcode,
			e.Origin, e.Lat, e.Lng, string(paymentsJSON), e.SlugRaw, e.Slug,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert entity %s", e.GroupID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace entities")
}

func (s *SQLiteStore) ListEntities(ctx context.Context, filter EntityFilter) ([]*model.Entity, error) {
	query := `SELECT ` + strings.Join(entityColumns, ", ") + ` FROM entities WHERE 1=1`
	var args []any

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.Search != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}
	query += ` ORDER BY slug`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entities")
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, eris.Wrap(rows.Err(), "sqlite: list entities iterate")
}

func (s *SQLiteStore) GetEntityBySlug(ctx context.Context, slug string) (*model.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+strings.Join(entityColumns, ", ")+` FROM entities WHERE slug = ?`,
		slug,
	)
	e, err := scanEntity(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (s *SQLiteStore) ReplaceFlags(ctx context.Context, flags []check.Flag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace flags")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM total_flags`); err != nil {
		return eris.Wrap(err, "sqlite: clear flags")
	}

	for _, f := range flags {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO total_flags (record_id, company, name, address, declared_total, total_dirty, computed_total)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.RecordID, f.Company, f.Name, f.Address, f.Declared, f.Dirty, f.Computed,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert flag for record %d", f.RecordID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace flags")
}

func (s *SQLiteStore) ListFlags(ctx context.Context) ([]check.Flag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, company, name, address, declared_total, total_dirty, computed_total
		 FROM total_flags ORDER BY record_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list flags")
	}
	defer rows.Close()

	var flags []check.Flag
	for rows.Next() {
		var f check.Flag
		if err := rows.Scan(&f.RecordID, &f.Company, &f.Name, &f.Address, &f.Declared, &f.Dirty, &f.Computed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan flag")
		}
		flags = append(flags, f)
	}
	return flags, eris.Wrap(rows.Err(), "sqlite: list flags iterate")
}

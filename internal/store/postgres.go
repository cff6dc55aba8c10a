package store

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/transparencydata/payments-cli/internal/check"
	"github.com/transparencydata/payments-cli/internal/db"
	"github.com/transparencydata/payments-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, mainly for tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	id                   BIGSERIAL PRIMARY KEY,
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
	lat                  DOUBLE PRECISION,
	lng                  DOUBLE PRECISION,
	donations_grants     DOUBLE PRECISION,
	sponsorship          DOUBLE PRECISION,
	registration_fees    DOUBLE PRECISION,
	travel_accommodation DOUBLE PRECISION,
	fees                 DOUBLE PRECISION,
	related_expenses     DOUBLE PRECISION,
	total                DOUBLE PRECISION,
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
	lat              DOUBLE PRECISION,
	lng              DOUBLE PRECISION,
	payments         JSONB NOT NULL,
	slug_raw         TEXT NOT NULL,
	slug             TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS total_flags (
	record_id      BIGINT PRIMARY KEY,
	company        TEXT NOT NULL,
	name           TEXT NOT NULL,
	address        TEXT NOT NULL,
	declared_total DOUBLE PRECISION NOT NULL,
	total_dirty    TEXT NOT NULL,
	computed_total DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_company ON records(company);
CREATE INDEX IF NOT EXISTS idx_records_type ON records(type);
CREATE INDEX IF NOT EXISTS idx_records_group_id ON records(group_id);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// ImportRecords bulk-inserts via the COPY protocol. Record ids are
// assigned server-side and populated on the next ListRecords.
func (s *PostgresStore) ImportRecords(ctx context.Context, records []*model.Record) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, recordArgs(r))
	}
	n, err := db.CopyFrom(ctx, s.pool, "records", recordColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import records")
	}
	return n, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter RecordFilter) ([]*model.Record, error) {
	query := `SELECT id, ` + strings.Join(recordColumns, ", ") + ` FROM records WHERE 1=1`
	var args []any

	if filter.Company != "" {
		args = append(args, filter.Company)
		query += ` AND company = $` + strconv.Itoa(len(args))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		query += ` AND year = $` + strconv.Itoa(len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY id`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += ` OFFSET $` + strconv.Itoa(len(args))
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(recordDests(&r)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		records = append(records, &r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

// UpdateRecords writes every column of every record back in one bulk
// update keyed on id.
func (s *PostgresStore) UpdateRecords(ctx context.Context, records []*model.Record) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, append([]any{r.ID}, recordArgs(r)...))
	}

	n, err := db.BulkUpdate(ctx, s.pool, db.UpdateConfig{
		Table:   "records",
		KeyCols: []string{"id"},
		Columns: append([]string{"id"}, recordColumns...),
	}, rows)
	if err != nil {
		return eris.Wrap(err, "postgres: update records")
	}
	if n != int64(len(records)) {
		return eris.Errorf("postgres: update records: %d of %d not found", int64(len(records))-n, len(records))
	}
	return nil
}

// UpdateGroupIDs writes cluster assignments for every record in one
// bulk update keyed on id.
func (s *PostgresStore) UpdateGroupIDs(ctx context.Context, groups map[int64]string) error {
	if len(groups) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(groups))
	for id, groupID := range groups {
		rows = append(rows, []any{id, groupID})
	}

	n, err := db.BulkUpdate(ctx, s.pool, db.UpdateConfig{
		Table:   "records",
		KeyCols: []string{"id"},
		Columns: []string{"id", "group_id"},
	}, rows)
	if err != nil {
		return eris.Wrap(err, "postgres: update group ids")
	}
	if n != int64(len(groups)) {
		return eris.Errorf("postgres: update group ids: %d of %d not found", int64(len(groups))-n, len(groups))
	}
	return nil
}

func (s *PostgresStore) ReplaceEntities(ctx context.Context, entities []*model.Entity) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM entities`); err != nil {
		return eris.Wrap(err, "postgres: clear entities")
	}

	rows := make([][]any, 0, len(entities))
	for _, e := range entities {
		paymentsJSON, err := json.Marshal(e.Payments)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal payments for %s", e.GroupID)
		}
		rows = append(rows, []any{
			e.GroupID, string(e.Type),
			e.Name, e.FirstName, e.LastName, e.Title, e.Gender,
			e.RecipientDetail, e.Address, e.Location, e.Country, e.Postcode,
			e.Origin, e.Lat, e.Lng, string(paymentsJSON), e.SlugRaw, e.Slug,
		})
	}

	if _, err := db.CopyFrom(ctx, s.pool, "entities", entityColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: insert entities")
	}
	return nil
}

func (s *PostgresStore) ListEntities(ctx context.Context, filter EntityFilter) ([]*model.Entity, error) {
	query := `SELECT ` + strings.Join(entityColumns, ", ") + ` FROM entities WHERE 1=1`
	var args []any

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY slug`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += ` OFFSET $` + strconv.Itoa(len(args))
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entities")
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
	return entities, eris.Wrap(rows.Err(), "postgres: list entities iterate")
}

func (s *PostgresStore) GetEntityBySlug(ctx context.Context, slug string) (*model.Entity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+strings.Join(entityColumns, ", ")+` FROM entities WHERE slug = $1`,
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

func (s *PostgresStore) ReplaceFlags(ctx context.Context, flags []check.Flag) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM total_flags`); err != nil {
		return eris.Wrap(err, "postgres: clear flags")
	}

	rows := make([][]any, 0, len(flags))
	for _, f := range flags {
		rows = append(rows, []any{
			f.RecordID, f.Company, f.Name, f.Address, f.Declared, f.Dirty, f.Computed,
		})
	}

	columns := []string{"record_id", "company", "name", "address", "declared_total", "total_dirty", "computed_total"}
	if _, err := db.CopyFrom(ctx, s.pool, "total_flags", columns, rows); err != nil {
		return eris.Wrap(err, "postgres: insert flags")
	}
	return nil
}

func (s *PostgresStore) ListFlags(ctx context.Context) ([]check.Flag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record_id, company, name, address, declared_total, total_dirty, computed_total
		 FROM total_flags ORDER BY record_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list flags")
	}
	defer rows.Close()

	var flags []check.Flag
	for rows.Next() {
		var f check.Flag
		if err := rows.Scan(&f.RecordID, &f.Company, &f.Name, &f.Address, &f.Declared, &f.Dirty, &f.Computed); err != nil {
			return nil, eris.Wrap(err, "postgres: scan flag")
		}
		flags = append(flags, f)
	}
	return flags, eris.Wrap(rows.Err(), "postgres: list flags iterate")
}

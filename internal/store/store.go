// Package store persists frozen metadata records in SQLite or PostgreSQL.
// Records are stored as their JSON mapping together with their type name.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
	"go.uber.org/zap"

	"github.com/geomd/metaschema/internal/record"
	"github.com/geomd/metaschema/internal/schema"
)

var (
	// ErrNotFound is returned when no record has the requested id
	ErrNotFound = errors.New("record not found")
	// ErrNotFrozen is returned when saving a record that is still mutable
	ErrNotFrozen = errors.New("only frozen records can be stored")
	// ErrUnsupportedDriver is returned by Open for drivers other than sqlite3 and postgres
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Dialect selects the SQL flavour of a store
type Dialect string

const (
	// DialectSQLite uses ? placeholders and IN lists
	DialectSQLite Dialect = "sqlite3"
	// DialectPostgres uses $n placeholders and ANY($1) array parameters
	DialectPostgres Dialect = "postgres"
)

// Stored is a persisted record
type Stored struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store persists frozen records
type Store struct {
	db       *sql.DB
	dialect  Dialect
	registry *schema.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// Open connects to a database. driver is "sqlite3" or "postgres"; postgres
// connections go through the pgx driver.
func Open(driver, dsn string, reg *schema.Registry, logger *zap.Logger) (*Store, error) {
	var sqlDriver string
	switch Dialect(driver) {
	case DialectSQLite:
		sqlDriver = "sqlite3"
	case DialectPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if Dialect(driver) == DialectSQLite && strings.Contains(dsn, ":memory:") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	return New(db, Dialect(driver), reg, logger), nil
}

// New wraps an open database
func New(db *sql.DB, dialect Dialect, reg *schema.Registry, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:       db,
		dialect:  dialect,
		registry: reg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// DB returns the underlying database handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the records table if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	bodyType, timeType := "TEXT", "TIMESTAMP"
	if s.dialect == DialectPostgres {
		bodyType, timeType = "JSONB", "TIMESTAMPTZ"
	}

	statements := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS metadata_records (
	id VARCHAR(36) PRIMARY KEY,
	record_type VARCHAR(255) NOT NULL,
	body %s NOT NULL,
	created_at %s NOT NULL
)`, bodyType, timeType),
		`CREATE INDEX IF NOT EXISTS idx_metadata_records_type ON metadata_records(record_type)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize records table: %w", err)
		}
	}
	return nil
}

// Save stores a frozen record and returns its new id
func (s *Store) Save(ctx context.Context, rec *record.Record) (string, error) {
	if !rec.Frozen() {
		return "", fmt.Errorf("%w: %s", ErrNotFrozen, rec.TypeName())
	}

	body, err := json.Marshal(rec.ToMapping())
	if err != nil {
		return "", fmt.Errorf("failed to encode %s record: %w", rec.TypeName(), err)
	}

	id := uuid.New().String()
	query := s.rebind(`INSERT INTO metadata_records (id, record_type, body, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, id, rec.TypeName(), string(body), s.now()); err != nil {
		return "", fmt.Errorf("failed to insert record: %w", err)
	}

	s.logger.Debug("stored record", zap.String("id", id), zap.String("type", rec.TypeName()))
	return id, nil
}

// Load returns the stored form of a record
func (s *Store) Load(ctx context.Context, id string) (*Stored, error) {
	query := s.rebind(`SELECT id, record_type, body, created_at FROM metadata_records WHERE id = ?`)

	st, err := scanStored(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	return st, nil
}

// Get loads a record and rebuilds it as a frozen record
func (s *Store) Get(ctx context.Context, id string) (*record.Record, error) {
	st, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Decode(st)
}

// Decode rebuilds a stored record against the store's registry
func (s *Store) Decode(st *Stored) (*record.Record, error) {
	m, err := record.DecodeJSON(s.registry, st.Body, st.Type)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", st.ID, err)
	}
	rec, err := record.FromMapping(s.registry, m)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", st.ID, err)
	}
	rec.Freeze()
	return rec, nil
}

// LoadMany returns the stored records with the given ids, in creation order.
// Unknown ids are skipped.
func (s *Store) LoadMany(ctx context.Context, ids []string) ([]*Stored, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	where, args := s.inClause("id", ids)
	return s.query(ctx, `SELECT id, record_type, body, created_at FROM metadata_records WHERE `+where+` ORDER BY created_at, id`, args...)
}

// List returns up to limit stored records of typeName and its subtypes, newest
// first. An empty typeName lists every record; limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, typeName string, limit int) ([]*Stored, error) {
	query := `SELECT id, record_type, body, created_at FROM metadata_records`
	var args []any

	if typeName != "" {
		if _, err := s.registry.Lookup(typeName); err != nil {
			return nil, err
		}
		types := append([]string{typeName}, s.registry.Subtypes(typeName)...)
		var where string
		where, args = s.inClause("record_type", types)
		query += " WHERE " + where
	}

	query += " ORDER BY created_at DESC, id"
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}
	return s.query(ctx, query, args...)
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM metadata_records WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Count returns the number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM metadata_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Stored, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []*Stored
	for rows.Next() {
		st, err := scanStored(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return out, nil
}

// inClause matches column against values: ANY(?) with an array parameter on
// PostgreSQL, an IN list elsewhere
func (s *Store) inClause(column string, values []string) (string, []any) {
	if s.dialect == DialectPostgres {
		return column + " = ANY(?)", []any{pq.Array(values)}
	}
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = "?"
		args[i] = v
	}
	return column + " IN (" + strings.Join(marks, ", ") + ")", args
}

// rebind rewrites ? placeholders as $n for PostgreSQL
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStored(row scanner) (*Stored, error) {
	var (
		st   Stored
		body string
	)
	if err := row.Scan(&st.ID, &st.Type, &body, &st.CreatedAt); err != nil {
		return nil, err
	}
	st.Body = json.RawMessage(body)
	return &st, nil
}

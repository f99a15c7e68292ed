package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazz-dev/statuswatch/internal/endpoint"
)

const schema = `
CREATE TABLE IF NOT EXISTS endpoints (
    owner_id         TEXT    NOT NULL,
    endpoint_id      TEXT    NOT NULL,
    tenant_id        TEXT    NOT NULL,
    category         TEXT    NOT NULL,
    name             TEXT    NOT NULL,
    url              TEXT    NOT NULL,
    timeout_ms       INTEGER NOT NULL,
    status           TEXT    NOT NULL CHECK(status IN ('healthy', 'unhealthy', 'unknown')),
    status_code      INTEGER,
    response_time_ms INTEGER,
    error_message    TEXT,
    status_since     TEXT    NOT NULL,
    last_checked_at  TEXT,
    created_at       TEXT    NOT NULL,
    updated_at       TEXT    NOT NULL,
    PRIMARY KEY (owner_id, endpoint_id)
);

CREATE INDEX IF NOT EXISTS idx_endpoints_owner_tenant ON endpoints(owner_id, tenant_id);
`

const selectColumns = `owner_id, endpoint_id, tenant_id, category, name, url, timeout_ms, status,
	status_code, response_time_ms, error_message, status_since, last_checked_at, created_at, updated_at`

// DB wraps a SQLite database and implements endpoint.Store.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

var _ endpoint.Store = (*DB)(nil)

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=5000",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Get returns the endpoint, or nil if none.
func (d *DB) Get(ctx context.Context, ownerID, endpointID string) (*endpoint.Endpoint, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM endpoints WHERE owner_id = ? AND endpoint_id = ?`,
		ownerID, endpointID,
	)
	e, err := scanEndpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying endpoint %q: %w", endpointID, err)
	}
	return e, nil
}

// ListByOwner returns every endpoint of the owner ordered by creation time.
func (d *DB) ListByOwner(ctx context.Context, ownerID string) ([]endpoint.Endpoint, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM endpoints WHERE owner_id = ? ORDER BY created_at, endpoint_id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing endpoints for %q: %w", ownerID, err)
	}
	defer rows.Close()
	return scanEndpoints(rows)
}

// ListAll returns every endpoint across all owners.
func (d *DB) ListAll(ctx context.Context) ([]endpoint.Endpoint, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM endpoints ORDER BY owner_id, created_at, endpoint_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing all endpoints: %w", err)
	}
	defer rows.Close()
	return scanEndpoints(rows)
}

// Create inserts e and stamps its audit timestamps.
func (d *DB) Create(ctx context.Context, e endpoint.Endpoint) (endpoint.Endpoint, error) {
	now := d.now()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO endpoints (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OwnerID,
		e.EndpointID,
		e.TenantID,
		e.Category,
		e.Name,
		e.URL,
		e.TimeoutMs,
		string(e.Status),
		nullable(e.StatusCode),
		nullable(e.ResponseTimeMs),
		nullable(e.ErrorMessage),
		formatTime(e.StatusSince),
		nullableTime(e.LastCheckedAt),
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	)
	if err != nil {
		return endpoint.Endpoint{}, fmt.Errorf("inserting endpoint %q: %w", e.EndpointID, err)
	}
	return e, nil
}

// Update merges p into the stored record: omitted fields are untouched,
// cleared fields become NULL.
func (d *DB) Update(ctx context.Context, ownerID, endpointID string, p endpoint.Patch) (endpoint.Endpoint, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, omitted bool, value any) {
		if omitted {
			return
		}
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	add("name", p.Name.Omitted(), p.Name.SQLValue())
	add("url", p.URL.Omitted(), p.URL.SQLValue())
	add("timeout_ms", p.TimeoutMs.Omitted(), p.TimeoutMs.SQLValue())
	add("status", p.Status.Omitted(), statusValue(p.Status))
	add("status_code", p.StatusCode.Omitted(), p.StatusCode.SQLValue())
	add("response_time_ms", p.ResponseTimeMs.Omitted(), p.ResponseTimeMs.SQLValue())
	add("error_message", p.ErrorMessage.Omitted(), p.ErrorMessage.SQLValue())
	add("status_since", p.StatusSince.Omitted(), timeValue(p.StatusSince))
	add("last_checked_at", p.LastCheckedAt.Omitted(), timeValue(p.LastCheckedAt))
	add("updated_at", false, formatTime(d.now()))

	args = append(args, ownerID, endpointID)
	res, err := d.db.ExecContext(ctx,
		`UPDATE endpoints SET `+strings.Join(sets, ", ")+` WHERE owner_id = ? AND endpoint_id = ?`,
		args...,
	)
	if err != nil {
		return endpoint.Endpoint{}, fmt.Errorf("updating endpoint %q: %w", endpointID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return endpoint.Endpoint{}, fmt.Errorf("updating endpoint %q: %w", endpointID, err)
	}
	if n == 0 {
		return endpoint.Endpoint{}, endpoint.ErrNotFound
	}

	updated, err := d.Get(ctx, ownerID, endpointID)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	if updated == nil {
		return endpoint.Endpoint{}, endpoint.ErrNotFound
	}
	return *updated, nil
}

// Delete removes a single endpoint. Deleting a missing key is not an error.
func (d *DB) Delete(ctx context.Context, ownerID, endpointID string) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM endpoints WHERE owner_id = ? AND endpoint_id = ?`,
		ownerID, endpointID,
	)
	if err != nil {
		return fmt.Errorf("deleting endpoint %q: %w", endpointID, err)
	}
	return nil
}

// DeleteBatch removes all given endpoints in one transaction.
func (d *DB) DeleteBatch(ctx context.Context, endpoints []endpoint.Endpoint) error {
	if len(endpoints) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch delete: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM endpoints WHERE owner_id = ? AND endpoint_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing batch delete: %w", err)
	}
	defer stmt.Close()

	for _, e := range endpoints {
		if _, err := stmt.ExecContext(ctx, e.OwnerID, e.EndpointID); err != nil {
			return fmt.Errorf("deleting endpoint %q: %w", e.EndpointID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch delete: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEndpoint(row scanner) (*endpoint.Endpoint, error) {
	var (
		e              endpoint.Endpoint
		status         string
		statusCode     sql.NullInt64
		responseTimeMs sql.NullInt64
		errorMessage   sql.NullString
		statusSince    string
		lastCheckedAt  sql.NullString
		createdAt      string
		updatedAt      string
	)
	err := row.Scan(
		&e.OwnerID, &e.EndpointID, &e.TenantID, &e.Category, &e.Name, &e.URL, &e.TimeoutMs, &status,
		&statusCode, &responseTimeMs, &errorMessage, &statusSince, &lastCheckedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Status = endpoint.Status(status)
	if statusCode.Valid {
		code := int(statusCode.Int64)
		e.StatusCode = &code
	}
	if responseTimeMs.Valid {
		ms := responseTimeMs.Int64
		e.ResponseTimeMs = &ms
	}
	if errorMessage.Valid {
		msg := errorMessage.String
		e.ErrorMessage = &msg
	}

	if e.StatusSince, err = parseTime(statusSince); err != nil {
		return nil, err
	}
	if lastCheckedAt.Valid {
		t, err := parseTime(lastCheckedAt.String)
		if err != nil {
			return nil, err
		}
		e.LastCheckedAt = &t
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEndpoints(rows *sql.Rows) ([]endpoint.Endpoint, error) {
	endpoints := []endpoint.Endpoint{}
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning endpoint row: %w", err)
		}
		endpoints = append(endpoints, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating endpoint rows: %w", err)
	}
	return endpoints, nil
}

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func statusValue(f endpoint.Field[endpoint.Status]) any {
	if v, ok := f.Value(); ok {
		return string(v)
	}
	return nil
}

func timeValue(f endpoint.Field[time.Time]) any {
	if v, ok := f.Value(); ok {
		return formatTime(v)
	}
	return nil
}

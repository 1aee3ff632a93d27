package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-db-replicator/internal/model"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	probeTimeout     = 5 * time.Second
	defaultBatchSize = 500
)

// ErrTableExists is returned by WriteTable under the fail policy when the
// destination table is already populated.
var ErrTableExists = errors.New("destination table already populated")

// Conn is the tabular store contract consumed by the registry, replicator
// and pipeline facade.
type Conn interface {
	Probe(ctx context.Context) error
	Query(ctx context.Context, sqlText string, args ...interface{}) (*model.TabularResult, error)
	WriteTable(ctx context.Context, name string, result *model.TabularResult, policy model.ExistsPolicy) (int64, error)
	ListTables(ctx context.Context) ([]string, error)
	QuoteIdent(name string) string
	Close() error
}

// DB wraps a database/sql handle with dialect-aware helpers.
type DB struct {
	db        *sql.DB
	driver    model.DriverKind
	BatchSize int
}

var _ Conn = (*DB)(nil)

// Open creates a store handle for the descriptor. The connection is lazy;
// call Probe to verify liveness.
func Open(desc model.ConnectionDescriptor) (*DB, error) {
	driverName, dsn, err := buildDSN(desc)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", desc.Driver, err)
	}

	// Pool limits; pooling beyond this is the driver's concern.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{db: db, driver: desc.Driver, BatchSize: defaultBatchSize}, nil
}

func buildDSN(desc model.ConnectionDescriptor) (string, string, error) {
	switch desc.Driver {
	case model.DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
			desc.Host, desc.Port, desc.Database, desc.User, desc.Password)
		return "postgres", dsn, nil
	case model.DriverMySQL:
		// go-sql-driver expects user:password@tcp(host:port)/database
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			desc.User, desc.Password, desc.Host, desc.Port, desc.Database)
		return "mysql", dsn, nil
	case model.DriverSQLite:
		return "sqlite3", desc.Path, nil
	default:
		return "", "", &model.ConnectionError{
			Reason: model.ReasonUnsupportedDriver,
			Err:    fmt.Errorf("driver %q", desc.Driver),
		}
	}
}

// Probe runs a minimal liveness check against the store.
func (d *DB) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// ProbeReason classifies a probe failure into the connection error taxonomy.
func ProbeReason(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "access denied"):
		return model.ReasonAuthFailed
	default:
		return model.ReasonUnreachable
	}
}

// Query executes sqlText and materializes the full result set.
func (d *DB) Query(ctx context.Context, sqlText string, args ...interface{}) (*model.TabularResult, error) {
	rows, err := d.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &model.TabularResult{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			// mysql and sqlite hand text back as []byte
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

// QueryCount runs a COUNT(*) against a table.
func (d *DB) QueryCount(ctx context.Context, table string) (int64, error) {
	var count int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
	if err := d.db.QueryRowContext(ctx, q).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// WriteTable writes the result into name under the exists policy. Under
// replace, the table is dropped and recreated; under fail, ErrTableExists is
// returned when the table already holds rows.
func (d *DB) WriteTable(ctx context.Context, name string, result *model.TabularResult, policy model.ExistsPolicy) (int64, error) {
	switch policy {
	case model.ExistsReplace:
		drop := fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdent(name))
		if _, err := d.db.ExecContext(ctx, drop); err != nil {
			return 0, err
		}
	case model.ExistsFail:
		populated, err := d.tablePopulated(ctx, name)
		if err != nil {
			return 0, err
		}
		if populated {
			return 0, fmt.Errorf("%w: %s", ErrTableExists, name)
		}
	default:
		return 0, fmt.Errorf("unknown exists policy: %q", policy)
	}

	if err := d.createTable(ctx, name, result); err != nil {
		return 0, err
	}
	return d.insertRows(ctx, name, result)
}

// ListTables enumerates base table names in catalog order.
func (d *DB) ListTables(ctx context.Context) ([]string, error) {
	var q string
	switch d.driver {
	case model.DriverPostgres:
		q = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	case model.DriverMySQL:
		q = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	case model.DriverSQLite:
		q = `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`
	default:
		return nil, fmt.Errorf("unsupported driver: %q", d.driver)
	}

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Close releases the underlying pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Exec runs a raw statement. Used by fixtures and tests.
func (d *DB) Exec(ctx context.Context, sqlText string, args ...interface{}) error {
	_, err := d.db.ExecContext(ctx, sqlText, args...)
	return err
}

func (d *DB) tablePopulated(ctx context.Context, name string) (bool, error) {
	tables, err := d.ListTables(ctx)
	if err != nil {
		return false, err
	}
	found := false
	for _, t := range tables {
		if t == name {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}
	count, err := d.QueryCount(ctx, name)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *DB) createTable(ctx context.Context, name string, result *model.TabularResult) error {
	cols := make([]string, 0, len(result.Columns))
	for i, col := range result.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", d.QuoteIdent(col), d.columnType(result, i)))
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.QuoteIdent(name), strings.Join(cols, ", "))
	_, err := d.db.ExecContext(ctx, ddl)
	return err
}

// columnType picks a column type from the first non-nil value in the column.
func (d *DB) columnType(result *model.TabularResult, col int) string {
	for _, row := range result.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case int64, int:
			return "BIGINT"
		case float64, float32:
			if d.driver == model.DriverPostgres {
				return "DOUBLE PRECISION"
			}
			return "DOUBLE"
		case bool:
			return "BOOLEAN"
		case time.Time:
			return "TIMESTAMP"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

func (d *DB) insertRows(ctx context.Context, name string, result *model.TabularResult) (int64, error) {
	if len(result.Rows) == 0 {
		return 0, nil
	}

	cols := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		cols[i] = d.QuoteIdent(c)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(name), strings.Join(cols, ", "), d.placeholders(len(cols)))

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	batch := d.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	var written int64
	for i, row := range result.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			tx.Rollback()
			return written, err
		}
		written++
		// commit in advisory batches so a large table does not hold one
		// giant transaction
		if (i+1)%batch == 0 && i+1 < len(result.Rows) {
			stmt.Close()
			if err := tx.Commit(); err != nil {
				return written, err
			}
			tx, err = d.db.BeginTx(ctx, nil)
			if err != nil {
				return written, err
			}
			stmt, err = tx.PrepareContext(ctx, insert)
			if err != nil {
				tx.Rollback()
				return written, err
			}
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return written, err
	}
	return written, nil
}

func (d *DB) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if d.driver == model.DriverPostgres {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// QuoteIdent quotes a table or column name for the connection's dialect, so
// reserved words and names with spaces stay usable in generated SQL.
func (d *DB) QuoteIdent(name string) string {
	// strip any embedded quoting characters rather than escaping them
	clean := strings.NewReplacer("\"", "", "`", "", ";", "").Replace(name)
	if d.driver == model.DriverMySQL {
		return "`" + clean + "`"
	}
	return `"` + clean + `"`
}

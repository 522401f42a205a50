package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ztfalerts/internal/common/db"
	appErr "ztfalerts/pkg/errors"
)

const (
	defaultTable     = "ztf_stamps"
	defaultBatchSize = 500
	columnList       = "object_id, stamp_type, alert_date, s3_path"
	keyColumns       = "object_id, stamp_type, alert_date"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Warehouse stores catalog rows keyed by (object_id, stamp_type, alert_date).
type Warehouse interface {
	EnsureSchema(ctx context.Context) error
	// Upsert inserts or updates rows directly in the final table.
	Upsert(ctx context.Context, rows []StampRow) (int, error)
	// MergeStaged loads rows into the staging table and merges them into the
	// final table in one transaction.
	MergeStaged(ctx context.Context, rows []StampRow) (int, error)
}

// WarehouseOptions names the tables used by SQLWarehouse.
type WarehouseOptions struct {
	Table        string `yaml:"table"`
	StagingTable string `yaml:"stagingTable"`
	BatchSize    int    `yaml:"batchSize"`
}

// SQLWarehouse implements Warehouse for MySQL and PostgreSQL.
type SQLWarehouse struct {
	db   db.Database
	opts WarehouseOptions
}

func NewSQLWarehouse(database db.Database, opts WarehouseOptions) (*SQLWarehouse, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	if opts.Table == "" {
		opts.Table = defaultTable
	}
	if opts.StagingTable == "" {
		opts.StagingTable = opts.Table + "_staging"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	for _, name := range []string{opts.Table, opts.StagingTable} {
		if !identPattern.MatchString(name) {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	switch database.Dialect() {
	case db.DialectMySQL, db.DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", database.Dialect())
	}
	return &SQLWarehouse{db: database, opts: opts}, nil
}

// EnsureSchema creates the final and staging tables when missing.
func (w *SQLWarehouse) EnsureSchema(ctx context.Context) error {
	for _, table := range []string{w.opts.Table, w.opts.StagingTable} {
		if _, err := w.db.Exec(ctx, w.createTableSQL(table)); err != nil {
			return appErr.Wrapf(err, appErr.DatabaseError, "create table %s", table)
		}
	}
	return nil
}

func (w *SQLWarehouse) createTableSQL(table string) string {
	if w.db.Dialect() == db.DialectPostgres {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	object_id TEXT NOT NULL,
	stamp_type TEXT NOT NULL,
	alert_date DATE NOT NULL,
	s3_path TEXT NOT NULL,
	PRIMARY KEY (%s)
)`, table, keyColumns)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	object_id VARCHAR(64) NOT NULL,
	stamp_type VARCHAR(16) NOT NULL,
	alert_date DATE NOT NULL,
	s3_path VARCHAR(1024) NOT NULL,
	PRIMARY KEY (%s)
)`, table, keyColumns)
}

// Upsert writes rows into the final table in batches, inside one transaction.
func (w *SQLWarehouse) Upsert(ctx context.Context, rows []StampRow) (int, error) {
	rows = Dedupe(rows)
	if len(rows) == 0 {
		return 0, nil
	}
	err := w.db.Transaction(ctx, func(tx db.Transaction) error {
		return w.insertBatches(ctx, tx, w.opts.Table, rows, true)
	})
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.WarehouseMergeFailed, "upsert %d rows into %s", len(rows), w.opts.Table)
	}
	return len(rows), nil
}

// MergeStaged replaces the staging contents with rows and merges them into the final table.
func (w *SQLWarehouse) MergeStaged(ctx context.Context, rows []StampRow) (int, error) {
	rows = Dedupe(rows)
	if len(rows) == 0 {
		return 0, nil
	}
	err := w.db.Transaction(ctx, func(tx db.Transaction) error {
		if _, err := tx.Exec(ctx, "DELETE FROM "+w.opts.StagingTable); err != nil {
			return fmt.Errorf("clear staging: %w", err)
		}
		if err := w.insertBatches(ctx, tx, w.opts.StagingTable, rows, false); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, w.mergeSQL()); err != nil {
			return fmt.Errorf("merge staging: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.WarehouseMergeFailed, "merge %d rows into %s", len(rows), w.opts.Table)
	}
	return len(rows), nil
}

func (w *SQLWarehouse) insertBatches(ctx context.Context, tx db.Transaction, table string, rows []StampRow, upsert bool) error {
	for start := 0; start < len(rows); start += w.opts.BatchSize {
		end := min(start+w.opts.BatchSize, len(rows))
		query, args := w.insertSQL(table, rows[start:end], upsert)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert rows %d-%d into %s: %w", start, end, table, err)
		}
	}
	return nil
}

func (w *SQLWarehouse) insertSQL(table string, rows []StampRow, upsert bool) (string, []interface{}) {
	dialect := w.db.Dialect()
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, columnList)
	args := make([]interface{}, 0, len(rows)*4)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(" + strings.Join(db.Placeholders(dialect, len(args)+1, 4), ", ") + ")")
		args = append(args, r.ObjectID, r.StampType, r.AlertDate, r.Path)
	}
	if upsert {
		if dialect == db.DialectPostgres {
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET s3_path = EXCLUDED.s3_path", keyColumns)
		} else {
			b.WriteString(" ON DUPLICATE KEY UPDATE s3_path = VALUES(s3_path)")
		}
	}
	return b.String(), args
}

func (w *SQLWarehouse) mergeSQL() string {
	if w.db.Dialect() == db.DialectPostgres {
		return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET s3_path = EXCLUDED.s3_path",
			w.opts.Table, columnList, columnList, w.opts.StagingTable, keyColumns)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT s.object_id, s.stamp_type, s.alert_date, s.s3_path FROM %s s ON DUPLICATE KEY UPDATE s3_path = s.s3_path",
		w.opts.Table, columnList, w.opts.StagingTable)
}

// Count returns the number of rows in the final table.
func (w *SQLWarehouse) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := w.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+w.opts.Table).Scan(&n); err != nil {
		return 0, appErr.Wrapf(err, appErr.DatabaseError, "count %s", w.opts.Table)
	}
	return n, nil
}

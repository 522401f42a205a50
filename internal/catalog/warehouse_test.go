package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ztfalerts/internal/common/db"
	"ztfalerts/internal/testutil"
	appErr "ztfalerts/pkg/errors"
)

type execCall struct {
	query string
	args  []interface{}
	inTx  bool
}

type fakeResult struct{}

func (fakeResult) RowsAffected() (int64, error) { return 0, nil }

type fakeRow struct{ n int64 }

func (r fakeRow) Scan(dest ...interface{}) error {
	*(dest[0].(*int64)) = r.n
	return nil
}

// fakeDB records statements; failOn makes the first statement containing it fail.
type fakeDB struct {
	dialect   db.Dialect
	calls     []execCall
	failOn    string
	commits   int
	rollbacks int
	inTx      bool
}

func (f *fakeDB) Dialect() db.Dialect { return f.dialect }

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	return fakeRow{n: 7}
}

func (f *fakeDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	f.calls = append(f.calls, execCall{query: query, args: args, inTx: f.inTx})
	if f.failOn != "" && strings.Contains(query, f.failOn) {
		return nil, errors.New("deadlock detected")
	}
	return fakeResult{}, nil
}

func (f *fakeDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	f.inTx = true
	defer func() { f.inTx = false }()
	if err := fn(f); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

func (f *fakeDB) Ping(ctx context.Context) error { return nil }
func (f *fakeDB) Close() error                   { return nil }

func TestSQLWarehouseUpsertMySQL(t *testing.T) {
	fdb := &fakeDB{dialect: db.DialectMySQL}
	w, err := NewSQLWarehouse(fdb, WarehouseOptions{})
	testutil.AssertNil(t, err)

	n, err := w.Upsert(context.Background(), append(sampleRows, sampleRows[0]))
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, n, 2)
	testutil.AssertEqual(t, len(fdb.calls), 1)
	q := fdb.calls[0].query
	testutil.AssertTrue(t, strings.HasPrefix(q, "INSERT INTO ztf_stamps (object_id, stamp_type, alert_date, s3_path) VALUES (?, ?, ?, ?), (?, ?, ?, ?)"), q)
	testutil.AssertTrue(t, strings.HasSuffix(q, "ON DUPLICATE KEY UPDATE s3_path = VALUES(s3_path)"), q)
	testutil.AssertEqual(t, len(fdb.calls[0].args), 8)
	testutil.AssertEqual(t, fdb.commits, 1)
}

func TestSQLWarehouseUpsertPostgresBatches(t *testing.T) {
	fdb := &fakeDB{dialect: db.DialectPostgres}
	w, err := NewSQLWarehouse(fdb, WarehouseOptions{BatchSize: 1})
	testutil.AssertNil(t, err)

	_, err = w.Upsert(context.Background(), sampleRows)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, len(fdb.calls), 2)
	q := fdb.calls[1].query
	testutil.AssertTrue(t, strings.Contains(q, "VALUES ($1, $2, $3, $4)"), q)
	testutil.AssertTrue(t, strings.HasSuffix(q, "ON CONFLICT (object_id, stamp_type, alert_date) DO UPDATE SET s3_path = EXCLUDED.s3_path"), q)
}

func TestSQLWarehouseMergeStaged(t *testing.T) {
	fdb := &fakeDB{dialect: db.DialectPostgres}
	w, err := NewSQLWarehouse(fdb, WarehouseOptions{Table: "stamps"})
	testutil.AssertNil(t, err)

	n, err := w.MergeStaged(context.Background(), sampleRows)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, n, 2)
	testutil.AssertEqual(t, len(fdb.calls), 3)
	testutil.AssertEqual(t, fdb.calls[0].query, "DELETE FROM stamps_staging")
	testutil.AssertTrue(t, strings.HasPrefix(fdb.calls[1].query, "INSERT INTO stamps_staging"), fdb.calls[1].query)
	testutil.AssertFalse(t, strings.Contains(fdb.calls[1].query, "ON CONFLICT"), "staging load is a plain insert")
	testutil.AssertTrue(t, strings.HasPrefix(fdb.calls[2].query, "INSERT INTO stamps (object_id, stamp_type, alert_date, s3_path) SELECT"), fdb.calls[2].query)
	for _, c := range fdb.calls {
		testutil.AssertTrue(t, c.inTx, "every statement should run inside the transaction")
	}
}

func TestSQLWarehouseMergeFailureRollsBack(t *testing.T) {
	fdb := &fakeDB{dialect: db.DialectMySQL, failOn: "SELECT s.object_id"}
	w, err := NewSQLWarehouse(fdb, WarehouseOptions{})
	testutil.AssertNil(t, err)

	_, err = w.MergeStaged(context.Background(), sampleRows)
	testutil.AssertTrue(t, appErr.Is(err, appErr.WarehouseMergeFailed), "expected WarehouseMergeFailed")
	testutil.AssertEqual(t, fdb.rollbacks, 1)
	testutil.AssertEqual(t, fdb.commits, 0)
}

func TestSQLWarehouseEnsureSchema(t *testing.T) {
	fdb := &fakeDB{dialect: db.DialectMySQL}
	w, err := NewSQLWarehouse(fdb, WarehouseOptions{})
	testutil.AssertNil(t, err)

	testutil.AssertNil(t, w.EnsureSchema(context.Background()))
	testutil.AssertEqual(t, len(fdb.calls), 2)
	testutil.AssertTrue(t, strings.Contains(fdb.calls[0].query, "CREATE TABLE IF NOT EXISTS ztf_stamps ("), fdb.calls[0].query)
	testutil.AssertTrue(t, strings.Contains(fdb.calls[1].query, "ztf_stamps_staging"), fdb.calls[1].query)
	testutil.AssertTrue(t, strings.Contains(fdb.calls[0].query, "PRIMARY KEY (object_id, stamp_type, alert_date)"), fdb.calls[0].query)

	n, err := w.Count(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, n, int64(7))
}

func TestNewSQLWarehouseValidates(t *testing.T) {
	_, err := NewSQLWarehouse(&fakeDB{dialect: db.DialectMySQL}, WarehouseOptions{Table: "stamps; DROP TABLE x"})
	testutil.AssertNotNil(t, err)
	_, err = NewSQLWarehouse(&fakeDB{dialect: "sqlite"}, WarehouseOptions{})
	testutil.AssertNotNil(t, err)
	_, err = NewSQLWarehouse(nil, WarehouseOptions{})
	testutil.AssertNotNil(t, err)
}

func TestSQLWarehouseEmptyRowsNoop(t *testing.T) {
	fdb := &fakeDB{dialect: db.DialectMySQL}
	w, _ := NewSQLWarehouse(fdb, WarehouseOptions{})
	n, err := w.Upsert(context.Background(), nil)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, n, 0)
	testutil.AssertEqual(t, len(fdb.calls), 0)
}

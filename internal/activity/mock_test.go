package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

func (m *mockDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// fakeTx satisfies pgx.Tx for export tests, serving canned to_jsonb rows
// per table. Only Query, Commit and Rollback ever run.
type fakeTx struct {
	rows       map[string][][]byte
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	for table, rows := range f.rows {
		if strings.Contains(sql, fmt.Sprintf(" FROM %s t ", table)) {
			return &byteRows{data: rows}, nil
		}
	}
	return &byteRows{}, nil
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

func (f *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not used") }
func (f *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not used")
}
func (f *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { panic("not used") }
func (f *fakeTx) LargeObjects() pgx.LargeObjects                               { panic("not used") }
func (f *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not used")
}
func (f *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not used")
}
func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { panic("not used") }
func (f *fakeTx) Conn() *pgx.Conn                                               { return nil }

// byteRows implements pgx.Rows over raw JSON byte rows.
type byteRows struct {
	data [][]byte
	idx  int
}

func (r *byteRows) Next() bool { return r.idx < len(r.data) }

func (r *byteRows) Scan(dest ...any) error {
	*(dest[0].(*[]byte)) = r.data[r.idx]
	r.idx++
	return nil
}

func (r *byteRows) Err() error                                   { return nil }
func (r *byteRows) Close()                                       {}
func (r *byteRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *byteRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *byteRows) RawValues() [][]byte                          { return nil }
func (r *byteRows) Values() ([]any, error)                       { return nil, nil }
func (r *byteRows) Conn() *pgx.Conn                              { return nil }

package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                    { return nil }
func (nopStmt) NumInput() int                                   { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func ensureTestDriverRegistered() {
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
}

func withTestDriver(t *testing.T) func() {
	t.Helper()
	ensureTestDriverRegistered()
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return sql.Open("dbtest", dsn)
	}
	return func() {
		openDB = prev
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFromEnv(DefaultServerOptions())
	db, dialect, err := Connect(context.Background(), "postgres://ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if dialect != Postgres {
		t.Fatalf("expected postgres dialect, got %q", dialect)
	}
	defer db.Close()

	stats := db.Stats()
	if stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", stats.MaxOpenConnections)
	}
	if opts.MaxIdleConns != 3 {
		t.Fatalf("expected MaxIdleConns=3, got %d", opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("expected ConnMaxLifetime=20m, got %s", opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("expected ConnMaxIdleTime=45s, got %s", opts.ConnMaxIdleTime)
	}
	if opts.PingTimeout != time.Second {
		t.Fatalf("expected PingTimeout=1s, got %s", opts.PingTimeout)
	}
}

func TestConnectSQLiteUsesSingleConnection(t *testing.T) {
	var gotDriver, gotDSN string
	ensureTestDriverRegistered()
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = name, dsn
		return sql.Open("dbtest", dsn)
	}
	defer func() { openDB = prev }()

	db, dialect, err := Connect(context.Background(), "sqlite://./advisor.db", DefaultServerOptions())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if dialect != SQLite || gotDriver != "sqlite" {
		t.Fatalf("unexpected dialect/driver: %q/%q", dialect, gotDriver)
	}
	if !strings.HasPrefix(gotDSN, "./advisor.db?_pragma=") {
		t.Fatalf("unexpected dsn: %q", gotDSN)
	}
	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected MaxOpenConnections=1, got %d", got)
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		dialect Dialect
		driver  string
		dsn     string
		wantErr bool
	}{
		{name: "postgres", url: "postgres://u:p@localhost/db", dialect: Postgres, driver: "pgx", dsn: "postgres://u:p@localhost/db"},
		{name: "postgresql", url: " postgresql://localhost/db ", dialect: Postgres, driver: "pgx", dsn: "postgresql://localhost/db"},
		{name: "sqlite path", url: "sqlite:///tmp/a.db", dialect: SQLite, driver: "sqlite", dsn: "/tmp/a.db?" + sqlitePragmas},
		{name: "file uri with query", url: "file:a.db?cache=shared", dialect: SQLite, driver: "sqlite", dsn: "file:a.db?cache=shared&" + sqlitePragmas},
		{name: "explicit pragmas kept", url: "file:a.db?_pragma=busy_timeout(10)", dialect: SQLite, driver: "sqlite", dsn: "file:a.db?_pragma=busy_timeout(10)"},
		{name: "empty", url: "", wantErr: true},
		{name: "sqlite without path", url: "sqlite://", wantErr: true},
		{name: "mysql", url: "mysql://localhost/db", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURL: %v", err)
			}
			if got.Dialect != tt.dialect || got.Driver != tt.driver || got.DSN != tt.dsn {
				t.Fatalf("unexpected target: %+v", got)
			}
		})
	}
}

func TestRunMigrationsSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.db")
	db, dialect, err := Connect(context.Background(), "sqlite://"+path, DefaultMigrateOptions())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(context.Background(), db, dialect); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	// a second run is a no-op
	if err := RunMigrations(context.Background(), db, dialect); err != nil {
		t.Fatalf("RunMigrations again: %v", err)
	}

	var name string
	if err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'recommendations'`).Scan(&name); err != nil {
		t.Fatalf("recommendations table missing: %v", err)
	}
}

func TestRunMigrationsNilAndUnknownDialect(t *testing.T) {
	if err := RunMigrations(context.Background(), nil, Postgres); err != nil {
		t.Fatalf("nil db should be a no-op: %v", err)
	}
	ensureTestDriverRegistered()
	db, err := sql.Open("dbtest", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := RunMigrations(context.Background(), db, Dialect("oracle")); err == nil {
		t.Fatalf("expected unsupported dialect error")
	}
}

func TestMigrationVersionAndRollback(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := Connect(ctx, "sqlite://"+filepath.Join(t.TempDir(), "advisor.db"), DefaultMigrateOptions())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(ctx, db, dialect); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if v, err := MigrationVersion(ctx, db, dialect); err != nil || v != 1 {
		t.Fatalf("expected version 1, got %d (%v)", v, err)
	}
	if err := RollbackMigration(ctx, db, dialect); err != nil {
		t.Fatalf("RollbackMigration: %v", err)
	}
	if v, err := MigrationVersion(ctx, db, dialect); err != nil || v != 0 {
		t.Fatalf("expected version 0 after rollback, got %d (%v)", v, err)
	}
}

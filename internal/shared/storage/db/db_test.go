package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
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

func withTestDriver(t *testing.T) {
	t.Helper()
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return sql.Open("dbtest", dsn)
	}
	t.Cleanup(func() { openDB = prev })
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		dialect Dialect
		driver  string
		wantErr bool
	}{
		{name: "postgres", url: "postgres://u:p@localhost:5432/cv", dialect: DialectPostgres, driver: "pgx"},
		{name: "postgresql", url: "postgresql://localhost/cv", dialect: DialectPostgres, driver: "pgx"},
		{name: "sqlite scheme", url: "sqlite://cv_analyzer.db", dialect: DialectSQLite, driver: "sqlite"},
		{name: "sqlite memory", url: "sqlite::memory:", dialect: DialectSQLite, driver: "sqlite"},
		{name: "bare db file", url: "./data/cv.db", dialect: DialectSQLite, driver: "sqlite"},
		{name: "empty", url: "  ", wantErr: true},
		{name: "mysql", url: "mysql://root@localhost/cv", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			dialect, driverName, dsn, err := ParseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURL(%q): %v", tt.url, err)
			}
			if dialect != tt.dialect || driverName != tt.driver {
				t.Fatalf("got dialect=%s driver=%s, want %s/%s", dialect, driverName, tt.dialect, tt.driver)
			}
			if dsn == "" {
				t.Fatalf("expected dsn")
			}
		})
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT id FROM cv_sessions WHERE score >= ? AND score <= ? LIMIT ?"
	if got := Rebind(DialectSQLite, q); got != q {
		t.Fatalf("sqlite query should be untouched, got %q", got)
	}
	want := "SELECT id FROM cv_sessions WHERE score >= $1 AND score <= $2 LIMIT $3"
	if got := Rebind(DialectPostgres, q); got != want {
		t.Fatalf("Rebind postgres = %q, want %q", got, want)
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	withTestDriver(t)

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
	defer db.Close()

	if dialect != DialectPostgres {
		t.Fatalf("expected postgres dialect, got %s", dialect)
	}
	if stats := db.Stats(); stats.MaxOpenConnections != 7 {
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

func TestInvalidEnvKeepsDefaults(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("DB_PING_TIMEOUT", "soon")
	opts := OptionsFromEnv(DefaultCLIOptions())
	if opts.MaxOpenConns != 1 || opts.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected overrides: %+v", opts)
	}
}

func TestRunMigrationsSQLiteMemory(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := Connect(ctx, "sqlite::memory:", DefaultCLIOptions())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(ctx, db, dialect); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	// idempotent
	if err := RunMigrations(ctx, db, dialect); err != nil {
		t.Fatalf("RunMigrations second run: %v", err)
	}

	for _, table := range []string{"cv_sessions", "cv_enhancements"} {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("expected table %s: %v", table, err)
		}
	}
}

func TestMigrationNamesMatchAcrossDialects(t *testing.T) {
	pg, err := MigrationNames(DialectPostgres)
	if err != nil {
		t.Fatalf("postgres names: %v", err)
	}
	lite, err := MigrationNames(DialectSQLite)
	if err != nil {
		t.Fatalf("sqlite names: %v", err)
	}
	if len(pg) == 0 || len(pg) != len(lite) {
		t.Fatalf("expected same migration count, got postgres=%d sqlite=%d", len(pg), len(lite))
	}
	if err := RunMigrations(context.Background(), nil, DialectSQLite); err != nil {
		t.Fatalf("nil database should be a no-op: %v", err)
	}
}

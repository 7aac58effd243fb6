package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

const mysqlDuplicateEntry = 1062

// Database is the storage handle shared by every service. It is opened once at
// startup and closed at shutdown.
type Database struct {
	*sql.DB
	Dialect Dialect
}

func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case MySQL:
		return MySQL, nil
	case SQLite, "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func InitDB(ctx context.Context, driver, dbURL string) (*Database, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	dsn := dbURL
	switch dialect {
	case MySQL:
		cfg, err := mysql.ParseDSN(dbURL)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		dsn = cfg.FormatDSN()
	case SQLite:
		if dsn == "" {
			dsn = "receipts.db"
		}
	}

	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == SQLite {
		// a single connection keeps in-memory databases alive and serializes writers
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database is not responding: %w", err)
	}

	if dialect == SQLite {
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	return &Database{DB: conn, Dialect: dialect}, nil
}

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error, panics, or ctx is cancelled before commit.
func (d *Database) WithTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UnboundedLimit is the LIMIT value that means "no limit" for the dialect. Both
// engines require a LIMIT clause before OFFSET.
func (d *Database) UnboundedLimit() string {
	if d.Dialect == MySQL {
		return "18446744073709551615"
	}
	return "-1"
}

// Numeric wraps an amount column for comparison. SQLite keeps amounts as TEXT
// so they round-trip exactly, and compares them as REAL.
func (d *Database) Numeric(column string) string {
	if d.Dialect == MySQL {
		return column
	}
	return "CAST(" + column + " AS REAL)"
}

func IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}

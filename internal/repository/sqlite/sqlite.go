// Package sqlite implements the repository interfaces on SQLite.
//
// Two backends share the same SQL:
//   - an embedded database file (or ":memory:") through modernc.org/sqlite,
//     a pure Go translation of SQLite that needs no C toolchain;
//   - a hosted libSQL database (Turso) reached over HTTP or WebSockets
//     through the libsql-client-go connector.
//
// Open picks the backend from the URL scheme. Both speak SQLite's dialect, so
// the repository methods do not care which one they run on.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tursodatabase/libsql-client-go/libsql"
	msqlite "modernc.org/sqlite"

	"github.com/sakif/linkshelf/internal/linkfilter"
)

// Collation names used in ORDER BY clauses.
//
// LINKNAME exists only on the embedded driver, where we can register Go
// functions. Hosted libSQL falls back to SQLite's built-in NOCASE, which
// folds ASCII only. Callers sorting in memory use
// linkfilter.ForSQL(db.Collation()) so both paths agree on either backend.
const (
	CollationLinkName = linkfilter.SQLLinkName
	CollationNoCase   = linkfilter.SQLNoCase
)

func init() {
	// Registered once for the process; every connection opened by the
	// "sqlite" driver afterwards knows the collation.
	msqlite.MustRegisterCollationUtf8(CollationLinkName, linkfilter.CompareText)
}

// Options configures Open.
type Options struct {
	// DatabaseURL is a libsql://, https://, http://, wss:// or ws:// URL for
	// a hosted database, or a file path / ":memory:" for an embedded one.
	DatabaseURL string
	// AuthToken authenticates against a hosted database. Required for
	// remote URLs and ignored for embedded ones.
	AuthToken string
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn      *sql.DB
	collation string
	remote    bool

	// now is the clock used for DateAdded. Tests replace it.
	now func() time.Time
}

// IsRemote reports whether dsn names a hosted libSQL database.
func IsRemote(dsn string) bool {
	u, err := url.Parse(dsn)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "libsql", "https", "http", "wss", "ws":
		return true
	}
	return false
}

// Open connects to the database named by opts and verifies the connection
// with a ping. It does not create tables; call Initialize for that.
//
// The connection is not retried: a database that is unreachable at startup
// is reported to the caller immediately.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if strings.TrimSpace(opts.DatabaseURL) == "" {
		return nil, errors.New("sqlite: database URL is empty")
	}

	var (
		conn *sql.DB
		err  error
		db   = &DB{now: time.Now}
	)

	if IsRemote(opts.DatabaseURL) {
		if opts.AuthToken == "" {
			return nil, errors.New("sqlite: an auth token is required for remote databases")
		}
		conn, err = openRemote(opts.DatabaseURL, opts.AuthToken)
		db.collation = CollationNoCase
		db.remote = true
	} else {
		conn, err = openEmbedded(opts.DatabaseURL)
		db.collation = CollationLinkName
	}
	if err != nil {
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db.conn = conn
	return db, nil
}

// New opens an embedded database and creates the schema. It is a shortcut
// for tests and local tools.
func New(dbPath string) (*DB, error) {
	ctx := context.Background()
	db, err := Open(ctx, Options{DatabaseURL: dbPath})
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openRemote(dsn, token string) (*sql.DB, error) {
	// The libsql connector refuses tokens passed in the query string, so the
	// token travels as an option instead.
	connector, err := libsql.NewConnector(dsn, libsql.WithAuthToken(token))
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating libsql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func openEmbedded(path string) (*sql.DB, error) {
	memory := path == ":memory:" || strings.Contains(path, "mode=memory")

	// PRAGMAs passed in the DSN run on every new pooled connection. Running
	// "PRAGMA foreign_keys=ON" once would only configure one of them.
	pragmas := []string{"foreign_keys(1)", "busy_timeout(5000)"}
	if !memory {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=" + strings.Join(pragmas, "&_pragma=")

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if memory {
		// Each connection to ":memory:" is a separate, empty database.
		// A single connection keeps every query on the same one.
		conn.SetMaxOpenConns(1)
	}
	return conn, nil
}

// Remote reports whether the database is a hosted libSQL instance.
func (db *DB) Remote() bool { return db.remote }

// Collation is the collation used for text ordering on this database.
func (db *DB) Collation() string { return db.collation }

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// schema is applied statement by statement; the remote driver sends one
// statement per request.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL,
		url         TEXT NOT NULL,
		favicon_url TEXT,
		category_id TEXT NOT NULL REFERENCES categories(id),
		rating      REAL NOT NULL DEFAULT 0,
		date_added  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_category ON links(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_links_rating ON links(rating)`,
	`CREATE INDEX IF NOT EXISTS idx_links_date ON links(date_added)`,
}

// Initialize creates the tables and indexes if they do not exist yet.
// It is safe to run on every start.
func (db *DB) Initialize(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: initializing schema: %w", err)
		}
	}

	// Databases created before favicons were stored lack this column.
	if err := db.addColumnIfNotExists(ctx, "links", "favicon_url", "TEXT"); err != nil {
		return fmt.Errorf("sqlite: adding favicon_url to links: %w", err)
	}
	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent — safe to run multiple times.
func (db *DB) addColumnIfNotExists(ctx context.Context, table, column, definition string) error {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.ExecContext(ctx, fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// isForeignKeyViolation and isUniqueViolation inspect the error text, which
// is the one thing the embedded and hosted drivers report the same way.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

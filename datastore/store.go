package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/casualjim/sqlowl/pkg/slogx"
	"github.com/fogfish/opts"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	_ "modernc.org/sqlite"
)

const (
	// DefaultRowLimit is how many rows sql-query returns.
	DefaultRowLimit = 5
	// DefaultSearchLimit is how many rows search returns.
	DefaultSearchLimit = 3

	ftsSuffix     = "_fts"
	historySuffix = "_history"
)

// ErrDatabaseNotFound is returned by Open when the database file does not exist.
var ErrDatabaseNotFound = errors.New("database not found")

// Row is one result row with its columns in select order.
type Row = *orderedmap.OrderedMap[string, any]

type config struct {
	dictionary     Dictionary
	searchColumns  map[string][]string
	ignoredTables  []string
	ignoredColumns []string
	rowLimit       int
	searchLimit    int
	logger         *slog.Logger
}

// Option configures Open.
type Option = opts.Option[config]

var (
	// WithDictionary sets the help text served by the help operation.
	WithDictionary = opts.ForName[config, Dictionary]("dictionary")
	// WithRowLimit changes how many rows sql-query returns.
	WithRowLimit = opts.ForName[config, int]("rowLimit")
	// WithLogger sets the logger queries are traced to.
	WithLogger = opts.ForName[config, *slog.Logger]("logger")
)

// WithSearchColumns sets the text columns searched with LIKE for a table that
// has no full-text index.
func WithSearchColumns(table string, columns ...string) Option {
	return opts.Type[config](func(c *config) error {
		if c.searchColumns == nil {
			c.searchColumns = make(map[string][]string)
		}
		c.searchColumns[table] = columns
		return nil
	})
}

// WithIgnoredTables hides tables from every operation.
func WithIgnoredTables(tables ...string) Option {
	return opts.Type[config](func(c *config) error {
		c.ignoredTables = append(c.ignoredTables, tables...)
		return nil
	})
}

// WithIgnoredColumns hides columns from columns, filter and search results.
func WithIgnoredColumns(columns ...string) Option {
	return opts.Type[config](func(c *config) error {
		c.ignoredColumns = append(c.ignoredColumns, columns...)
		return nil
	})
}

// DB is a read-only SQLite database. It is safe for concurrent use.
type DB struct {
	db     *sql.DB
	path   string
	cfg    config
	logger *slog.Logger
}

// Open opens the database at path read-only.
func Open(path string, options ...Option) (*DB, error) {
	cfg := config{
		ignoredTables:  []string{"ar_internal_metadata", "schema_migrations"},
		ignoredColumns: []string{"rowid", "created_at", "_meta_score"},
		rowLimit:       DefaultRowLimit,
		searchLimit:    DefaultSearchLimit,
	}
	if err := opts.Apply(&cfg, options); err != nil {
		return nil, err
	}
	if cfg.rowLimit <= 0 {
		return nil, fmt.Errorf("row limit must be positive, got %d", cfg.rowLimit)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	return &DB{
		db:     db,
		path:   path,
		cfg:    cfg,
		logger: cfg.logger.With(slogx.LoggerName("sqlowl.datastore"), slog.String("db", path)),
	}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", "query_only(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + q.Encode()
}

func (d *DB) Path() string {
	return d.path
}

func (d *DB) Close() error {
	return d.db.Close()
}

// tableNames lists the visible tables in name order.
func (d *DB) tableNames(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		if d.visibleTable(name) {
			names = append(names, name)
		}
	}
	return names, rows.Err()
}

func (d *DB) visibleTable(name string) bool {
	return !strings.HasPrefix(name, "sqlite_") &&
		!strings.Contains(name, ftsSuffix) &&
		!strings.HasSuffix(name, historySuffix) &&
		!slices.Contains(d.cfg.ignoredTables, name)
}

type columnInfo struct {
	name     string
	declType string
}

// columnInfos returns the columns of table in declaration order, including ignored ones.
func (d *DB) columnInfos(ctx context.Context, table string) ([]columnInfo, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var ci columnInfo
		if err := rows.Scan(&ci.name, &ci.declType); err != nil {
			return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
		}
		cols = append(cols, ci)
	}
	return cols, rows.Err()
}

func (d *DB) columnNames(ctx context.Context, table string) ([]string, error) {
	infos, err := d.columnInfos(ctx, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, ci := range infos {
		if !slices.Contains(d.cfg.ignoredColumns, ci.name) {
			names = append(names, ci.name)
		}
	}
	return names, nil
}

func (d *DB) hasTable(ctx context.Context, name string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", name, err)
	}
	return n > 0, nil
}

// query runs q and collects at most limit rows. A negative limit collects all rows.
func (d *DB) query(ctx context.Context, limit int, q string, args ...any) ([]Row, error) {
	d.logger.DebugContext(ctx, "query", slog.String("sql", q))
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []Row{}
	for rows.Next() {
		if limit >= 0 && len(out) >= limit {
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := orderedmap.New[string, any]()
		for i, col := range cols {
			row.Set(col, normalize(values[i]))
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// withoutIgnored drops ignored columns from rows in place.
func (d *DB) withoutIgnored(rows []Row) []Row {
	for _, row := range rows {
		for _, col := range d.cfg.ignoredColumns {
			row.Delete(col)
		}
	}
	return rows
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return whitespaceRe.ReplaceAllString(s, " ")
}

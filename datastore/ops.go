package datastore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/casualjim/sqlowl/tool"
	"github.com/goccy/go-json"
)

// Tables returns the names of the tables available, without full-text index,
// history and ignored tables.
func (d *DB) Tables(ctx context.Context) ([]string, error) {
	return d.tableNames(ctx)
}

// Schema returns the CREATE statement of table on a single line.
func (d *DB) Schema(ctx context.Context, table string) (any, error) {
	if msg, err := d.checkTable(ctx, table, "Error: Invalid table. Valid tables are: %s"); msg != "" || err != nil {
		return msg, err
	}
	var ddl string
	if err := d.db.QueryRowContext(ctx, `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&ddl); err != nil {
		return nil, fmt.Errorf("failed to read schema of %s: %w", table, err)
	}
	return collapseWhitespace(ddl), nil
}

// Columns returns the column names of table in declaration order.
func (d *DB) Columns(ctx context.Context, table string) (any, error) {
	if msg, err := d.checkTable(ctx, table, "Invalid table. Valid tables are: %s"); msg != "" || err != nil {
		return msg, err
	}
	return d.columnNames(ctx, table)
}

// Help returns the data dictionary entry of a table or, with a column, of
// that column followed by its two most common values.
func (d *DB) Help(ctx context.Context, table string, column ...string) (any, error) {
	help, ok := d.cfg.dictionary.Table(table)
	if !ok {
		names, err := d.tableNames(ctx)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("Error: The table %s doesn't exist. Valid tables: %s", table, formatList(names)), nil
	}
	if len(column) == 0 {
		return help.Description, nil
	}

	col := column[0]
	text, ok := help.Columns[col]
	if !ok {
		names, err := d.columnNames(ctx, table)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("Error: The column %s isn't in the %s table. Valid columns: %s", col, table, formatList(names)), nil
	}

	exists, err := d.hasTable(ctx, table)
	if err != nil || !exists {
		return text, err
	}
	top, err := d.facets(ctx, table, col, 2)
	if err != nil {
		return text, nil
	}
	values := make([]string, len(top))
	for i, f := range top {
		values[i] = fmt.Sprint(f[0])
	}
	return fmt.Sprintf("%s the top two values are: %s", text, strings.Join(values, ", ")), nil
}

// SQLQuery runs a read-only query and returns its first rows. Queries that
// select every column are refused so the model learns to pick columns.
func (d *DB) SQLQuery(ctx context.Context, query string) (any, error) {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(query)), "select *") {
		return "Error: Select some specific columns, not *", nil
	}
	rows, err := d.query(ctx, d.cfg.rowLimit, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &tool.QueryError{Message: "Your query has an error: " + err.Error(), Err: err}
	}
	return rows, nil
}

// Facets returns up to five [value, count] pairs for column, most common
// first. Columns holding JSON arrays are counted per element.
func (d *DB) Facets(ctx context.Context, table, column string) (any, error) {
	if msg, err := d.checkColumn(ctx, table, column); msg != "" || err != nil {
		return msg, err
	}
	return d.facets(ctx, table, column, 5)
}

func (d *DB) facets(ctx context.Context, table, column string, limit int) ([][]any, error) {
	isArray, err := d.isArrayColumn(ctx, table, column)
	if err != nil {
		return nil, err
	}

	t, c := quoteIdent(table), quoteIdent(column)
	var q string
	if isArray {
		q = fmt.Sprintf(`SELECT value, count(*) AS count FROM (SELECT j.value AS value FROM %s CROSS JOIN json_each(%s.%s) AS j) GROUP BY value ORDER BY count DESC LIMIT %d`, t, t, c, limit)
	} else {
		q = fmt.Sprintf(`SELECT %s AS value, count(%s) AS count FROM %s GROUP BY %s ORDER BY count DESC LIMIT %d`, c, c, t, c, limit)
	}
	rows, err := d.query(ctx, -1, q)
	if err != nil {
		return nil, fmt.Errorf("failed to compute facets of %s.%s: %w", table, column, err)
	}

	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		value, _ := row.Get("value")
		count, _ := row.Get("count")
		out = append(out, []any{value, count})
	}
	return out, nil
}

// Filter returns the first row of table where column equals value. For JSON
// array columns a row matches when any element equals value.
func (d *DB) Filter(ctx context.Context, table, column, value string) (any, error) {
	if msg, err := d.checkColumn(ctx, table, column); msg != "" || err != nil {
		return msg, err
	}
	isArray, err := d.isArrayColumn(ctx, table, column)
	if err != nil {
		return nil, err
	}

	t, c := quoteIdent(table), quoteIdent(column)
	var q string
	if isArray {
		q = fmt.Sprintf(`SELECT * FROM %s WHERE EXISTS (SELECT 1 FROM json_each(%s.%s) WHERE value = ?) LIMIT 1`, t, t, c)
	} else {
		q = fmt.Sprintf(`SELECT * FROM %s WHERE %s = ? LIMIT 1`, t, c)
	}
	rows, err := d.query(ctx, 1, q, value)
	if err != nil {
		return nil, fmt.Errorf("failed to filter %s.%s: %w", table, column, err)
	}
	return d.withoutIgnored(rows), nil
}

// Search runs a full-text search over table. It uses the <table>_fts index
// when one exists and falls back to LIKE over the table's text columns.
func (d *DB) Search(ctx context.Context, table, query string) (any, error) {
	if msg, err := d.checkTable(ctx, table, "Invalid table. Valid tables are: %s"); msg != "" || err != nil {
		return msg, err
	}

	t := quoteIdent(table)
	fts := table + ftsSuffix
	hasFTS, err := d.hasTable(ctx, fts)
	if err != nil {
		return nil, err
	}
	if hasFTS {
		f := quoteIdent(fts)
		q := fmt.Sprintf(`SELECT %s.* FROM %s JOIN %s ON %s.rowid = %s.rowid WHERE %s MATCH ? ORDER BY bm25(%s) LIMIT %d`, t, t, f, f, t, f, f, d.cfg.searchLimit)
		rows, err := d.query(ctx, d.cfg.searchLimit, q, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, &tool.QueryError{Message: "Your search has an error: " + err.Error(), Err: err}
		}
		return d.withoutIgnored(rows), nil
	}

	cols, err := d.searchColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return fmt.Sprintf("Error: The table %s has no searchable columns", table), nil
	}
	clauses := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		clauses[i] = quoteIdent(col) + " LIKE ?"
		args[i] = "%" + query + "%"
	}
	q := fmt.Sprintf(`SELECT * FROM %s WHERE %s LIMIT %d`, t, strings.Join(clauses, " OR "), d.cfg.searchLimit)
	rows, err := d.query(ctx, d.cfg.searchLimit, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", table, err)
	}
	return d.withoutIgnored(rows), nil
}

func (d *DB) searchColumns(ctx context.Context, table string) ([]string, error) {
	if cols, ok := d.cfg.searchColumns[table]; ok {
		return cols, nil
	}
	infos, err := d.columnInfos(ctx, table)
	if err != nil {
		return nil, err
	}
	var cols []string
	for _, ci := range infos {
		if slices.Contains(d.cfg.ignoredColumns, ci.name) {
			continue
		}
		typ := strings.ToUpper(ci.declType)
		if strings.Contains(typ, "TEXT") || strings.Contains(typ, "CHAR") || strings.Contains(typ, "CLOB") {
			cols = append(cols, ci.name)
		}
	}
	return cols, nil
}

// isArrayColumn reports whether the first non-empty value of column looks like a JSON array.
func (d *DB) isArrayColumn(ctx context.Context, table, column string) (bool, error) {
	t, c := quoteIdent(table), quoteIdent(column)
	q := fmt.Sprintf(`SELECT %s AS value FROM %s WHERE %s IS NOT NULL AND %s != '' LIMIT 1`, c, t, c, c)
	rows, err := d.query(ctx, 1, q)
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s.%s: %w", table, column, err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	v, _ := rows[0].Get("value")
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "["), nil
}

// checkTable returns a message listing the valid tables when table is not one of them.
func (d *DB) checkTable(ctx context.Context, table, format string) (string, error) {
	names, err := d.tableNames(ctx)
	if err != nil {
		return "", err
	}
	if !slices.Contains(names, table) {
		return fmt.Sprintf(format, formatList(names)), nil
	}
	return "", nil
}

func (d *DB) checkColumn(ctx context.Context, table, column string) (string, error) {
	if msg, err := d.checkTable(ctx, table, "Invalid table. Valid tables are: %s"); msg != "" || err != nil {
		return msg, err
	}
	names, err := d.columnNames(ctx, table)
	if err != nil {
		return "", err
	}
	if !slices.Contains(names, column) {
		return fmt.Sprintf("Invalid column. Valid columns are: %s", formatList(names)), nil
	}
	return "", nil
}

func formatList(names []string) string {
	if names == nil {
		names = []string{}
	}
	b, err := json.Marshal(names)
	if err != nil {
		return strings.Join(names, ", ")
	}
	return string(b)
}

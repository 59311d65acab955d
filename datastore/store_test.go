package datastore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/casualjim/sqlowl/tool"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixture = []string{
	`CREATE TABLE jobs (
		id INTEGER PRIMARY KEY,
		title TEXT,
		description TEXT,
		jobType TEXT,
		skillTypes TEXT,
		paymentAmount REAL
	)`,
	`INSERT INTO jobs VALUES
		(1, 'Scripter needed', 'Need a Lua scripter for an obby', 'PartTime', '["Scripter","Builder"]', 100.0),
		(2, 'Builder wanted', 'Build a castle map', 'Commission', '["Builder"]', 50.0),
		(3, 'Modeler', '3D models for a racing game', 'PartTime', '["Modeler","Builder"]', 0.0)`,
	`CREATE VIRTUAL TABLE jobs_fts USING fts5(title, description, content='jobs', content_rowid='id')`,
	`INSERT INTO jobs_fts(jobs_fts) VALUES ('rebuild')`,
	`CREATE TABLE users (
		creatorUserId INTEGER PRIMARY KEY,
		creatorDescription TEXT,
		isOpenToWork INTEGER,
		created_at TEXT
	)`,
	`INSERT INTO users VALUES
		(10, 'I build racing games', 1, '2024-01-01'),
		(11, 'Lua scripter for hire', 0, '2024-02-01')`,
	`CREATE TABLE schema_migrations (version TEXT)`,
	`CREATE TABLE jobs_history (id INTEGER)`,
}

func createFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "example.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range fixture {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func openFixture(t *testing.T, options ...Option) *DB {
	t.Helper()
	dict, err := LoadDictionary(filepath.Join("testdata", "dictionary.yaml"))
	require.NoError(t, err)

	db, err := Open(createFixture(t), append([]Option{WithDictionary(dict)}, options...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestOpen(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.db"))
		require.ErrorIs(t, err, ErrDatabaseNotFound)
	})

	t.Run("invalid row limit", func(t *testing.T) {
		_, err := Open(createFixture(t), WithRowLimit(0))
		require.Error(t, err)
	})

	t.Run("read only", func(t *testing.T) {
		db := openFixture(t)
		_, err := db.SQLQuery(context.Background(), "insert into users (creatorUserId) values (12)")
		var qe *tool.QueryError
		require.True(t, errors.As(err, &qe), "got %v", err)
		assert.Contains(t, qe.Error(), "Your query has an error: ")

		res, err := db.SQLQuery(context.Background(), "select count(*) from users")
		require.NoError(t, err)
		assert.Equal(t, `[{"count(*)":2}]`, toJSON(t, res))
	})
}

func TestDB_Tables(t *testing.T) {
	db := openFixture(t)
	names, err := db.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs", "users"}, names)
}

func TestDB_Schema(t *testing.T) {
	db := openFixture(t)
	ctx := context.Background()

	res, err := db.Schema(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE users ( creatorUserId INTEGER PRIMARY KEY, creatorDescription TEXT, isOpenToWork INTEGER, created_at TEXT )", res)

	res, err = db.Schema(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, `Error: Invalid table. Valid tables are: ["jobs","users"]`, res)
}

func TestDB_Columns(t *testing.T) {
	db := openFixture(t)
	ctx := context.Background()

	res, err := db.Columns(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"creatorUserId", "creatorDescription", "isOpenToWork"}, res)

	res, err = db.Columns(ctx, "jobs_fts")
	require.NoError(t, err)
	assert.Equal(t, `Invalid table. Valid tables are: ["jobs","users"]`, res)
}

func TestDB_SQLQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("count", func(t *testing.T) {
		db := openFixture(t)
		res, err := db.SQLQuery(ctx, "select count(*) from jobs;")
		require.NoError(t, err)
		assert.Equal(t, `[{"count(*)":3}]`, toJSON(t, res))
	})

	t.Run("keeps select order", func(t *testing.T) {
		db := openFixture(t)
		res, err := db.SQLQuery(ctx, "select title, id from jobs where id = 2")
		require.NoError(t, err)
		assert.Equal(t, `[{"title":"Builder wanted","id":2}]`, toJSON(t, res))
	})

	t.Run("truncates", func(t *testing.T) {
		db := openFixture(t, WithRowLimit(2))
		res, err := db.SQLQuery(ctx, "select id from jobs order by id")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1},{"id":2}]`, toJSON(t, res))
	})

	t.Run("no rows", func(t *testing.T) {
		db := openFixture(t)
		res, err := db.SQLQuery(ctx, "select id from jobs where id = 42")
		require.NoError(t, err)
		assert.Equal(t, `[]`, toJSON(t, res))
	})

	t.Run("refuses select star", func(t *testing.T) {
		db := openFixture(t)
		res, err := db.SQLQuery(ctx, "  SELECT * from jobs")
		require.NoError(t, err)
		assert.Equal(t, "Error: Select some specific columns, not *", res)
	})

	t.Run("syntax error", func(t *testing.T) {
		db := openFixture(t)
		_, err := db.SQLQuery(ctx, "selec id from jobs")
		var qe *tool.QueryError
		require.ErrorAs(t, err, &qe)
		assert.True(t, tool.IsRecoverable(err))
		assert.Contains(t, qe.Message, "Your query has an error: ")
	})
}

func TestDB_Facets(t *testing.T) {
	db := openFixture(t)
	ctx := context.Background()

	res, err := db.Facets(ctx, "jobs", "jobType")
	require.NoError(t, err)
	assert.Equal(t, `[["PartTime",2],["Commission",1]]`, toJSON(t, res))

	res, err = db.Facets(ctx, "jobs", "skillTypes")
	require.NoError(t, err)
	facets, ok := res.([][]any)
	require.True(t, ok)
	require.Len(t, facets, 3)
	assert.Equal(t, `["Builder",3]`, toJSON(t, facets[0]))

	res, err = db.Facets(ctx, "jobs", "salary")
	require.NoError(t, err)
	assert.Equal(t, `Invalid column. Valid columns are: ["id","title","description","jobType","skillTypes","paymentAmount"]`, res)
}

func TestDB_Filter(t *testing.T) {
	db := openFixture(t)
	ctx := context.Background()

	res, err := db.Filter(ctx, "jobs", "jobType", "Commission")
	require.NoError(t, err)
	rows, ok := res.([]Row)
	require.True(t, ok)
	require.Len(t, rows, 1)
	id, _ := rows[0].Get("id")
	assert.EqualValues(t, 2, id)

	res, err = db.Filter(ctx, "jobs", "skillTypes", "Modeler")
	require.NoError(t, err)
	rows = res.([]Row)
	require.Len(t, rows, 1)
	id, _ = rows[0].Get("id")
	assert.EqualValues(t, 3, id)

	res, err = db.Filter(ctx, "users", "isOpenToWork", "1")
	require.NoError(t, err)
	assert.Equal(t, `[{"creatorUserId":10,"creatorDescription":"I build racing games","isOpenToWork":1}]`, toJSON(t, res))

	res, err = db.Filter(ctx, "users", "created_at", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, `Invalid column. Valid columns are: ["creatorUserId","creatorDescription","isOpenToWork"]`, res)
}

func TestDB_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("full-text index", func(t *testing.T) {
		db := openFixture(t)
		res, err := db.Search(ctx, "jobs", "scripter")
		require.NoError(t, err)
		rows := res.([]Row)
		require.Len(t, rows, 1)
		title, _ := rows[0].Get("title")
		assert.Equal(t, "Scripter needed", title)
	})

	t.Run("full-text syntax error", func(t *testing.T) {
		db := openFixture(t)
		_, err := db.Search(ctx, "jobs", `"unterminated`)
		var qe *tool.QueryError
		require.ErrorAs(t, err, &qe)
	})

	t.Run("like fallback", func(t *testing.T) {
		db := openFixture(t)
		res, err := db.Search(ctx, "users", "racing")
		require.NoError(t, err)
		assert.Equal(t, `[{"creatorUserId":10,"creatorDescription":"I build racing games","isOpenToWork":1}]`, toJSON(t, res))
	})

	t.Run("configured columns", func(t *testing.T) {
		db := openFixture(t, WithSearchColumns("users", "created_at"))
		res, err := db.Search(ctx, "users", "2024-02")
		require.NoError(t, err)
		rows := res.([]Row)
		require.Len(t, rows, 1)
		id, _ := rows[0].Get("creatorUserId")
		assert.EqualValues(t, 11, id)
	})

	t.Run("invalid table", func(t *testing.T) {
		db := openFixture(t)
		res, err := db.Search(ctx, "games", "x")
		require.NoError(t, err)
		assert.Equal(t, `Invalid table. Valid tables are: ["jobs","users"]`, res)
	})
}

func TestDB_Help(t *testing.T) {
	db := openFixture(t)
	ctx := context.Background()

	res, err := db.Help(ctx, "jobs")
	require.NoError(t, err)
	assert.Contains(t, res, "these are listings for jobs")

	res, err = db.Help(ctx, "jobs", "jobType")
	require.NoError(t, err)
	assert.Equal(t, `the type of job, can be one of: "Commission", "FullTime", "PartTime" the top two values are: PartTime, Commission`, res)

	res, err = db.Help(ctx, "games")
	require.NoError(t, err)
	assert.Equal(t, `Error: The table games doesn't exist. Valid tables: ["jobs","users"]`, res)

	res, err = db.Help(ctx, "users", "isPublic")
	require.NoError(t, err)
	assert.Equal(t, `Error: The column isPublic isn't in the users table. Valid columns: ["creatorUserId","creatorDescription","isOpenToWork"]`, res)
}

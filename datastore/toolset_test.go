package datastore

import (
	"context"
	"testing"

	"github.com/casualjim/sqlowl/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolset(t *testing.T) {
	db := openFixture(t)

	t.Run("defaults", func(t *testing.T) {
		reg, err := Toolset(db)
		require.NoError(t, err)
		assert.Equal(t, []string{"tables", "schema", "help", "sql-query"}, reg.Names())
	})

	t.Run("custom order", func(t *testing.T) {
		reg, err := Toolset(db, ActionTables, ActionColumns, ActionFacets, ActionFilter, ActionSearch)
		require.NoError(t, err)
		assert.Equal(t, []string{"tables", "columns", "facets", "filter", "search"}, reg.Names())
		assert.Contains(t, reg.Describe(), "facets: useful for looking at the unique values")
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := Toolset(db, "drop")
		require.ErrorIs(t, err, tool.ErrInvalidAction)
	})

	t.Run("dispatch", func(t *testing.T) {
		reg, err := Toolset(db)
		require.NoError(t, err)
		ctx := context.Background()

		res, err := reg.Call(ctx, ActionSQLQuery, []string{"select count(*) from jobs;"})
		require.NoError(t, err)
		assert.Equal(t, `[{"count(*)":3}]`, toJSON(t, res))

		res, err = reg.Call(ctx, ActionHelp, []string{"jobs", "id"})
		require.NoError(t, err)
		assert.Contains(t, res, "the primary key of the job listing the top two values are:")

		_, err = reg.Call(ctx, ActionSchema, nil)
		var arity *tool.ArityError
		require.ErrorAs(t, err, &arity)
		assert.Equal(t, "missing 1 required positional argument", arity.Error())
	})
}

package datastore

import (
	"fmt"

	"github.com/casualjim/sqlowl/tool"
)

// Action names served by Toolset.
const (
	ActionTables   = "tables"
	ActionSchema   = "schema"
	ActionHelp     = "help"
	ActionSQLQuery = "sql-query"
	ActionColumns  = "columns"
	ActionFacets   = "facets"
	ActionFilter   = "filter"
	ActionSearch   = "search"
)

// DefaultActions are the actions of the built-in prompt template.
var DefaultActions = []string{ActionTables, ActionSchema, ActionHelp, ActionSQLQuery}

// Definitions returns every operation of db as a tool definition.
func (d *DB) Definitions() []tool.Definition {
	return []tool.Definition{
		tool.Must(d.Tables,
			tool.Name(ActionTables),
			tool.Description("useful for getting the names of tables available. no input.")),
		tool.Must(d.Schema,
			tool.Name(ActionSchema),
			tool.Description("useful for looking at the schema of a database. input 1: table name."),
			tool.Parameters("table")),
		tool.Must(d.Help,
			tool.Name(ActionHelp),
			tool.Description("get helpful information describing a table or a table's column. useful for understanding the relationship between tables and what columns mean. input 1: table name. (optional) input 2: column name."),
			tool.Parameters("table", "column")),
		tool.Must(d.SQLQuery,
			tool.Name(ActionSQLQuery),
			tool.Description("useful for analyzing data and getting the top 5 results of a query. input 1: a valid sqlite sql query."),
			tool.Parameters("query")),
		tool.Must(d.Columns,
			tool.Name(ActionColumns),
			tool.Description("useful for looking all of the columns for a given table. input 1: table name."),
			tool.Parameters("table")),
		tool.Must(d.Facets,
			tool.Name(ActionFacets),
			tool.Description("useful for looking at the unique values and counts for a given column. input 1: table name, input 2: column name."),
			tool.Parameters("table", "column")),
		tool.Must(d.Filter,
			tool.Name(ActionFilter),
			tool.Description("useful for getting the first row where the column matches a given value. input 1: table name, input 2: column name, input 3: a value to filter on."),
			tool.Parameters("table", "column", "value")),
		tool.Must(d.Search,
			tool.Name(ActionSearch),
			tool.Description("a full-text search engine. useful to find records with descriptions containing some text. input 1: table name, input 2: a search query."),
			tool.Parameters("table", "query")),
	}
}

// Toolset registers the named operations of db in the given order. Without
// names it registers DefaultActions.
func Toolset(db *DB, names ...string) (*tool.Registry, error) {
	if len(names) == 0 {
		names = DefaultActions
	}
	defs := make(map[string]tool.Definition)
	for _, def := range db.Definitions() {
		defs[def.Name] = def
	}

	reg, err := tool.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		def, ok := defs[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", tool.ErrInvalidAction, name)
		}
		if err := reg.Add(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Package datastore exposes a SQLite database to the agent loop as a set of
// read-only lookup operations.
//
// The database is opened read-only with the pure Go modernc.org/sqlite driver.
// Every operation validates table and column names against live
// introspection; an invalid name produces a textual result that lists the
// valid choices so the model can correct itself on the next attempt. Failing
// SQL is reported as a *tool.QueryError, which the loop folds back into the
// conversation.
//
// Toolset registers the operations under the action names the prompts
// advertise:
//
//	tables     names of the tables available
//	schema     CREATE statement of a table
//	help       data dictionary entry for a table or a column
//	sql-query  top rows of an arbitrary read-only query
//	columns    column names of a table
//	facets     most common values of a column
//	filter     first row where a column matches a value
//	search     full-text search over a table
package datastore

/*
Package tool defines the capability provider contract the agent loop
dispatches actions to, and a reflection based registry that turns plain Go
functions into actions.

# Contract

A Provider exposes named operations that take positional string inputs and
return a JSON serializable result:

	type Provider interface {
		Names() []string
		Call(ctx context.Context, name string, args []string) (any, error)
	}

Errors are classified by type. ErrInvalidAction (unknown name), *ArityError
(wrong number of inputs) and *QueryError (the operation ran but rejected its
input) are recoverable: the loop turns them into observations so the model
can correct itself. Any other error is fatal for the run.

# Functions as tools

New accepts any function whose parameters are an optional leading
context.Context followed by string parameters, optionally variadic, and whose
results are nothing, a value, an error or a value and an error:

	func schema(ctx context.Context, table string) (string, error)

	def := tool.Must(schema,
		tool.Name("schema"),
		tool.Description("useful for looking at the schema of a database. input 1: table name."),
		tool.Parameters("table"),
	)

Calling a definition with the wrong number of inputs fails with an *ArityError
whose message reads like "takes 1 positional argument but 2 were given" or
"missing 1 required positional argument".

# Registry

A Registry keeps definitions in registration order. That order is the order
of Names, of Describe and of the valid action list shown to the model when it
names an action that does not exist.
*/
package tool

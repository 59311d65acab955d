package tool

import (
	"context"
	"fmt"
	"reflect"

	"github.com/casualjim/sqlowl/pkg/reflectx"
	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Definition describes a function exposed as an action.
type Definition struct {
	Name        string
	Description string
	// Parameters names the string inputs in order. It is used for schemas only.
	Parameters []string
	Function   any
}

var stringType = reflect.TypeFor[string]()

// signature is the validated shape of a tool function.
type signature struct {
	withContext bool
	required    int
	variadic    bool
	withError   bool
	results     int
}

func inspect(fn any) (signature, error) {
	if !reflectx.IsFunction(fn) {
		return signature{}, fmt.Errorf("provided value is not a function")
	}
	typ := reflect.TypeOf(fn)

	sig := signature{
		withContext: reflectx.AcceptsContext(typ),
		variadic:    typ.IsVariadic(),
		withError:   reflectx.ReturnsError(typ),
		results:     typ.NumOut(),
	}

	start := 0
	if sig.withContext {
		start = 1
	}
	for i := start; i < typ.NumIn(); i++ {
		in := typ.In(i)
		if sig.variadic && i == typ.NumIn()-1 {
			in = in.Elem()
		} else {
			sig.required++
		}
		if in != stringType {
			return signature{}, fmt.Errorf("parameter %d of %s must be a string, got %s", i, typ, in)
		}
	}

	switch {
	case sig.results > 2:
		return signature{}, fmt.Errorf("%s returns %d values, expected at most 2", typ, sig.results)
	case sig.results == 2 && !sig.withError:
		return signature{}, fmt.Errorf("the second result of %s must be an error", typ)
	}
	return sig, nil
}

// Call invokes the tool function with args as its positional inputs.
func (td Definition) Call(ctx context.Context, args []string) (any, error) {
	sig, err := inspect(td.Function)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", td.Name, err)
	}
	if len(args) < sig.required || (!sig.variadic && len(args) > sig.required) {
		return nil, &ArityError{Tool: td.Name, Want: sig.required, Got: len(args), Variadic: sig.variadic}
	}

	callArgs := make([]reflect.Value, 0, len(args)+1)
	if sig.withContext {
		if ctx == nil {
			ctx = context.Background()
		}
		callArgs = append(callArgs, reflect.ValueOf(ctx))
	}
	for _, arg := range args {
		callArgs = append(callArgs, reflect.ValueOf(arg))
	}

	results := reflect.ValueOf(td.Function).Call(callArgs)
	if sig.withError {
		if errVal := results[len(results)-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
		results = results[:len(results)-1]
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0].Interface(), nil
}

var functionReflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

// ToNameAndSchema returns the tool name and a JSON schema of its inputs.
// Variadic inputs are described as an optional array.
func (td Definition) ToNameAndSchema() (string, *jsonschema.Schema) {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}
	sig, err := inspect(td.Function)
	if err != nil {
		return td.Name, schema
	}

	total := sig.required
	if sig.variadic {
		total++
	}
	for i := 0; i < total; i++ {
		name := fmt.Sprintf("input%d", i+1)
		if i < len(td.Parameters) {
			name = td.Parameters[i]
		}
		var prop *jsonschema.Schema
		if i < sig.required {
			prop = functionReflector.ReflectFromType(stringType)
			schema.Required = append(schema.Required, name)
		} else {
			prop = functionReflector.ReflectFromType(reflect.TypeFor[[]string]())
		}
		prop.Version = ""
		schema.Properties.Set(name, prop)
	}
	return td.Name, schema
}

// Option is a type alias for a function that modifies a tool definition.
type Option = opts.Option[Definition]

// Must is like New but panics when the definition is invalid.
func Must(f any, options ...Option) Definition {
	def, err := New(f, options...)
	if err != nil {
		panic(err)
	}
	return def
}

// New creates a Definition for f. Without a Name option the function name is used.
func New(f any, options ...Option) (Definition, error) {
	if _, err := inspect(f); err != nil {
		return Definition{}, err
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		def.Name = reflectx.FunctionName(f)
	}

	def.Function = f
	return def, nil
}

// Name sets the action name the model uses to call the tool.
var Name = opts.ForName[Definition, string]("Name")

// Description sets the description shown to the model.
var Description = opts.ForName[Definition, string]("Description")

// Parameters names the positional inputs of the tool, in order.
func Parameters(parameters ...string) Option {
	return opts.Type[Definition](func(o *Definition) error {
		o.Parameters = parameters
		return nil
	})
}

package reflectx

import (
	"context"
	"reflect"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type functionTestStruct struct{}

func (t *functionTestStruct) method() {}
func (t functionTestStruct) method2() {}

func regularFunction()   {}
func withParams(x int)   {}
func withReturn() error  { return nil }
func variadic(...string) {}

type namedFunc func(string) string

func TestFunctionValidation(t *testing.T) {
	tests := []struct {
		name string
		fn   interface{}
		want bool
	}{
		{"nil", nil, false},
		{"int", 42, false},
		{"string", "not a func", false},
		{"struct", functionTestStruct{}, false},
		{"regular function", regularFunction, true},
		{"anonymous function", func() {}, true},
		{"function with params", withParams, true},
		{"function with return", withReturn, true},
		{"variadic function", variadic, true},
		{"pointer method", (*functionTestStruct).method, true},
		{"value method", (functionTestStruct).method2, true},
		{"function with multiple returns", func() (int, error) { return 0, nil }, true},
	}

	for tt := range slices.Values(tests) {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsFunction(tt.fn))
		})
	}
}

func TestFunctionName(t *testing.T) {
	var s functionTestStruct

	assert.Equal(t, "regularFunction", FunctionName(regularFunction))
	assert.Equal(t, "method2", FunctionName(s.method2))
	assert.Equal(t, "reflectx.namedFunc", FunctionName(namedFunc(func(s string) string { return s })))
	assert.Empty(t, FunctionName("nope"))
}

func TestSignatureHelpers(t *testing.T) {
	withCtx := reflect.TypeOf(func(context.Context, string) (string, error) { return "", nil })
	withoutCtx := reflect.TypeOf(func(string) string { return "" })

	assert.True(t, AcceptsContext(withCtx))
	assert.False(t, AcceptsContext(withoutCtx))
	assert.True(t, ReturnsError(withCtx))
	assert.False(t, ReturnsError(withoutCtx))
	assert.False(t, AcceptsContext(reflect.TypeOf(42)))
	assert.True(t, IsError(withCtx.Out(1)))
}

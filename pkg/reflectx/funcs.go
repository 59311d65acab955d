package reflectx

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

func IsFunction(fn any) bool {
	if fn == nil {
		return false
	}
	return reflect.TypeOf(fn).Kind() == reflect.Func
}

// FunctionName returns the short name of fn: the type name for named
// function types, otherwise the runtime symbol without its package path and
// without the "-fm" suffix of method values.
func FunctionName(fn any) string {
	if !IsFunction(fn) {
		return ""
	}

	val := reflect.ValueOf(fn)
	typ := val.Type()
	if typ.Name() != "" {
		return typ.String()
	}

	rf := runtime.FuncForPC(val.Pointer())
	if rf == nil {
		return typ.String()
	}
	name := rf.Name()
	if lastDot := strings.LastIndex(name, "."); lastDot >= 0 {
		name = name[lastDot+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// AcceptsContext reports whether the first parameter of the function type t is a context.Context.
func AcceptsContext(t reflect.Type) bool {
	return t.Kind() == reflect.Func && t.NumIn() > 0 && t.In(0) == contextType
}

// ReturnsError reports whether the last result of the function type t is an error.
func ReturnsError(t reflect.Type) bool {
	return t.Kind() == reflect.Func && t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType
}

// IsError reports whether t is the error interface type.
func IsError(t reflect.Type) bool {
	return t == errorType
}

package interpreter

import (
	"reflect"

	"github.com/pkg/errors"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func isHostFunc(host any) bool {
	return host != nil && reflect.ValueOf(host).Kind() == reflect.Func
}

// callForeign invokes a host function with unboxed arguments. Missing
// arguments are zero values; a trailing non-nil error result or a panic is
// reported as an error.
func callForeign(host any, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	fn := reflect.ValueOf(host)
	if fn.Kind() != reflect.Func {
		return nil, errors.Errorf("%T is not a function", host)
	}
	typ := fn.Type()
	arity := typ.NumIn()
	if !typ.IsVariadic() && len(args) > arity {
		return nil, errors.Errorf("expected %d arguments, got %d", arity, len(args))
	}
	count := arity
	if typ.IsVariadic() {
		count = max(arity-1, len(args))
	}
	in := make([]reflect.Value, 0, count)
	for i := 0; i < count; i++ {
		var target reflect.Type
		if typ.IsVariadic() && i >= arity-1 {
			target = typ.In(arity - 1).Elem()
		} else {
			target = typ.In(i)
		}
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		v, convErr := convertArg(arg, target)
		if convErr != nil {
			return nil, errors.Wrapf(convErr, "argument %d", i+1)
		}
		in = append(in, v)
	}
	outs := fn.Call(in)
	if n := len(outs); n > 0 && typ.Out(n-1) == errorType {
		if e, _ := outs[n-1].Interface().(error); e != nil {
			return nil, e
		}
		outs = outs[:n-1]
	}
	if len(outs) == 0 {
		return nil, nil
	}
	return outs[0].Interface(), nil
}

func convertArg(arg any, target reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(target), nil
	}
	v := reflect.ValueOf(arg)
	switch {
	case v.Type().AssignableTo(target):
		return v, nil
	case v.Type().ConvertibleTo(target) && v.Kind() != reflect.String && target.Kind() != reflect.String:
		return v.Convert(target), nil
	default:
		return reflect.Value{}, errors.Errorf("cannot use %T as %s", arg, target)
	}
}

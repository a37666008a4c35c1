package host

import (
	"bytes"
	"fmt"
	"math"
	"reflect"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/value"
)

var valueType = reflect.TypeOf(value.Value{})

// fromValue converts a bridged argument to the parameter type t.
func fromValue(v value.Value, t reflect.Type, resolve func(jsbridge.ObjectID) (any, bool), path []string) (reflect.Value, error) {
	if t == valueType {
		return reflect.ValueOf(v), nil
	}

	switch v.Kind() {
	case value.KindNone:
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, mismatch(path, t, v)

	case value.KindObject:
		if resolve == nil {
			return reflect.Value{}, mismatch(path, t, v)
		}
		id, _ := v.AsObject()
		obj, ok := resolve(id)
		if !ok {
			return reflect.Value{}, errors.New(errors.PhaseHost, errors.KindUnknownObject).
				Path(path...).
				Detail("unknown object %d", uint64(id)).
				Build()
		}
		ov := reflect.ValueOf(obj)
		if !ov.Type().AssignableTo(t) {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseHost, path, t.String(), ov.Type().String())
		}
		return ov, nil
	}

	if t.Kind() == reflect.Interface {
		if t.NumMethod() != 0 {
			return reflect.Value{}, mismatch(path, t, v)
		}
		nat := v.Interface()
		if nat == nil {
			return reflect.Zero(t), nil
		}
		return reflect.ValueOf(nat), nil
	}

	out := reflect.New(t).Elem()

	switch v.Kind() {
	case value.KindBool:
		if t.Kind() == reflect.Bool {
			b, _ := v.AsBool()
			out.SetBool(b)
			return out, nil
		}

	case value.KindInt:
		if isNumeric(t) {
			i, _ := v.AsInt()
			if err := setInt(out, i, path); err != nil {
				return reflect.Value{}, err
			}
			return out, nil
		}

	case value.KindDouble:
		f, _ := v.AsDouble()
		switch t.Kind() {
		case reflect.Float32, reflect.Float64:
			if out.OverflowFloat(f) {
				return reflect.Value{}, errors.Overflow(errors.PhaseHost, path, f, t.String())
			}
			out.SetFloat(f)
			return out, nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if math.Trunc(f) != f || math.IsInf(f, 0) {
				return reflect.Value{}, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
					Path(path...).
					GoType(t.String()).
					ScriptType("number").
					Value(f).
					Detail("non-integral number").
					Build()
			}
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return reflect.Value{}, errors.Overflow(errors.PhaseHost, path, f, t.String())
			}
			if err := setInt(out, int64(f), path); err != nil {
				return reflect.Value{}, err
			}
			return out, nil
		}

	case value.KindString:
		if t.Kind() == reflect.String {
			str, _ := v.AsString()
			out.SetString(str)
			return out, nil
		}

	case value.KindBinary:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			bin, _ := v.AsBinary()
			out.SetBytes(bytes.Clone(bin))
			return out, nil
		}

	case value.KindList:
		items, _ := v.AsList()
		switch t.Kind() {
		case reflect.Slice:
			out = reflect.MakeSlice(t, len(items), len(items))
		case reflect.Array:
			if t.Len() != len(items) {
				return reflect.Value{}, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
					Path(path...).
					GoType(t.String()).
					Detail("expected %d elements, got %d", t.Len(), len(items)).
					Build()
			}
		default:
			return reflect.Value{}, mismatch(path, t, v)
		}
		for i, item := range items {
			ev, err := fromValue(item, t.Elem(), resolve, append(path[:len(path):len(path)], fmt.Sprintf("[%d]", i)))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case value.KindMap:
		if t.Kind() != reflect.Map || t.Key().Kind() != reflect.String {
			return reflect.Value{}, mismatch(path, t, v)
		}
		m, _ := v.AsMap()
		out = reflect.MakeMapWithSize(t, len(m))
		for k, item := range m {
			ev, err := fromValue(item, t.Elem(), resolve, append(path[:len(path):len(path)], k))
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
		}
		return out, nil
	}

	return reflect.Value{}, mismatch(path, t, v)
}

// setInt stores i into a numeric out, checking the target range.
func setInt(out reflect.Value, i int64, path []string) error {
	t := out.Type()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if out.OverflowInt(i) {
			return errors.Overflow(errors.PhaseHost, path, i, t.String())
		}
		out.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if i < 0 || out.OverflowUint(uint64(i)) {
			return errors.Overflow(errors.PhaseHost, path, i, t.String())
		}
		out.SetUint(uint64(i))
	case reflect.Float32, reflect.Float64:
		out.SetFloat(float64(i))
	}
	return nil
}

func isNumeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func mismatch(path []string, t reflect.Type, v value.Value) error {
	return errors.TypeMismatch(errors.PhaseHost, path, t.String(), v.Kind().String())
}

// toResult classifies a returned value. Struct pointers, structs and
// non-empty interfaces holding them become host objects; everything else
// is converted to a value.
func toResult(rv reflect.Value, bind func(any) (jsbridge.ObjectID, bool)) Result {
	rv = deref(rv)
	if !rv.IsValid() {
		return Result{Value: value.None()}
	}
	if isObject(rv) {
		return Result{Object: rv.Interface()}
	}
	return Result{Value: toValue(rv, bind)}
}

func deref(rv reflect.Value) reflect.Value {
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	if rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}
		}
		if rv.Elem().Kind() != reflect.Struct {
			return deref(rv.Elem())
		}
	}
	return rv
}

func isObject(rv reflect.Value) bool {
	if rv.Type() == valueType {
		return false
	}
	switch rv.Kind() {
	case reflect.Pointer:
		return true
	case reflect.Struct:
		return true
	}
	return false
}

func toValue(rv reflect.Value, bind func(any) (jsbridge.ObjectID, bool)) value.Value {
	rv = deref(rv)
	if !rv.IsValid() {
		return value.None()
	}
	if rv.Type() == valueType {
		return rv.Interface().(value.Value)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return value.Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return value.Double(float64(u))
		}
		return value.Int(int64(u))
	case reflect.Float32, reflect.Float64:
		return value.Double(rv.Float())
	case reflect.String:
		return value.String(rv.String())
	case reflect.Slice:
		if rv.IsNil() {
			return value.None()
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return value.Binary(rv.Bytes())
		}
		return listValue(rv, bind)
	case reflect.Array:
		return listValue(rv, bind)
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return value.None()
		}
		m := make(map[string]value.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = toValue(iter.Value(), bind)
		}
		return value.Map(m)
	case reflect.Pointer, reflect.Struct:
		if bind == nil {
			return value.None()
		}
		id, ok := bind(rv.Interface())
		if !ok {
			return value.None()
		}
		return value.Object(id)
	}
	return value.None()
}

func listValue(rv reflect.Value, bind func(any) (jsbridge.ObjectID, bool)) value.Value {
	items := make([]value.Value, rv.Len())
	for i := range items {
		items[i] = toValue(rv.Index(i), bind)
	}
	return value.List(items...)
}

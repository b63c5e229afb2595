package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics if value is nil, including an interface holding a typed nil pointer.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		if v.IsNil() {
			panic(fmt.Sprintf("expected value of type %T to be not nil", value))
		}
	}
}

func True(cond bool, msg string) {
	if !cond {
		panic(msg)
	}
}

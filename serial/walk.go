// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package serial

import (
	"reflect"

	"cogentcore.org/scene/object"
)

var handleType = reflect.TypeFor[object.Handle]()

// WalkHandles calls the given function on every addressable
// [object.Handle] reachable from the given value through exported
// struct fields, pointers, slices, and arrays. It is used after
// decoding to collect embedded object references for delayed
// resolution through a registry deserialization session.
//
// Handles stored as map values are not addressable and are skipped;
// serializable types must not store references that way.
func WalkHandles(v any, fun func(h *object.Handle)) {
	walkHandles(reflect.ValueOf(v), fun)
}

func walkHandles(rv reflect.Value, fun func(h *object.Handle)) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !rv.IsNil() {
			walkHandles(rv.Elem(), fun)
		}
	case reflect.Struct:
		if rv.Type() == handleType {
			if rv.CanAddr() {
				fun(rv.Addr().Interface().(*object.Handle))
			}
			return
		}
		for i := range rv.NumField() {
			if rv.Type().Field(i).IsExported() {
				walkHandles(rv.Field(i), fun)
			}
		}
	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			walkHandles(rv.Index(i), fun)
		}
	}
}

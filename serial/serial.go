// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package serial provides the narrow serialization contract the
// scene-graph core relies on: an opaque intermediate tree of named
// fields ([Object]), a registry of constructible types, encoding and
// decoding of arbitrary values through the intermediate form, walking
// decoded values for embedded object-handle references, and per-type
// structural diffing.
package serial

import (
	"reflect"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Object is the opaque intermediate form of a serialized value: a tree
// of named fields whose values are strings, numbers, bools, arrays,
// and nested objects. The scene-graph core only ever walks it to find
// embedded object-handle references; everything else is pass-through.
type Object map[string]any

// String returns the string value of the given field, or "".
func (o Object) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Bool returns the bool value of the given field, or false.
func (o Object) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// Uint64 returns the unsigned integer value of the given field, or 0.
// Numbers decoded from the byte form arrive as float64; objects built
// in memory carry native integer types.
func (o Object) Uint64(key string) uint64 {
	switch n := o[key].(type) {
	case float64:
		return uint64(n)
	case uint64:
		return n
	case uint32:
		return uint64(n)
	case int:
		return uint64(n)
	case int32:
		return uint64(n)
	case int64:
		return uint64(n)
	}
	return 0
}

// Child returns the nested object value of the given field, or nil.
func (o Object) Child(key string) Object {
	switch c := o[key].(type) {
	case Object:
		return c
	case map[string]any:
		return Object(c)
	}
	return nil
}

// Children returns the array-of-objects value of the given field.
func (o Object) Children(key string) []Object {
	arr, _ := o[key].([]any)
	if arr == nil {
		return nil
	}
	objs := make([]Object, 0, len(arr))
	for _, e := range arr {
		switch c := e.(type) {
		case Object:
			objs = append(objs, c)
		case map[string]any:
			objs = append(objs, Object(c))
		}
	}
	return objs
}

// Clone returns a deep copy of the object, made through the encoded
// byte form so nested containers are not shared.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil
	}
	var c Object
	if json.Unmarshal(b, &c) != nil {
		return nil
	}
	return c
}

// Encode converts the given value to its intermediate form.
func Encode(v any) (Object, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "serial: encode")
	}
	var o Object
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, eris.Wrap(err, "serial: encode")
	}
	return o, nil
}

// Decode fills the given value from its intermediate form. The value
// must be a pointer.
func Decode(o Object, v any) error {
	b, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "serial: decode")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return eris.Wrap(err, "serial: decode")
	}
	return nil
}

// Marshal converts an intermediate form to its byte form.
func Marshal(o Object) ([]byte, error) {
	b, err := json.MarshalIndent(o, "", "\t")
	if err != nil {
		return nil, eris.Wrap(err, "serial: marshal")
	}
	return b, nil
}

// Unmarshal parses the byte form of an intermediate form.
func Unmarshal(b []byte) (Object, error) {
	var o Object
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, eris.Wrap(err, "serial: unmarshal")
	}
	return o, nil
}

// Type registry:

var registry = map[string]func() any{}

// RegisterType registers a constructor for the given type name, making
// it instantiable from serialized form. Types typically register in an
// init function using [TypeNameFor].
func RegisterType(name string, ctor func() any) {
	registry[name] = ctor
}

// NewOfType returns a new instance of the named registered type. An
// unknown name is a data error, not a programming error, so it is
// returned rather than panicking.
func NewOfType(name string) (any, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, eris.Errorf("serial: type %q not registered", name)
	}
	return ctor(), nil
}

// TypeName returns the registered-form name of the given value's type:
// the full package path plus the type name.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

// TypeNameFor returns the registered-form name for the type parameter.
func TypeNameFor[T any]() string {
	var v T
	return TypeName(&v)
}

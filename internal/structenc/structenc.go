// Package structenc marshals structures for on-disk persistence with two
// guards plain encoding/json does not give callers a handle on: reference
// cycles are detected up front and traversal depth is bounded, so a
// pathological value fails with a distinct, catchable error instead of
// exhausting the call stack.
package structenc

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// DefaultMaxDepth bounds nesting for Marshal. Values deeper than this fail
// with ErrMaxDepth.
const DefaultMaxDepth = 200

var (
	// ErrCycle is returned when the value graph references itself.
	ErrCycle = errors.New("structenc: cycle detected")

	// ErrMaxDepth is returned when nesting exceeds the configured ceiling.
	ErrMaxDepth = errors.New("structenc: max depth exceeded")
)

// Marshal encodes v as indented JSON after verifying it is acyclic and no
// deeper than DefaultMaxDepth.
func Marshal(v any) ([]byte, error) {
	return MarshalDepth(v, DefaultMaxDepth)
}

// MarshalDepth is Marshal with an explicit depth ceiling.
func MarshalDepth(v any, maxDepth int) ([]byte, error) {
	w := walker{maxDepth: maxDepth, active: make(map[visit]struct{})}
	if err := w.check(reflect.ValueOf(v), 0); err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

// visit identifies a container currently on the traversal path. Pointer
// value alone is not enough: a struct's address equals its first field's.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

type walker struct {
	maxDepth int
	active   map[visit]struct{}
}

func (w *walker) check(v reflect.Value, depth int) error {
	if !v.IsValid() {
		return nil
	}
	if depth > w.maxDepth {
		return fmt.Errorf("depth %d at %s: %w", depth, v.Type(), ErrMaxDepth)
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Map:
		if v.IsNil() {
			return nil
		}
		id := visit{ptr: v.Pointer(), typ: v.Type()}
		if _, ok := w.active[id]; ok {
			return fmt.Errorf("%s: %w", v.Type(), ErrCycle)
		}
		w.active[id] = struct{}{}
		defer delete(w.active, id)

		if v.Kind() == reflect.Ptr {
			return w.check(v.Elem(), depth+1)
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := w.check(iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		id := visit{ptr: v.Pointer(), typ: v.Type()}
		if _, ok := w.active[id]; ok {
			return fmt.Errorf("%s: %w", v.Type(), ErrCycle)
		}
		w.active[id] = struct{}{}
		defer delete(w.active, id)

		for i := 0; i < v.Len(); i++ {
			if err := w.check(v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := w.check(v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if err := w.check(v.Field(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Interface:
		if !v.IsNil() {
			return w.check(v.Elem(), depth)
		}
	}
	return nil
}

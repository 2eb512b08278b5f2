package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// writeMode says how a write combines with the stored document.
type writeMode int

const (
	modeReplace writeMode = iota // Set without Merge
	modeMerge                    // Set with Merge: nested maps deep-merge
	modeUpdate                   // Update: map values replace the field
)

// applyWrite computes the document produced by writing data over current.
// current may be nil for a missing document and is modified in place
// unless mode is modeReplace.
func applyWrite(current, data map[string]any, mode writeMode, now time.Time) (map[string]any, error) {
	out := current
	if mode == modeReplace || out == nil {
		out = make(map[string]any, len(data))
	}

	for key, val := range data {
		if key == "" {
			return nil, ErrInvalidInput.WithCause(fmt.Errorf("empty field name"))
		}
		path := strings.Split(key, ".")
		if err := applyField(out, path, val, mode, now); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
	}
	return out, nil
}

func applyField(doc map[string]any, path []string, val any, mode writeMode, now time.Time) error {
	parent := doc
	for _, seg := range path[:len(path)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			parent[seg] = next
		}
		parent = next
	}
	leaf := path[len(path)-1]

	switch v := val.(type) {
	case IncrementOp:
		n, err := toInt64(parent[leaf])
		if err != nil {
			return err
		}
		parent[leaf] = n + v.By

	case ArrayUnionOp:
		arr, err := toSlice(parent[leaf])
		if err != nil {
			return err
		}
		for _, e := range v.Elems {
			if indexOf(arr, e) < 0 {
				arr = append(arr, e)
			}
		}
		parent[leaf] = arr

	case ArrayRemoveOp:
		arr, err := toSlice(parent[leaf])
		if err != nil {
			return err
		}
		kept := arr[:0]
		for _, e := range arr {
			if indexOf(v.Elems, e) < 0 {
				kept = append(kept, e)
			}
		}
		parent[leaf] = kept

	case ServerTimestampOp:
		parent[leaf] = now.UTC()

	case DeleteFieldOp:
		delete(parent, leaf)

	case map[string]any:
		target, ok := parent[leaf].(map[string]any)
		if mode != modeMerge || !ok {
			target = make(map[string]any, len(v))
			parent[leaf] = target
		}
		for k, sub := range v {
			if err := applyField(target, []string{k}, sub, modeMerge, now); err != nil {
				return err
			}
		}

	default:
		parent[leaf] = val
	}
	return nil
}

// toInt64 converts a stored numeric value. nil counts as 0.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, ErrInvalidInput.WithCause(fmt.Errorf("non-integer value %v", n))
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, ErrInvalidInput.WithCause(err)
		}
		return i, nil
	default:
		return 0, ErrInvalidInput.WithCause(fmt.Errorf("cannot increment %T", v))
	}
}

// toSlice converts a stored array value. nil counts as empty.
func toSlice(v any) ([]any, error) {
	switch a := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return a, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, ErrInvalidInput.WithCause(fmt.Errorf("%T is not an array", v))
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// indexOf compares by canonical JSON so that 5, int64(5) and json.Number("5") match.
func indexOf(arr []any, e any) int {
	want, err := json.Marshal(e)
	if err != nil {
		return -1
	}
	for i, x := range arr {
		got, err := json.Marshal(x)
		if err == nil && bytes.Equal(got, want) {
			return i
		}
	}
	return -1
}

// Materialize returns the document a replacing Set of data would create on
// an empty path, with transforms resolved against zero values.
func Materialize(data map[string]any, now time.Time) (map[string]any, error) {
	return applyWrite(nil, data, modeReplace, now)
}

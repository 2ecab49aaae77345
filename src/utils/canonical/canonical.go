package canonical

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Returned when a value cannot be reduced to a deterministic shape,
// e.g. it contains a cycle or an unserializable type.
var ErrCanonicalize = errors.New("value cannot be canonicalized")

// Keys that never participate in business-data hashing.
// They are either storage identities or get re-stamped on every write,
// so keeping them would make every re-check fail.
var volatileKeys = map[string]struct{}{
	"id":         {},
	"_id":        {},
	"__v":        {},
	"createdAt":  {},
	"updatedAt":  {},
	"created_at": {},
	"updated_at": {},
}

// Millisecond precision, always UTC. Matches what the ingestion
// pipeline emits for date fields.
const isoFormat = "2006-01-02T15:04:05.000Z"

// Canonicalize returns a value with the same information content but a
// deterministic shape: volatile keys removed, dates converted to ISO-8601
// strings, nested objects and arrays handled recursively. Arrays keep
// their element order. A field named exactly "timestamp" is dropped only
// when it holds a date.
func Canonicalize(value any) (any, error) {
	return canonicalize(value, make(map[uintptr]struct{}))
}

func canonicalize(value any, seen map[uintptr]struct{}) (out any, err error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	case time.Time:
		return v.UTC().Format(isoFormat), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.UTC().Format(isoFormat), nil
	case map[string]any:
		return canonicalizeMap(v, seen)
	case []any:
		return canonicalizeSlice(v, seen)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		if err = enter(rv, seen); err != nil {
			return
		}
		defer leave(rv, seen)
		return canonicalize(rv.Elem().Interface(), seen)

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key type %s", ErrCanonicalize, rv.Type().Key())
		}
		plain := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			plain[iter.Key().String()] = iter.Value().Interface()
		}
		if err = enter(rv, seen); err != nil {
			return
		}
		defer leave(rv, seen)
		return canonicalizeMap(plain, seen)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if err = enter(rv, seen); err != nil {
				return
			}
			defer leave(rv, seen)
		}
		plain := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			plain[i] = rv.Index(i).Interface()
		}
		return canonicalizeSlice(plain, seen)

	case reflect.Struct:
		plain, structErr := structToMap(rv)
		if structErr != nil {
			return nil, structErr
		}
		return canonicalizeMap(plain, seen)

	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrCanonicalize, value)
	}
}

func canonicalizeMap(m map[string]any, seen map[uintptr]struct{}) (out map[string]any, err error) {
	rv := reflect.ValueOf(m)
	if err = enter(rv, seen); err != nil {
		return
	}
	defer leave(rv, seen)

	out = make(map[string]any, len(m))
	for key, value := range m {
		if _, volatile := volatileKeys[key]; volatile {
			continue
		}
		if key == "timestamp" && isDateValue(value) {
			continue
		}
		canonical, valueErr := canonicalize(value, seen)
		if valueErr != nil {
			return nil, valueErr
		}
		out[key] = canonical
	}
	return
}

func canonicalizeSlice(s []any, seen map[uintptr]struct{}) (out []any, err error) {
	out = make([]any, len(s))
	for i, value := range s {
		out[i], err = canonicalize(value, seen)
		if err != nil {
			return nil, err
		}
	}
	return
}

// Structs are flattened through their exported fields, honoring json tags
// the same way record snapshots are serialized to the document store.
func structToMap(rv reflect.Value) (out map[string]any, err error) {
	rt := rv.Type()
	out = make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, opts, _ := strings.Cut(tag, ",")
			if tagName == "-" && opts == "" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = rv.Field(i).Interface()
	}
	return
}

func isDateValue(value any) bool {
	switch v := value.(type) {
	case time.Time, *time.Time:
		return true
	case string:
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return true
		}
		if _, err := time.Parse(isoFormat, v); err == nil {
			return true
		}
	}
	return false
}

func enter(rv reflect.Value, seen map[uintptr]struct{}) error {
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if _, ok := seen[ptr]; ok {
			return fmt.Errorf("%w: circular reference", ErrCanonicalize)
		}
		seen[ptr] = struct{}{}
	}
	return nil
}

func leave(rv reflect.Value, seen map[uintptr]struct{}) {
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer:
		if !rv.IsNil() {
			delete(seen, rv.Pointer())
		}
	}
}

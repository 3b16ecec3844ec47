// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canonical

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Normalize converts value to the generic form the encoder works on:
// map[string]any, []any, string, bool, nil, int64, uint64, float64 and
// json.Number. Structs are converted through their json tags with the
// field rules of encoding/json. Types implementing json.Marshaler are
// encoded by their own method and decoded back. Go floats stay float64,
// so an integral weight keeps its float form.
func Normalize(value any) (any, error) {
	n := &normalizer{visiting: make(map[uintptr]struct{})}
	return n.normalize(reflect.ValueOf(value), 0)
}

var (
	marshalerType     = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	numberType        = reflect.TypeFor[json.Number]()
)

type normalizer struct {
	visiting map[uintptr]struct{}
}

func (n *normalizer) normalize(v reflect.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting exceeds %d levels", ErrUnsupportedValue, maxDepth)
	}
	if !v.IsValid() {
		return nil, nil
	}
	if v.Type() == numberType {
		return json.Number(v.String()), nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
	}
	if marshaler, ok := asMarshaler(v); ok {
		data, err := marshaler.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("canonical: %s.MarshalJSON: %w", v.Type(), err)
		}
		return decode(data)
	}
	if textMarshaler, ok := asTextMarshaler(v); ok {
		text, err := textMarshaler.MarshalText()
		if err != nil {
			return nil, fmt.Errorf("canonical: %s.MarshalText: %w", v.Type(), err)
		}
		return string(text), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32:
		return float32Value(float32(v.Float())), nil
	case reflect.Float64:
		return v.Float(), nil
	case reflect.Interface:
		return n.normalize(v.Elem(), depth+1)
	case reflect.Pointer:
		return n.within(v.Pointer(), func() (any, error) { return n.normalize(v.Elem(), depth+1) })
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		return n.within(v.Pointer(), func() (any, error) { return n.object(v, depth) })
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 && !implementsMarshaler(v.Type().Elem()) {
			return base64.StdEncoding.EncodeToString(v.Bytes()), nil
		}
		if v.Len() == 0 {
			return []any{}, nil
		}
		return n.within(v.Pointer(), func() (any, error) { return n.array(v, depth) })
	case reflect.Array:
		return n.array(v, depth)
	case reflect.Struct:
		return n.structure(v, depth)
	}
	return nil, fmt.Errorf("%w: type %s", ErrUnsupportedValue, v.Type())
}

// within guards a reference against cycles for the duration of fn.
func (n *normalizer) within(identity uintptr, fn func() (any, error)) (any, error) {
	if _, cyclic := n.visiting[identity]; cyclic {
		return nil, fmt.Errorf("%w: value contains a cycle", ErrUnsupportedValue)
	}
	n.visiting[identity] = struct{}{}
	defer delete(n.visiting, identity)
	return fn()
}

func (n *normalizer) object(v reflect.Value, depth int) (any, error) {
	object := make(map[string]any, v.Len())
	iterator := v.MapRange()
	for iterator.Next() {
		key, err := mapKey(iterator.Key())
		if err != nil {
			return nil, err
		}
		element, err := n.normalize(iterator.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		object[key] = element
	}
	return object, nil
}

func mapKey(key reflect.Value) (string, error) {
	if key.Kind() == reflect.String {
		return key.String(), nil
	}
	if textMarshaler, ok := key.Interface().(encoding.TextMarshaler); ok {
		text, err := textMarshaler.MarshalText()
		if err != nil {
			return "", fmt.Errorf("canonical: map key %s.MarshalText: %w", key.Type(), err)
		}
		return string(text), nil
	}
	switch key.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(key.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(key.Uint(), 10), nil
	}
	return "", fmt.Errorf("%w: map key type %s", ErrUnsupportedValue, key.Type())
}

func (n *normalizer) array(v reflect.Value, depth int) (any, error) {
	array := make([]any, v.Len())
	for i := range array {
		element, err := n.normalize(v.Index(i), depth+1)
		if err != nil {
			return nil, err
		}
		array[i] = element
	}
	return array, nil
}

func (n *normalizer) structure(v reflect.Value, depth int) (any, error) {
	object := make(map[string]any)
	for _, field := range fieldsOf(v.Type()) {
		fieldValue, ok := fieldByIndex(v, field.index)
		if !ok {
			continue
		}
		if field.omitEmpty && isEmpty(fieldValue) || field.omitZero && fieldValue.IsZero() {
			continue
		}
		element, err := n.normalize(fieldValue, depth+1)
		if err != nil {
			return nil, err
		}
		if field.quoted {
			element = quote(element)
		}
		object[field.name] = element
	}
	return object, nil
}

// fieldByIndex follows index, reporting false when it passes through a
// nil embedded pointer.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, position := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(position)
	}
	return v, true
}

// quote applies the ",string" tag option to scalar values.
func quote(value any) any {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return formatFloat(v)
	}
	return value
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

func implementsMarshaler(t reflect.Type) bool {
	return t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
}

func asMarshaler(v reflect.Value) (json.Marshaler, bool) {
	if v.Type().Implements(marshalerType) {
		marshaler, ok := v.Interface().(json.Marshaler)
		return marshaler, ok
	}
	if v.Kind() != reflect.Pointer && v.CanAddr() && reflect.PointerTo(v.Type()).Implements(marshalerType) {
		marshaler, ok := v.Addr().Interface().(json.Marshaler)
		return marshaler, ok
	}
	return nil, false
}

func asTextMarshaler(v reflect.Value) (encoding.TextMarshaler, bool) {
	if v.Type().Implements(textMarshalerType) {
		marshaler, ok := v.Interface().(encoding.TextMarshaler)
		return marshaler, ok
	}
	if v.Kind() != reflect.Pointer && v.CanAddr() && reflect.PointerTo(v.Type()).Implements(textMarshalerType) {
		marshaler, ok := v.Addr().Interface().(encoding.TextMarshaler)
		return marshaler, ok
	}
	return nil, false
}

type structField struct {
	name      string
	index     []int
	depth     int
	tagged    bool
	omitEmpty bool
	omitZero  bool
	quoted    bool
}

var fieldCache sync.Map // reflect.Type -> []structField

// fieldsOf lists the JSON fields of a struct type, resolving embedded
// structs the way encoding/json does: the shallowest field wins, and
// at equal depth a single tagged field wins over untagged ones.
func fieldsOf(t reflect.Type) []structField {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]structField)
	}
	var candidates []structField
	collectFields(t, nil, 0, map[reflect.Type]bool{}, &candidates)

	byName := make(map[string][]structField)
	var order []string
	for _, candidate := range candidates {
		if _, seen := byName[candidate.name]; !seen {
			order = append(order, candidate.name)
		}
		byName[candidate.name] = append(byName[candidate.name], candidate)
	}

	var fields []structField
	for _, name := range order {
		if field, ok := dominantField(byName[name]); ok {
			fields = append(fields, field)
		}
	}
	fieldCache.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, index []int, depth int, seen map[reflect.Type]bool, out *[]structField) {
	if seen[t] {
		return
	}
	seen[t] = true
	defer delete(seen, t)

	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, options, _ := strings.Cut(tag, ",")
		fieldIndex := append(slices.Clone(index), i)

		if field.Anonymous && name == "" {
			embedded := field.Type
			if embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				collectFields(embedded, fieldIndex, depth+1, seen, out)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}

		entry := structField{name: name, index: fieldIndex, depth: depth, tagged: name != ""}
		if entry.name == "" {
			entry.name = field.Name
		}
		for option := range strings.SplitSeq(options, ",") {
			switch option {
			case "omitempty":
				entry.omitEmpty = true
			case "omitzero":
				entry.omitZero = true
			case "string":
				entry.quoted = true
			}
		}
		*out = append(*out, entry)
	}
}

func dominantField(candidates []structField) (structField, bool) {
	shallowest := candidates[0].depth
	for _, candidate := range candidates[1:] {
		shallowest = min(shallowest, candidate.depth)
	}
	var atDepth []structField
	for _, candidate := range candidates {
		if candidate.depth == shallowest {
			atDepth = append(atDepth, candidate)
		}
	}
	if len(atDepth) == 1 {
		return atDepth[0], true
	}
	var tagged []structField
	for _, candidate := range atDepth {
		if candidate.tagged {
			tagged = append(tagged, candidate)
		}
	}
	if len(tagged) == 1 {
		return tagged[0], true
	}
	return structField{}, false
}

// Package table is the paginated, exportable list view shared by every
// entity page. A Table is built per request from the full filtered dataset,
// its column and action configuration, and a State carried in the query
// string, then turned into a View for the templates.
package table

import (
	"fmt"
)

// Record is one row. RecordID must be stable and unique within a dataset.
type Record interface {
	RecordID() string
	Field(key string) any
}

// Map adapts a plain map to Record. The identifier is read from "id".
type Map map[string]any

// RecordID implements Record.
func (m Map) RecordID() string {
	id, ok := m["id"]
	if !ok || id == nil {
		return ""
	}
	return fmt.Sprint(id)
}

// Field implements Record.
func (m Map) Field(key string) any { return m[key] }

// Records converts a typed slice into records.
func Records[T Record](items []T) []Record {
	out := make([]Record, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// Value is either a literal or a value computed from the row it is rendered
// for.
type Value[T any] struct {
	literal  T
	computed func(Record) T
}

// Literal wraps a constant.
func Literal[T any](v T) Value[T] {
	return Value[T]{literal: v}
}

// Computed wraps a per-row function.
func Computed[T any](fn func(Record) T) Value[T] {
	return Value[T]{computed: fn}
}

// IsComputed reports whether the value depends on the row.
func (v Value[T]) IsComputed() bool { return v.computed != nil }

// Resolve returns the value for rec.
func (v Value[T]) Resolve(rec Record) T {
	if v.computed != nil {
		return v.computed(rec)
	}
	return v.literal
}

package graph

import (
	"encoding/json"
	"sort"
)

// Update is a partial state produced by a node: field name to new value.
// Each value is merged through the field's reducer.
type Update map[string]any

// State is an immutable snapshot of a run's fields. Merges produce new
// snapshots; a State handed to a node never changes underneath it. Values of
// reference types (slices, maps, pointers) are shared between snapshots and
// must be treated as read-only.
type State struct {
	values map[string]any
}

// Get returns the value of field and whether it exists.
func (state State) Get(field string) (any, bool) {
	value, exists := state.values[field]
	return value, exists
}

// Values returns a copy of all fields.
func (state State) Values() map[string]any {
	values := make(map[string]any, len(state.values))
	for name, value := range state.values {
		values[name] = value
	}
	return values
}

// Len returns the number of fields.
func (state State) Len() int {
	return len(state.values)
}

// Fields returns the field names in lexical order.
func (state State) Fields() []string {
	names := make([]string, 0, len(state.values))
	for name := range state.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of state where the fields in overlay replace the
// current values, bypassing reducers. Fan-out invocations see the run state
// through such an overlay.
func (state State) With(overlay Update) State {
	if len(overlay) == 0 {
		return state
	}
	values := state.Values()
	for name, value := range overlay {
		values[name] = value
	}
	return State{values: values}
}

// MarshalJSON encodes the fields as a JSON object.
func (state State) MarshalJSON() ([]byte, error) {
	if state.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(state.values)
}

// Value returns field as T, or the zero T when the field is absent or holds
// another type.
func Value[T any](state State, field string) T {
	value, _ := Lookup[T](state, field)
	return value
}

// Lookup returns field as T and whether it was present with that type.
func Lookup[T any](state State, field string) (T, bool) {
	raw, exists := state.values[field]
	if !exists {
		var zero T
		return zero, false
	}
	value, ok := raw.(T)
	return value, ok
}

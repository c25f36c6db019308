package graph

import (
	"fmt"
	"reflect"
	"sort"
)

// ReducerPolicy names how a field combines its current value with an update.
type ReducerPolicy string

const (
	// PolicyReplace keeps the newest value (last writer wins).
	PolicyReplace ReducerPolicy = "replace"

	// PolicyAppend concatenates the update onto the current sequence.
	PolicyAppend ReducerPolicy = "append"

	// PolicyCustom applies a caller-supplied reducer.
	PolicyCustom ReducerPolicy = "custom"
)

// FieldSpec declares the type, reducer and default of one state field.
// Build one with Replace, Append or Custom.
type FieldSpec struct {
	fieldType    reflect.Type
	policy       ReducerPolicy
	reduce       func(current, update any) any
	defaultValue any
	hasDefault   bool
	required     bool
	optionErrors []string
}

// FieldOption configures a FieldSpec.
type FieldOption func(*FieldSpec)

// WithDefault sets the value a field takes when the initial values omit it.
// Without it, the field defaults to its type's zero value.
func WithDefault(value any) FieldOption {
	return func(spec *FieldSpec) {
		spec.defaultValue = value
		spec.hasDefault = true
	}
}

// Required removes the default: the field must be present in the initial
// values passed to NewState.
func Required() FieldOption {
	return func(spec *FieldSpec) {
		spec.required = true
	}
}

// Replace declares a last-writer-wins field of type T.
func Replace[T any](opts ...FieldOption) FieldSpec {
	return newFieldSpec(typeOf[T](), PolicyReplace, func(_, update any) any {
		return update
	}, opts)
}

// Append declares an ordered sequence field of type []E. Updates must be []E
// and are concatenated onto the current value. The result is always a fresh
// slice, so values already observed by nodes are never modified.
func Append[E any](opts ...FieldOption) FieldSpec {
	return newFieldSpec(typeOf[[]E](), PolicyAppend, func(current, update any) any {
		currentSlice, _ := current.([]E)
		updateSlice, _ := update.([]E)
		merged := make([]E, 0, len(currentSlice)+len(updateSlice))
		merged = append(merged, currentSlice...)
		return append(merged, updateSlice...)
	}, opts)
}

// Custom declares a field of type T merged with reduce. The reducer must be
// total and must not modify its arguments.
func Custom[T any](reduce func(current, update T) T, opts ...FieldOption) FieldSpec {
	return newFieldSpec(typeOf[T](), PolicyCustom, func(current, update any) any {
		return reduce(as[T](current), as[T](update))
	}, opts)
}

// Type returns the declared Go type of the field.
func (spec FieldSpec) Type() reflect.Type {
	return spec.fieldType
}

// Policy returns the reducer policy of the field.
func (spec FieldSpec) Policy() ReducerPolicy {
	return spec.policy
}

func newFieldSpec(fieldType reflect.Type, policy ReducerPolicy, reduce func(current, update any) any, opts []FieldOption) FieldSpec {
	spec := FieldSpec{fieldType: fieldType, policy: policy, reduce: reduce}
	for _, opt := range opts {
		opt(&spec)
	}
	if spec.hasDefault && spec.required {
		spec.optionErrors = append(spec.optionErrors, "required field cannot have a default")
	}
	return spec
}

// Fields maps field names to their declarations.
type Fields map[string]FieldSpec

// Schema is the reducer registry: the closed set of state fields with their
// types and merge policies. A Schema is safe for concurrent reads once it is
// no longer being declared into; Compile takes its own copy.
type Schema struct {
	fields map[string]FieldSpec
	order  []string
}

// NewSchema declares the given fields in name order.
func NewSchema(fields Fields) (*Schema, error) {
	schema := &Schema{fields: make(map[string]FieldSpec, len(fields))}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := schema.Declare(name, fields[name]); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

// MustSchema is like NewSchema but panics on an invalid declaration. It is
// meant for package-level schema variables.
func MustSchema(fields Fields) *Schema {
	schema, err := NewSchema(fields)
	if err != nil {
		panic(err)
	}
	return schema
}

// Declare adds a field. Empty or repeated names and inconsistent options are
// rejected with a SchemaError.
func (schema *Schema) Declare(name string, spec FieldSpec) error {
	if schema.fields == nil {
		schema.fields = make(map[string]FieldSpec)
	}
	if name == "" {
		return &SchemaError{Field: name, Reason: "field name is empty"}
	}
	if spec.fieldType == nil || spec.reduce == nil {
		return &SchemaError{Field: name, Reason: "field spec must be built with Replace, Append or Custom"}
	}
	if _, exists := schema.fields[name]; exists {
		return &SchemaError{Field: name, Reason: "field already declared"}
	}
	if len(spec.optionErrors) > 0 {
		return &SchemaError{Field: name, Reason: spec.optionErrors[0]}
	}
	if spec.hasDefault {
		normalized, err := normalizeValue(name, spec.fieldType, spec.defaultValue)
		if err != nil {
			return &SchemaError{Field: name, Reason: fmt.Sprintf("invalid default: %v", err)}
		}
		spec.defaultValue = normalized
	}

	schema.fields[name] = spec
	schema.order = append(schema.order, name)
	return nil
}

// Has reports whether name is a declared field.
func (schema *Schema) Has(name string) bool {
	_, exists := schema.fields[name]
	return exists
}

// Field returns the declaration of name.
func (schema *Schema) Field(name string) (FieldSpec, bool) {
	spec, exists := schema.fields[name]
	return spec, exists
}

// Fields returns the declared field names in declaration order.
func (schema *Schema) Fields() []string {
	names := make([]string, len(schema.order))
	copy(names, schema.order)
	return names
}

// NewState builds the initial State of a run. Omitted fields take their
// default; undeclared, missing required and ill-typed fields are a
// SchemaError.
func (schema *Schema) NewState(initial map[string]any) (State, error) {
	for name := range initial {
		if !schema.Has(name) {
			return State{}, &SchemaError{Field: name, Reason: "field is not declared"}
		}
	}

	values := make(map[string]any, len(schema.fields))
	for _, name := range schema.order {
		spec := schema.fields[name]
		value, provided := initial[name]
		switch {
		case provided:
			normalized, err := normalizeValue(name, spec.fieldType, value)
			if err != nil {
				return State{}, &SchemaError{Field: name, Reason: fmt.Sprintf("invalid initial value: %v", err)}
			}
			values[name] = normalized
		case spec.required:
			return State{}, &SchemaError{Field: name, Reason: "required field has no value"}
		case spec.hasDefault:
			values[name] = spec.defaultValue
		default:
			values[name] = zeroValue(spec.fieldType)
		}
	}
	return State{values: values}, nil
}

// Validate checks an update against the schema without applying it and
// returns the update with every value normalized to its declared type.
func (schema *Schema) Validate(update Update) (Update, error) {
	if len(update) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(update))
	for name := range update {
		names = append(names, name)
	}
	sort.Strings(names)

	normalized := make(Update, len(update))
	for _, name := range names {
		spec, exists := schema.fields[name]
		if !exists {
			return nil, &SchemaError{Field: name, Reason: "field is not declared"}
		}
		value, err := normalizeValue(name, spec.fieldType, update[name])
		if err != nil {
			return nil, err
		}
		normalized[name] = value
	}
	return normalized, nil
}

// Merge applies update to state through each field's reducer and returns the
// new State. The update is validated as a whole before anything is applied,
// so a failed merge leaves no trace. Fields absent from update keep their
// current value.
func (schema *Schema) Merge(state State, update Update) (State, error) {
	normalized, err := schema.Validate(update)
	if err != nil {
		return State{}, err
	}
	return schema.apply(state, normalized), nil
}

// apply merges an already validated update.
func (schema *Schema) apply(state State, update Update) State {
	if len(update) == 0 {
		return state
	}
	values := make(map[string]any, len(schema.fields))
	for name, value := range state.values {
		values[name] = value
	}
	for name, value := range update {
		spec := schema.fields[name]
		current, present := values[name]
		if !present {
			current = zeroValue(spec.fieldType)
		}
		values[name] = spec.reduce(current, value)
	}
	return State{values: values}
}

// clone returns an independent copy so later declarations do not leak into
// compiled graphs.
func (schema *Schema) clone() *Schema {
	copied := &Schema{
		fields: make(map[string]FieldSpec, len(schema.fields)),
		order:  make([]string, len(schema.order)),
	}
	for name, spec := range schema.fields {
		copied.fields[name] = spec
	}
	copy(copied.order, schema.order)
	return copied
}

// normalizeValue checks value against fieldType and converts assignable
// values to the declared type. Untyped nil is accepted for nilable kinds.
func normalizeValue(field string, fieldType reflect.Type, value any) (any, error) {
	if value == nil {
		if nilable(fieldType) {
			return zeroValue(fieldType), nil
		}
		return nil, &TypeMismatchError{Field: field, Expected: fieldType.String(), Actual: "nil"}
	}

	valueType := reflect.TypeOf(value)
	if !valueType.AssignableTo(fieldType) {
		return nil, &TypeMismatchError{Field: field, Expected: fieldType.String(), Actual: valueType.String()}
	}
	if fieldType.Kind() == reflect.Interface || valueType == fieldType {
		return value, nil
	}
	return reflect.ValueOf(value).Convert(fieldType).Interface(), nil
}

func nilable(fieldType reflect.Type) bool {
	switch fieldType.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

func zeroValue(fieldType reflect.Type) any {
	return reflect.Zero(fieldType).Interface()
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func as[T any](value any) T {
	typed, _ := value.(T)
	return typed
}

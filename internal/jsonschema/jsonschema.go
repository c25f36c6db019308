package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is the subset of JSON Schema understood by the model providers for
// tool parameters and structured output.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Defs                 map[string]*Schema `json:"$defs,omitempty"`
}

// String returns the schema as compact JSON.
func (schema *Schema) String() string {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return fmt.Sprintf("<invalid schema: %v>", err)
	}
	return string(encoded)
}

// For generates the schema of T.
func For[T any]() (*Schema, error) {
	return Generate(reflect.TypeFor[T]())
}

// Generate builds the schema of t from its json and jsonschema struct tags.
//
// Struct fields are required unless they are pointers or tagged omitempty;
// `jsonschema:"required"` forces them back. The jsonschema tag also accepts
// description=... and repeated enum=... entries:
//
//	type Route struct {
//	    Step string `json:"step" jsonschema:"description=Next step,enum=poem,enum=story,enum=joke"`
//	}
//
// Self-referencing structs are emitted once under $defs and referenced.
func Generate(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("jsonschema: nil type")
	}
	generator := &generator{
		inProgress: make(map[reflect.Type]bool),
		recursive:  make(map[reflect.Type]bool),
		defs:       make(map[string]*Schema),
	}
	schema, err := generator.generate(t)
	if err != nil {
		return nil, err
	}
	if len(generator.defs) > 0 {
		schema.Defs = generator.defs
	}
	return schema, nil
}

type generator struct {
	inProgress map[reflect.Type]bool
	recursive  map[reflect.Type]bool
	defs       map[string]*Schema
}

func (generator *generator) generate(t reflect.Type) (*Schema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Interface:
		return &Schema{}, nil
	case reflect.Slice, reflect.Array:
		items, err := generator.generate(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("jsonschema: map key type %s is not supported", t.Key())
		}
		values, err := generator.generate(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil
	case reflect.Struct:
		return generator.generateStruct(t)
	default:
		return nil, fmt.Errorf("jsonschema: kind %s is not supported", t.Kind())
	}
}

func (generator *generator) generateStruct(t reflect.Type) (*Schema, error) {
	if generator.inProgress[t] {
		generator.recursive[t] = true
		return &Schema{Ref: "#/$defs/" + defName(t)}, nil
	}
	generator.inProgress[t] = true
	defer delete(generator.inProgress, t)

	schema := &Schema{Type: "object", Properties: make(map[string]*Schema), AdditionalProperties: false}
	if err := generator.addFields(schema, t); err != nil {
		return nil, err
	}

	if generator.recursive[t] {
		generator.defs[defName(t)] = schema
		if len(generator.inProgress) > 1 {
			return &Schema{Ref: "#/$defs/" + defName(t)}, nil
		}
	}
	return schema, nil
}

func (generator *generator) addFields(schema *Schema, t reflect.Type) error {
	for index := 0; index < t.NumField(); index++ {
		field := t.Field(index)
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name, options, _ := strings.Cut(jsonTag, ",")

		if field.Anonymous && name == "" {
			embedded := field.Type
			for embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				if err := generator.addFields(schema, embedded); err != nil {
					return err
				}
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}

		fieldSchema, err := generator.generate(field.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		forced, err := applyTag(field, fieldSchema)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}

		schema.Properties[name] = fieldSchema
		omitEmpty := strings.Contains(options, "omitempty")
		if forced || (field.Type.Kind() != reflect.Pointer && !omitEmpty) {
			schema.Required = append(schema.Required, name)
		}
	}
	return nil
}

// applyTag reads the jsonschema tag into schema and reports whether the
// field is explicitly required.
func applyTag(field reflect.StructField, schema *Schema) (bool, error) {
	tag := field.Tag.Get("jsonschema")
	if tag == "" {
		return false, nil
	}

	required := false
	var lastKey string
	for _, segment := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(segment, "=")
		switch {
		case key == "required" && !hasValue:
			required = true
			lastKey = key
		case key == "description" && hasValue:
			schema.Description = value
			lastKey = key
		case key == "enum" && hasValue:
			enumValue, err := parseEnum(field.Type, value)
			if err != nil {
				return false, err
			}
			schema.Enum = append(schema.Enum, enumValue)
			lastKey = key
		case lastKey == "description":
			// Descriptions may contain commas.
			schema.Description += "," + segment
		default:
			return false, fmt.Errorf("unknown jsonschema tag entry %q", segment)
		}
	}
	return required, nil
}

func parseEnum(fieldType reflect.Type, value string) (any, error) {
	for fieldType.Kind() == reflect.Pointer {
		fieldType = fieldType.Elem()
	}
	switch fieldType.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not an integer: %w", value, err)
		}
		return parsed, nil
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a number: %w", value, err)
		}
		return parsed, nil
	case reflect.Bool:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a boolean: %w", value, err)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("enum is not supported for %s", fieldType)
	}
}

func defName(t reflect.Type) string {
	if t.Name() != "" {
		return strings.ToLower(t.Name())
	}
	return "anonymous"
}

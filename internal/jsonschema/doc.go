// Package jsonschema derives JSON Schema documents from Go types. The model
// client uses them to describe tool parameters and structured outputs.
package jsonschema

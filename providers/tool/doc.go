// Package tool defines typed tools a model can call. [NewTool] wraps a Go
// function with JSON Schemas derived from its input and output types, and
// [Catalog] keeps a concurrency-safe registry of tools the client dispatches
// tool calls against.
package tool

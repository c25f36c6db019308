// Package parse turns raw model output into Go values. Models wrap JSON in
// prose or code fences, emit almost-JSON and sometimes echo the schema shape
// instead of the data; [ParseStringAs] and [ParseInto] recover from all
// three before giving up with an error.
package parse

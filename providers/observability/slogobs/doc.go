// Package slogobs implements observability.Provider on log/slog. It is the
// default sink of the aiflow CLI: spans and metrics become debug/trace
// records, and logs render in compact, pretty or JSON format.
package slogobs

// Package utils holds the low-level helpers shared by the provider adapters:
// [PostJSON] for synchronous JSON round-trips with [StatusError] reporting,
// and [JSONToString] for logging and tool results.
package utils

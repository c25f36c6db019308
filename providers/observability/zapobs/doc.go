// Package zapobs adapts a go.uber.org/zap logger to observability.Provider.
//
// Spans are logged at debug level when they start and end. Counters keep a
// running total readable through CounterValue; counter, histogram and span
// event records go out at TraceLevel, below zap's debug level.
package zapobs

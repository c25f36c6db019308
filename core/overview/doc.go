// Package overview tracks the model traffic of a single execution. Put an
// [Overview] in the context before running a graph; every client call made
// by its nodes is recorded into it.
//
//	tracker := overview.New()
//	state, err := compiled.Invoke(tracker.ToContext(ctx), input)
//	fmt.Println(tracker.Summary(nil).Usage.TotalTokens)
package overview

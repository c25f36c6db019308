// Package workflows builds the classic LLM workflow patterns on the graph
// engine. Every constructor takes a [client.Model] and graph options and
// returns a compiled graph:
//
//   - [PromptChaining]: sequential calls with a programmatic gate.
//   - [Routing]: a structured classification picks a specialised writer.
//   - [Parallelization]: independent calls in one superstep, then a join.
//   - [OrchestratorWorker]: a planner fans out one worker per section.
//   - [Augmented]: structured output and a tool-calling loop.
//
// [Lookup] and [Names] expose them by name for the command line.
//
//	definition, _ := workflows.Lookup("parallel")
//	compiled, err := definition.Build(model, nil, graph.WithMaxConcurrency(3))
//	state, err := compiled.Invoke(ctx, map[string]any{definition.InputField: "cats"})
package workflows

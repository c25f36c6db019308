// Package graph implements a state graph engine for LLM workflows.
//
// A graph is a set of named nodes that read a shared, schema-typed [State]
// and return partial [Update] values. Every field of the state declares a
// reducer in the [Schema]: [Replace] keeps the last written value, [Append]
// accumulates sequences across parallel branches and [Custom] takes any
// total merge function.
//
// Nodes are connected by static edges, by conditional edges whose router
// picks one destination from a declared allow-list, and by dynamic fan-out
// edges whose router returns any number of [Send] values, each starting a
// parallel invocation with its own payload. [Builder.Compile] validates the
// structure and returns an immutable [Graph] that can be executed
// concurrently for independent inputs.
//
// Execution proceeds in supersteps: all pending invocations run
// concurrently against the same snapshot, their updates are merged one at a
// time, then routers decide the next frontier. A node reached from several
// branches of the same superstep runs once, after all of them merged.
//
// Example:
//
//	schema := graph.MustSchema(graph.Fields{
//	    "topic":    graph.Replace[string](graph.Required()),
//	    "titles":   graph.Replace[[]string](),
//	    "title":    graph.Replace[string](),
//	    "sections": graph.Append[string](),
//	})
//
//	compiled, err := graph.NewBuilder(schema, graph.WithMaxConcurrency(4)).
//	    AddNode("plan", plan).
//	    AddNode("write", write).
//	    AddNode("merge", merge).
//	    AddEdge(graph.Start, "plan").
//	    AddDynamicFanout("plan", func(state graph.State) []graph.Send {
//	        var sends []graph.Send
//	        for _, title := range graph.Value[[]string](state, "titles") {
//	            sends = append(sends, graph.Send{Payload: graph.Update{"title": title}})
//	        }
//	        return sends
//	    }, "write").
//	    AddEdge("write", "merge").
//	    AddEdge("merge", graph.End).
//	    Compile()
//
//	final, err := compiled.Invoke(ctx, map[string]any{"topic": "graphs"})
//
// Runs are observed through an observability.Provider given with
// [WithObserver] or found in the context, and can be recorded step by step
// with a [HistoryProvider].
package graph

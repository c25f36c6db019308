package graph

import (
	"fmt"
	"sort"
)

// Compile validates the declarations and returns an immutable Graph.
//
// Registration errors are reported first. The structural rules then run in
// this order and the first violation is returned as a GraphValidationError:
//
//  1. exactly one edge leaves Start, and it leads to a node
//  2. every node named by an edge is registered
//  3. every router destination is a registered node or End
//  4. every registered node is reachable from Start
//  5. End is reachable from Start and from every node
//
// Write sets declared with WithWrites are checked against the schema after
// rule 3. Cycles are allowed; runs are bounded by the recursion limit.
// Compile never modifies the builder and returns either a complete graph or
// an error.
func (builder *Builder) Compile() (*Graph, error) {
	if err := builder.Err(); err != nil {
		return nil, err
	}

	compiled := builder.snapshot()
	if err := compiled.validateEntry(builder.edges[Start]); err != nil {
		return nil, err
	}
	if err := compiled.validateRegistered(); err != nil {
		return nil, err
	}
	if err := compiled.validateRouters(); err != nil {
		return nil, err
	}
	if err := compiled.validateWrites(); err != nil {
		return nil, err
	}
	if err := compiled.validateReachability(); err != nil {
		return nil, err
	}
	if err := compiled.validateTermination(); err != nil {
		return nil, err
	}
	return compiled, nil
}

// MustCompile is like Compile but panics on error.
func (builder *Builder) MustCompile() *Graph {
	compiled, err := builder.Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}

// snapshot deep-copies the declarations into a Graph.
func (builder *Builder) snapshot() *Graph {
	config := defaultConfig()
	for _, opt := range builder.opts {
		opt(&config)
	}

	compiled := &Graph{
		schema:  builder.schema.clone(),
		nodes:   make(map[string]*node, len(builder.nodes)),
		order:   make([]string, len(builder.nodeOrder)),
		edges:   make(map[string][]string, len(builder.edges)),
		routers: make(map[string]*router, len(builder.routers)),
		config:  config,
	}
	copy(compiled.order, builder.nodeOrder)

	for name, original := range builder.nodes {
		copied := *original
		if original.writes != nil {
			copied.writes = make(map[string]struct{}, len(original.writes))
			for field := range original.writes {
				copied.writes[field] = struct{}{}
			}
		}
		compiled.nodes[name] = &copied
	}
	for from, targets := range builder.edges {
		if from == Start {
			continue
		}
		compiled.edges[from] = append([]string(nil), targets...)
	}
	for from, original := range builder.routers {
		copied := *original
		copied.destinations = append([]string(nil), original.destinations...)
		if original.labels != nil {
			copied.labels = make(map[string]string, len(original.labels))
			for label, destination := range original.labels {
				copied.labels[label] = destination
			}
		}
		compiled.routers[from] = &copied
	}
	for _, original := range builder.joins {
		compiled.joins = append(compiled.joins, join{
			sources: append([]string(nil), original.sources...),
			target:  original.target,
		})
	}
	return compiled
}

func (graph *Graph) validateEntry(entries []string) error {
	if _, routed := graph.routers[Start]; routed {
		return &GraphValidationError{Rule: RuleSingleEntry, Node: Start, Detail: "START cannot carry a conditional or fan-out edge"}
	}
	for _, nodeJoin := range graph.joins {
		for _, source := range nodeJoin.sources {
			if source == Start {
				return &GraphValidationError{Rule: RuleSingleEntry, Node: Start, Detail: "START cannot be a join source"}
			}
		}
	}
	if len(entries) != 1 {
		return &GraphValidationError{
			Rule:   RuleSingleEntry,
			Node:   Start,
			Detail: fmt.Sprintf("START must have exactly one outgoing edge, found %d", len(entries)),
		}
	}
	if entries[0] == End {
		return &GraphValidationError{Rule: RuleSingleEntry, Node: Start, Detail: "START must lead to a node, not END"}
	}
	graph.entry = entries[0]
	return nil
}

func (graph *Graph) validateRegistered() error {
	if !graph.registered(graph.entry) {
		return graph.unregistered(Start, graph.entry)
	}
	for _, from := range sortedKeys(graph.edges) {
		if !graph.registered(from) {
			return graph.unregistered(from, from)
		}
		for _, to := range graph.edges[from] {
			if to != End && !graph.registered(to) {
				return graph.unregistered(from, to)
			}
		}
	}
	for _, from := range sortedKeys(graph.routers) {
		if !graph.registered(from) {
			return graph.unregistered(from, from)
		}
	}
	for _, nodeJoin := range graph.joins {
		if !graph.registered(nodeJoin.target) {
			return graph.unregistered(nodeJoin.sources[0], nodeJoin.target)
		}
		for _, source := range nodeJoin.sources {
			if !graph.registered(source) {
				return graph.unregistered(source, source)
			}
		}
	}
	return nil
}

func (graph *Graph) validateRouters() error {
	for _, from := range sortedKeys(graph.routers) {
		nodeRouter := graph.routers[from]
		for _, destination := range nodeRouter.destinations {
			if destination == End && nodeRouter.kind == EdgeConditional {
				continue
			}
			if !graph.registered(destination) {
				return &GraphValidationError{
					Rule:   RuleRouterDestinations,
					Node:   from,
					Detail: fmt.Sprintf("%s edge from %q declares unknown destination %q", nodeRouter.kind, from, destination),
				}
			}
		}
	}
	return nil
}

func (graph *Graph) validateWrites() error {
	for _, name := range graph.order {
		fields := sortedKeys(graph.nodes[name].writes)
		for _, field := range fields {
			if !graph.schema.Has(field) {
				return &SchemaError{Node: name, Field: field, Reason: "write set references an undeclared field"}
			}
		}
	}
	return nil
}

func (graph *Graph) validateReachability() error {
	reachable := graph.reachableFrom(graph.entry)
	for _, name := range graph.order {
		if !reachable[name] {
			return &GraphValidationError{
				Rule:   RuleReachability,
				Node:   name,
				Detail: fmt.Sprintf("node %q is not reachable from START", name),
			}
		}
	}
	return nil
}

func (graph *Graph) validateTermination() error {
	if !graph.reachableFrom(graph.entry)[End] {
		return &GraphValidationError{Rule: RuleReachesEnd, Detail: "no path from START reaches END"}
	}

	// Walk backwards from End to find every node with a path to it.
	predecessors := make(map[string][]string)
	for _, name := range graph.order {
		for _, next := range graph.successors(name) {
			predecessors[next] = append(predecessors[next], name)
		}
	}
	reachesEnd := map[string]bool{End: true}
	queue := []string{End}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, previous := range predecessors[current] {
			if !reachesEnd[previous] {
				reachesEnd[previous] = true
				queue = append(queue, previous)
			}
		}
	}

	for _, name := range graph.order {
		if len(graph.successors(name)) == 0 {
			return &GraphValidationError{
				Rule:   RuleReachesEnd,
				Node:   name,
				Detail: fmt.Sprintf("node %q has no outgoing edge", name),
			}
		}
		if !reachesEnd[name] {
			return &GraphValidationError{
				Rule:   RuleReachesEnd,
				Node:   name,
				Detail: fmt.Sprintf("node %q has no path to END", name),
			}
		}
	}
	return nil
}

// reachableFrom returns every node (and End) reachable from start.
func (graph *Graph) reachableFrom(start string) map[string]bool {
	reachable := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range graph.successors(current) {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
	return reachable
}

func (graph *Graph) registered(name string) bool {
	_, exists := graph.nodes[name]
	return exists
}

func (graph *Graph) unregistered(from, name string) error {
	return &GraphValidationError{
		Rule:   RuleRegisteredNodes,
		Node:   name,
		Detail: fmt.Sprintf("edge from %q references unregistered node %q", from, name),
	}
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

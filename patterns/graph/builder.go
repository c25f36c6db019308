package graph

import (
	"errors"
	"fmt"
	"sort"
)

// Builder accumulates nodes and edges and compiles them into a Graph.
//
// Registration methods never fail on their own: problems such as duplicate
// node names or a second router on the same node are recorded and reported
// together by Compile. Compile does not modify the builder, so the same
// declarations can be compiled any number of times.
//
// Example:
//
//	compiled, err := graph.NewBuilder(schema).
//	    AddNode("generate", generate).
//	    AddNode("review", review).
//	    AddEdge(graph.Start, "generate").
//	    AddEdge("generate", "review").
//	    AddEdge("review", graph.End).
//	    Compile()
type Builder struct {
	schema *Schema
	opts   []Option

	nodes     map[string]*node
	nodeOrder []string

	// edges holds static successors per source, in declaration order.
	edges   map[string][]string
	routers map[string]*router
	joins   []join

	// buildErrors is reported by Compile before any structural rule runs.
	buildErrors []error
}

// NewBuilder starts a graph over schema. Graph options apply to every run of
// the compiled graph.
func NewBuilder(schema *Schema, opts ...Option) *Builder {
	builder := &Builder{
		schema:  schema,
		opts:    opts,
		nodes:   make(map[string]*node),
		edges:   make(map[string][]string),
		routers: make(map[string]*router),
	}
	if schema == nil {
		builder.fail(&SchemaError{Reason: "graph requires a schema"})
	}
	return builder
}

// AddNode registers fn under name. A name registered twice is reported by
// Compile as a DuplicateNodeError.
func (builder *Builder) AddNode(name string, fn NodeFunc, opts ...NodeOption) *Builder {
	switch {
	case name == "":
		builder.fail(&GraphValidationError{Rule: RuleNodeDefinition, Detail: "node name must not be empty"})
		return builder
	case name == Start || name == End:
		builder.fail(&GraphValidationError{Rule: RuleNodeDefinition, Node: name, Detail: fmt.Sprintf("node name %q is reserved", name)})
		return builder
	case fn == nil:
		builder.fail(&GraphValidationError{Rule: RuleNodeDefinition, Node: name, Detail: fmt.Sprintf("node %q has no function", name)})
		return builder
	}
	if _, exists := builder.nodes[name]; exists {
		builder.fail(&DuplicateNodeError{Node: name})
		return builder
	}

	graphNode := &node{name: name, fn: fn}
	for _, opt := range opts {
		opt(graphNode)
	}
	builder.nodes[name] = graphNode
	builder.nodeOrder = append(builder.nodeOrder, name)
	return builder
}

// AddEdge adds a static edge. from may be Start and to may be End. A node
// with several static edges starts all of its successors in parallel.
func (builder *Builder) AddEdge(from, to string) *Builder {
	if !builder.checkEndpoints(from, to) {
		return builder
	}
	for _, existing := range builder.edges[from] {
		if existing == to {
			return builder
		}
	}
	builder.edges[from] = append(builder.edges[from], to)
	return builder
}

// AddConditionalEdges routes from to exactly one of destinations, chosen by
// route after from's update has been merged. A decision outside
// destinations fails the run with a RoutingError.
func (builder *Builder) AddConditionalEdges(from string, route RouteFunc, destinations ...string) *Builder {
	if route == nil {
		builder.fail(&GraphValidationError{Rule: RuleRouterDestinations, Node: from, Detail: fmt.Sprintf("conditional edge from %q has no router", from)})
		return builder
	}
	return builder.addRouter(from, &router{kind: EdgeConditional, route: route, destinations: unique(destinations)})
}

// AddConditionalEdgesMap is like AddConditionalEdges but route returns a
// label that is looked up in destinations (label to node name).
func (builder *Builder) AddConditionalEdgesMap(from string, route RouteFunc, destinations map[string]string) *Builder {
	if route == nil {
		builder.fail(&GraphValidationError{Rule: RuleRouterDestinations, Node: from, Detail: fmt.Sprintf("conditional edge from %q has no router", from)})
		return builder
	}
	labels := make(map[string]string, len(destinations))
	labelNames := make([]string, 0, len(destinations))
	for label, destination := range destinations {
		labels[label] = destination
		labelNames = append(labelNames, label)
	}
	sort.Strings(labelNames)
	targets := make([]string, 0, len(labelNames))
	for _, label := range labelNames {
		targets = append(targets, labels[label])
	}
	return builder.addRouter(from, &router{kind: EdgeConditional, route: route, labels: labels, destinations: unique(targets)})
}

// AddDynamicFanout lets fanout start any number of parallel invocations of
// targets after from completes. Each Send runs its node once with the
// payload overlaid on the state; every invocation's update is merged
// independently.
func (builder *Builder) AddDynamicFanout(from string, fanout FanOutFunc, targets ...string) *Builder {
	if fanout == nil {
		builder.fail(&GraphValidationError{Rule: RuleRouterDestinations, Node: from, Detail: fmt.Sprintf("fan-out from %q has no router", from)})
		return builder
	}
	return builder.addRouter(from, &router{kind: EdgeFanout, fanout: fanout, destinations: unique(targets)})
}

// AddJoin makes target run once after every node in sources has completed.
// Sources may finish in different supersteps; target waits for the last of
// them. Use it when parallel branches have different lengths.
func (builder *Builder) AddJoin(target string, sources ...string) *Builder {
	if len(sources) == 0 {
		builder.fail(&GraphValidationError{Rule: RuleRegisteredNodes, Node: target, Detail: fmt.Sprintf("join into %q has no sources", target)})
		return builder
	}
	for _, source := range sources {
		if !builder.checkEndpoints(source, target) {
			return builder
		}
	}
	builder.joins = append(builder.joins, join{sources: unique(sources), target: target})
	return builder
}

// Err returns the registration problems recorded so far, or nil.
func (builder *Builder) Err() error {
	if len(builder.buildErrors) == 0 {
		return nil
	}
	return fmt.Errorf("graph build errors: %w", errors.Join(builder.buildErrors...))
}

func (builder *Builder) addRouter(from string, nodeRouter *router) *Builder {
	if from == End {
		builder.fail(&GraphValidationError{Rule: RuleRegisteredNodes, Node: from, Detail: "END cannot have outgoing edges"})
		return builder
	}
	if len(nodeRouter.destinations) == 0 {
		builder.fail(&GraphValidationError{Rule: RuleRouterDestinations, Node: from, Detail: fmt.Sprintf("router on %q declares no destinations", from)})
		return builder
	}
	if _, exists := builder.routers[from]; exists {
		builder.fail(&GraphValidationError{Rule: RuleSingleRouter, Node: from, Detail: fmt.Sprintf("node %q already has a router", from)})
		return builder
	}
	builder.routers[from] = nodeRouter
	return builder
}

func (builder *Builder) checkEndpoints(from, to string) bool {
	if from == End {
		builder.fail(&GraphValidationError{Rule: RuleRegisteredNodes, Node: from, Detail: "END cannot have outgoing edges"})
		return false
	}
	if to == Start {
		builder.fail(&GraphValidationError{Rule: RuleRegisteredNodes, Node: from, Detail: fmt.Sprintf("edge from %q points to START", from)})
		return false
	}
	if from == "" || to == "" {
		builder.fail(&GraphValidationError{Rule: RuleRegisteredNodes, Node: from, Detail: fmt.Sprintf("edge %q -> %q has an empty endpoint", from, to)})
		return false
	}
	return true
}

func (builder *Builder) fail(err error) {
	builder.buildErrors = append(builder.buildErrors, err)
}

// unique drops repeated names, keeping the first occurrence.
func unique(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}

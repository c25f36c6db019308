package graph

import (
	"context"
	"sort"
	"time"
)

// Pseudo-node names. Start is the single entry point of every graph and End
// is the terminal; neither can be registered as a node.
const (
	Start = "__start__"
	End   = "__end__"
)

// NodeFunc is the unit of work of a graph. It receives a read-only view of
// the run state and returns the partial update to merge. A nil or empty
// update is valid and leaves the state unchanged.
type NodeFunc func(ctx context.Context, state State) (Update, error)

// RouteFunc picks the successor of a node from the state after the node's
// update has been merged. The result must be one of the destinations
// declared with AddConditionalEdges (or a label of AddConditionalEdgesMap).
type RouteFunc func(state State) string

// FanOutFunc returns one Send per parallel invocation to start. An empty
// result starts nothing and ends the branch.
type FanOutFunc func(state State) []Send

// Send requests one invocation of Node with Payload overlaid on the run
// state. Node may be left empty when the fan-out declares a single target.
type Send struct {
	Node    string
	Payload Update
}

// EdgeKind classifies edges in a Topology.
type EdgeKind string

const (
	EdgeStatic      EdgeKind = "static"
	EdgeConditional EdgeKind = "conditional"
	EdgeFanout      EdgeKind = "fanout"
	EdgeJoin        EdgeKind = "join"
)

// node is a registered unit of work.
type node struct {
	name    string
	fn      NodeFunc
	writes  map[string]struct{} // nil means any declared field
	timeout time.Duration
}

// router is the single conditional or fan-out edge a node may carry.
type router struct {
	kind         EdgeKind
	route        RouteFunc
	fanout       FanOutFunc
	labels       map[string]string // label -> destination, nil when routing by name
	destinations []string          // declaration order, unique
}

// join triggers target once every source completed since it last fired.
type join struct {
	sources []string
	target  string
}

// Graph is a compiled, immutable workflow. It is safe to run concurrently
// from any number of goroutines; each run owns its own state.
type Graph struct {
	schema  *Schema
	nodes   map[string]*node
	order   []string
	edges   map[string][]string
	routers map[string]*router
	joins   []join
	entry   string
	config  graphConfig
}

// Schema returns a copy of the reducer registry of the graph. Declaring
// fields on the copy does not affect the graph.
func (graph *Graph) Schema() *Schema {
	return graph.schema.clone()
}

// Nodes returns the registered node names in registration order.
func (graph *Graph) Nodes() []string {
	names := make([]string, len(graph.order))
	copy(names, graph.order)
	return names
}

// EdgeInfo describes one edge of a compiled graph.
type EdgeInfo struct {
	From  string
	To    string
	Kind  EdgeKind
	Label string
}

// Topology is a canonical, comparable description of a compiled graph. Two
// compilations of the same declarations produce equal topologies.
type Topology struct {
	Entry  string
	Nodes  []string
	Fields map[string]ReducerPolicy
	Edges  []EdgeInfo
}

// Topology returns the canonical structure of the graph.
func (graph *Graph) Topology() Topology {
	topology := Topology{
		Entry:  graph.entry,
		Nodes:  graph.Nodes(),
		Fields: make(map[string]ReducerPolicy, len(graph.schema.fields)),
	}
	sort.Strings(topology.Nodes)
	for name, spec := range graph.schema.fields {
		topology.Fields[name] = spec.policy
	}

	topology.Edges = append(topology.Edges, EdgeInfo{From: Start, To: graph.entry, Kind: EdgeStatic})
	for from, targets := range graph.edges {
		for _, to := range targets {
			topology.Edges = append(topology.Edges, EdgeInfo{From: from, To: to, Kind: EdgeStatic})
		}
	}
	for from, nodeRouter := range graph.routers {
		if nodeRouter.labels != nil {
			for label, to := range nodeRouter.labels {
				topology.Edges = append(topology.Edges, EdgeInfo{From: from, To: to, Kind: nodeRouter.kind, Label: label})
			}
			continue
		}
		for _, to := range nodeRouter.destinations {
			topology.Edges = append(topology.Edges, EdgeInfo{From: from, To: to, Kind: nodeRouter.kind})
		}
	}
	for _, nodeJoin := range graph.joins {
		for _, from := range nodeJoin.sources {
			topology.Edges = append(topology.Edges, EdgeInfo{From: from, To: nodeJoin.target, Kind: EdgeJoin})
		}
	}

	sort.Slice(topology.Edges, func(i, j int) bool {
		left, right := topology.Edges[i], topology.Edges[j]
		if left.From != right.From {
			return left.From < right.From
		}
		if left.Kind != right.Kind {
			return left.Kind < right.Kind
		}
		if left.To != right.To {
			return left.To < right.To
		}
		return left.Label < right.Label
	})
	return topology
}

// successors lists every node a node can hand control to, in a stable order.
func (graph *Graph) successors(name string) []string {
	var next []string
	next = append(next, graph.edges[name]...)
	if nodeRouter, exists := graph.routers[name]; exists {
		next = append(next, nodeRouter.destinations...)
	}
	for _, nodeJoin := range graph.joins {
		for _, source := range nodeJoin.sources {
			if source == name {
				next = append(next, nodeJoin.target)
				break
			}
		}
	}
	return next
}

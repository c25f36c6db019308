package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every typed error below matches its sentinel through
// errors.Is, so callers can branch on the category without type assertions.
var (
	ErrSchema          = errors.New("graph: schema error")
	ErrDuplicateNode   = errors.New("graph: duplicate node")
	ErrGraphValidation = errors.New("graph: validation failed")
	ErrRouting         = errors.New("graph: routing error")
	ErrTypeMismatch    = errors.New("graph: type mismatch")
	ErrNodeExecution   = errors.New("graph: node execution failed")

	// ErrCancelled is returned when a run is aborted by its context, either
	// explicitly or through the run timeout. The context error is wrapped too.
	ErrCancelled = errors.New("graph: run cancelled")

	// ErrRecursionLimit is returned when a run exceeds the configured number
	// of supersteps.
	ErrRecursionLimit = errors.New("graph: recursion limit reached")

	ErrRunStarted = errors.New("graph: run already started")
)

// SchemaError reports a field that is undeclared, declared twice, missing
// from the initial values, or written by a node that did not declare it.
type SchemaError struct {
	Field  string
	Node   string
	Reason string
}

func (schemaError *SchemaError) Error() string {
	if schemaError.Node != "" {
		return fmt.Sprintf("graph: schema: node %q field %q: %s", schemaError.Node, schemaError.Field, schemaError.Reason)
	}
	return fmt.Sprintf("graph: schema: field %q: %s", schemaError.Field, schemaError.Reason)
}

func (schemaError *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// DuplicateNodeError reports a node name registered more than once.
type DuplicateNodeError struct {
	Node string
}

func (duplicateError *DuplicateNodeError) Error() string {
	return fmt.Sprintf("graph: node %q already registered", duplicateError.Node)
}

func (duplicateError *DuplicateNodeError) Is(target error) bool {
	return target == ErrDuplicateNode
}

// ValidationRule names the structural check a compiled graph failed.
type ValidationRule string

const (
	RuleSingleEntry        ValidationRule = "single_entry"
	RuleRegisteredNodes    ValidationRule = "registered_nodes"
	RuleRouterDestinations ValidationRule = "router_destinations"
	RuleReachability       ValidationRule = "reachability"
	RuleReachesEnd         ValidationRule = "reaches_end"
	RuleSingleRouter       ValidationRule = "single_router"
	RuleNodeDefinition     ValidationRule = "node_definition"
)

// GraphValidationError reports a structural defect found by Compile.
type GraphValidationError struct {
	Rule   ValidationRule
	Node   string
	Detail string
}

func (validationError *GraphValidationError) Error() string {
	return fmt.Sprintf("graph: validation failed (%s): %s", validationError.Rule, validationError.Detail)
}

func (validationError *GraphValidationError) Is(target error) bool {
	return target == ErrGraphValidation
}

// RoutingError reports a router decision outside the declared destinations.
type RoutingError struct {
	Node    string
	Value   string
	Allowed []string
	Reason  string
}

func (routingError *RoutingError) Error() string {
	reason := routingError.Reason
	if reason == "" {
		reason = "destination not allowed"
	}
	return fmt.Sprintf("graph: routing from %q returned %q: %s (allowed: %s)",
		routingError.Node, routingError.Value, reason, strings.Join(routingError.Allowed, ", "))
}

func (routingError *RoutingError) Is(target error) bool {
	return target == ErrRouting
}

// TypeMismatchError reports a value whose dynamic type does not fit the
// declared field type. Node is empty for initial values.
type TypeMismatchError struct {
	Node     string
	Field    string
	Expected string
	Actual   string
}

func (mismatchError *TypeMismatchError) Error() string {
	if mismatchError.Node != "" {
		return fmt.Sprintf("graph: node %q wrote field %q as %s, expected %s",
			mismatchError.Node, mismatchError.Field, mismatchError.Actual, mismatchError.Expected)
	}
	return fmt.Sprintf("graph: field %q has type %s, expected %s",
		mismatchError.Field, mismatchError.Actual, mismatchError.Expected)
}

func (mismatchError *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// NodeExecutionError wraps a failure raised by a node function, including
// recovered panics and failures of the collaborators it called.
type NodeExecutionError struct {
	Node  string
	Step  int
	Index int // position of the invocation within its superstep
	Err   error
}

func (executionError *NodeExecutionError) Error() string {
	return fmt.Sprintf("graph: node %q failed at step %d: %v", executionError.Node, executionError.Step, executionError.Err)
}

func (executionError *NodeExecutionError) Unwrap() error {
	return executionError.Err
}

func (executionError *NodeExecutionError) Is(target error) bool {
	return target == ErrNodeExecution
}

// withNode stamps the failing node onto schema and type errors raised while
// validating a node's update.
func withNode(err error, node string) error {
	var schemaError *SchemaError
	if errors.As(err, &schemaError) && schemaError.Node == "" {
		stamped := *schemaError
		stamped.Node = node
		return &stamped
	}
	var mismatchError *TypeMismatchError
	if errors.As(err, &mismatchError) && mismatchError.Node == "" {
		stamped := *mismatchError
		stamped.Node = node
		return &stamped
	}
	return err
}

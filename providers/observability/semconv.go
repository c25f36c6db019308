package observability

// Attribute keys, span names and metric names shared by the engine, the model
// client and the sinks.

// --- Graph engine ---

const (
	AttrGraphRunID        = "graph.run.id"
	AttrGraphNode         = "graph.node"
	AttrGraphNodeStatus   = "graph.node.status"
	AttrGraphStep         = "graph.step"
	AttrGraphFrontierSize = "graph.frontier.size"
	AttrGraphFrontier     = "graph.frontier"
	AttrGraphTotalNodes   = "graph.total_nodes"
	AttrGraphFanoutIndex  = "graph.fanout.index"
	AttrGraphMergeOrder   = "graph.merge_order"
	AttrGraphRunStatus    = "graph.run.status"
	AttrGraphSteps        = "graph.steps"

	SpanGraphRun         = "graph.run"
	SpanGraphNodeExecute = "graph.node.execute"

	MetricGraphNodeCount    = "aiflow.graph.node.count"
	MetricGraphNodeDuration = "aiflow.graph.node.duration"
	MetricGraphRunDuration  = "aiflow.graph.run.duration"
	MetricGraphRunCount     = "aiflow.graph.run.count"
)

// --- LLM provider ---

const (
	AttrLLMProvider     = "llm.provider"
	AttrLLMModel        = "llm.model"
	AttrLLMEndpoint     = "llm.endpoint"
	AttrLLMResponseID   = "llm.response.id"
	AttrLLMFinishReason = "llm.finish_reason"
	AttrLLMMaxTokens    = "llm.max_tokens" // #nosec G101 -- LLM tokens, not a credential

	AttrLLMTokensPrompt     = "llm.tokens.prompt"     // #nosec G101
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101
	AttrLLMTokensTotal      = "llm.tokens.total"      // #nosec G101

	SpanLLMRequest = "llm.request"

	EventLLMRequestStart = "llm.request.start"
	EventLLMRequestEnd   = "llm.request.end"
)

// --- Model client ---

const (
	AttrClientToolsCount     = "client.tools_count"
	AttrClientToolCalls      = "client.tool_calls"
	AttrClientStructured     = "client.structured"
	AttrRequestMessagesCount = "request.messages_count"
	AttrResponseContent      = "response.content"

	SpanClientInvoke = "client.invoke"

	MetricClientRequestCount    = "aiflow.client.request.count"
	MetricClientRequestDuration = "aiflow.client.request.duration"
	MetricClientTokensTotal     = "aiflow.client.tokens.total" // #nosec G101
)

// --- Tools ---

const (
	AttrToolName   = "tool.name"
	AttrToolInput  = "tool.input"
	AttrToolOutput = "tool.output"

	SpanToolExecution = "tool.execution"

	EventToolExecutionStart = "tool.execution.start"
	EventToolExecutionEnd   = "tool.execution.end"
)

// --- HTTP ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- General ---

const (
	AttrError    = "error"
	AttrDuration = "duration"
	AttrStatus   = "status"
)

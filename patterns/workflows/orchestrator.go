package workflows

import (
	"context"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/patterns/graph"
	"github.com/leofalp/aiflow/providers/ai"
)

// State fields of the orchestrator-worker workflow, besides FieldTopic.
const (
	FieldSections          = "sections"
	FieldSection           = "section"
	FieldSectionIndex      = "section_index"
	FieldSectionDrafts     = "section_drafts"
	FieldCompletedSections = "completed_sections"
	FieldFinalReport       = "final_report"
)

// Section is one part of the report planned by the orchestrator.
type Section struct {
	Name        string `json:"name" jsonschema:"description=Name for this section of the report."`
	Description string `json:"description" jsonschema:"description=Brief overview of the main topics and concepts to be covered in this section"`
}

// SectionDraft is the text a worker wrote for the section at Index of the plan.
type SectionDraft struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Sections is the structured plan returned by the orchestrator model.
type Sections struct {
	Sections []Section `json:"sections" jsonschema:"description=Sections of the report"`
}

const (
	plannerPrompt = "Generate a plan for the report."
	workerPrompt  = "Write a report section following the provided name and description. Include no preamble for each section. Use markdown formatting."
	sectionBreak  = "\n\n---\n\n"
)

// OrchestratorWorker lets a planner model break a report into sections,
// starts one llm_call worker per section through a dynamic fan-out and
// synthesizes the completed sections once every worker has merged. Workers
// tag their drafts with the section's plan position, so the report keeps the
// planner's order under either merge order. A plan without sections ends the
// run with an empty report.
func OrchestratorWorker(model client.Model, opts ...graph.Option) (*graph.Graph, error) {
	schema, err := graph.NewSchema(graph.Fields{
		FieldTopic:             graph.Replace[string](graph.Required()),
		FieldSections:          graph.Replace[[]Section](),
		FieldSection:           graph.Replace[Section](),
		FieldSectionIndex:      graph.Replace[int](),
		FieldSectionDrafts:     graph.Append[SectionDraft](),
		FieldCompletedSections: graph.Replace[[]string](),
		FieldFinalReport:       graph.Replace[string](),
	})
	if err != nil {
		return nil, err
	}

	orchestrator := func(ctx context.Context, state graph.State) (graph.Update, error) {
		plan, err := client.Structured[Sections](ctx, model,
			ai.SystemMessage(plannerPrompt),
			ai.UserMessage("Here is the report topic: "+graph.Value[string](state, FieldTopic)),
		)
		if err != nil {
			return nil, fmt.Errorf("plan report: %w", err)
		}
		return graph.Update{FieldSections: plan.Sections}, nil
	}

	worker := func(ctx context.Context, state graph.State) (graph.Update, error) {
		section := graph.Value[Section](state, FieldSection)
		content, err := invokeText(ctx, model,
			ai.SystemMessage(workerPrompt),
			ai.UserMessage(fmt.Sprintf("Here is the section name: %s and description: %s", section.Name, section.Description)),
		)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", section.Name, err)
		}
		draft := SectionDraft{Index: graph.Value[int](state, FieldSectionIndex), Content: content}
		return graph.Update{FieldSectionDrafts: []SectionDraft{draft}}, nil
	}

	return graph.NewBuilder(schema, opts...).
		AddNode("orchestrator", orchestrator, graph.WithWrites(FieldSections)).
		AddNode("llm_call", worker, graph.WithWrites(FieldSectionDrafts)).
		AddNode("synthesizer", synthesize, graph.WithWrites(FieldCompletedSections, FieldFinalReport)).
		AddEdge(graph.Start, "orchestrator").
		AddDynamicFanout("orchestrator", AssignWorkers, "llm_call").
		AddEdge("llm_call", "synthesizer").
		AddEdge("synthesizer", graph.End).
		Compile()
}

// AssignWorkers sends every planned section to its own llm_call invocation.
func AssignWorkers(state graph.State) []graph.Send {
	sections := graph.Value[[]Section](state, FieldSections)
	sends := make([]graph.Send, 0, len(sections))
	for index, section := range sections {
		sends = append(sends, graph.Send{Node: "llm_call", Payload: graph.Update{FieldSection: section, FieldSectionIndex: index}})
	}
	return sends
}

func synthesize(_ context.Context, state graph.State) (graph.Update, error) {
	drafts := slices.Clone(graph.Value[[]SectionDraft](state, FieldSectionDrafts))
	slices.SortStableFunc(drafts, func(left, right SectionDraft) int {
		return cmp.Compare(left.Index, right.Index)
	})

	completed := make([]string, len(drafts))
	for index, draft := range drafts {
		completed[index] = draft.Content
	}
	return graph.Update{
		FieldCompletedSections: completed,
		FieldFinalReport:       strings.Join(completed, sectionBreak),
	}, nil
}

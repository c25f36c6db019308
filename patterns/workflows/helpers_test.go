package workflows

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/tool"
)

// fakeModel answers Invoke with reply and InvokeStructured with the JSON
// returned by decide. Every conversation is recorded.
type fakeModel struct {
	reply  func(messages []ai.Message) (*ai.ChatResponse, error)
	decide func(messages []ai.Message) (string, error)

	log   *conversationLog
	bound []string
}

var _ client.Model = (*fakeModel)(nil)

type conversationLog struct {
	mu    sync.Mutex
	calls [][]ai.Message
}

func (log *conversationLog) add(messages []ai.Message) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.calls = append(log.calls, append([]ai.Message(nil), messages...))
}

func (log *conversationLog) prompts() []string {
	log.mu.Lock()
	defer log.mu.Unlock()
	prompts := make([]string, 0, len(log.calls))
	for _, call := range log.calls {
		prompts = append(prompts, call[len(call)-1].Content)
	}
	return prompts
}

func newFakeModel() *fakeModel {
	return &fakeModel{log: &conversationLog{}}
}

// echo replies with "re: " followed by the last prompt.
func echo(messages []ai.Message) (*ai.ChatResponse, error) {
	prompt := messages[len(messages)-1].Content
	return &ai.ChatResponse{Content: "re: " + prompt, FinishReason: ai.FinishStop}, nil
}

func (model *fakeModel) Invoke(_ context.Context, messages ...ai.Message) (*ai.ChatResponse, error) {
	model.log.add(messages)
	reply := model.reply
	if reply == nil {
		reply = echo
	}
	return reply(messages)
}

func (model *fakeModel) InvokeStructured(_ context.Context, target any, messages ...ai.Message) (*ai.ChatResponse, error) {
	model.log.add(messages)
	content, err := model.decide(messages)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(content), target); err != nil {
		return nil, err
	}
	return &ai.ChatResponse{Content: content, FinishReason: ai.FinishStop}, nil
}

func (model *fakeModel) BindTools(tools ...tool.GenericTool) client.Model {
	bound := *model
	bound.bound = append([]string(nil), model.bound...)
	for _, t := range tools {
		bound.bound = append(bound.bound, t.ToolInfo().Name)
	}
	return &bound
}

func hasPrefix(prompts []string, prefix string) int {
	count := 0
	for _, prompt := range prompts {
		if strings.HasPrefix(prompt, prefix) {
			count++
		}
	}
	return count
}

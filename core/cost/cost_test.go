package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leofalp/aiflow/providers/ai"
)

func TestModelCost_Calculate(testCase *testing.T) {
	modelCost := ModelCost{InputCostPerMillion: 3, OutputCostPerMillion: 15, CachedInputCostPerMillion: 0.3}

	summary := modelCost.Calculate(ai.Usage{PromptTokens: 2_000_000, CompletionTokens: 100_000, CachedTokens: 1_000_000})

	assert.InDelta(testCase, 3.0, summary.InputCost, 1e-9)
	assert.InDelta(testCase, 0.3, summary.CachedInputCost, 1e-9)
	assert.InDelta(testCase, 1.5, summary.OutputCost, 1e-9)
	assert.InDelta(testCase, 4.8, summary.TotalCost, 1e-9)
	assert.Equal(testCase, "USD", summary.Currency)
}

func TestModelCost_CachedAtInputRate(testCase *testing.T) {
	modelCost := ModelCost{InputCostPerMillion: 1, OutputCostPerMillion: 2}

	summary := modelCost.Calculate(ai.Usage{PromptTokens: 1_000_000, CachedTokens: 500_000})

	assert.InDelta(testCase, 1.0, summary.InputCost, 1e-9)
	assert.Zero(testCase, summary.CachedInputCost)
}

func TestForModel(testCase *testing.T) {
	sonnet, ok := ForModel("claude-3-5-sonnet-latest")
	assert.True(testCase, ok)
	assert.Equal(testCase, 15.0, sonnet.OutputCostPerMillion)

	mini, ok := ForModel("GPT-4o-mini-2024-07-18")
	assert.True(testCase, ok)
	assert.Equal(testCase, 0.15, mini.InputCostPerMillion)

	full, ok := ForModel("gpt-4o-2024-08-06")
	assert.True(testCase, ok)
	assert.Equal(testCase, 2.5, full.InputCostPerMillion)

	_, ok = ForModel("llama-3")
	assert.False(testCase, ok)
}

package cost

import (
	"fmt"
	"strings"

	"github.com/leofalp/aiflow/providers/ai"
)

// ModelCost is the pricing of a language model in USD per million tokens.
//
//	modelCost := cost.ModelCost{
//	    InputCostPerMillion:       3.00,
//	    OutputCostPerMillion:      15.00,
//	    CachedInputCostPerMillion: 0.30,
//	}
type ModelCost struct {
	InputCostPerMillion  float64 `json:"input_cost_per_million" yaml:"inputCostPerMillion"`
	OutputCostPerMillion float64 `json:"output_cost_per_million" yaml:"outputCostPerMillion"`

	// CachedInputCostPerMillion applies to the cached share of the prompt.
	// Zero bills cached tokens at the input rate.
	CachedInputCostPerMillion float64 `json:"cached_input_cost_per_million,omitempty" yaml:"cachedInputCostPerMillion,omitempty"`
}

func perMillion(tokens int, rate float64) float64 {
	return float64(tokens) / 1_000_000.0 * rate
}

// Calculate prices usage. Cached tokens are counted inside PromptTokens.
func (mc ModelCost) Calculate(usage ai.Usage) Summary {
	summary := Summary{Currency: "USD"}

	promptTokens := usage.PromptTokens
	if mc.CachedInputCostPerMillion > 0 && usage.CachedTokens > 0 {
		cached := min(usage.CachedTokens, promptTokens)
		promptTokens -= cached
		summary.CachedInputCost = perMillion(cached, mc.CachedInputCostPerMillion)
	}
	summary.InputCost = perMillion(promptTokens, mc.InputCostPerMillion)
	summary.OutputCost = perMillion(usage.CompletionTokens, mc.OutputCostPerMillion)
	summary.TotalCost = summary.InputCost + summary.CachedInputCost + summary.OutputCost
	return summary
}

func (mc ModelCost) String() string {
	return fmt.Sprintf("Input: $%.6f/M, Output: $%.6f/M", mc.InputCostPerMillion, mc.OutputCostPerMillion)
}

// Summary is the priced breakdown of a run's token usage.
type Summary struct {
	InputCost       float64 `json:"input_cost"`
	CachedInputCost float64 `json:"cached_input_cost,omitempty"`
	OutputCost      float64 `json:"output_cost"`
	TotalCost       float64 `json:"total_cost"`
	Currency        string  `json:"currency"`
}

// knownModels holds list prices of the default models. Entries are matched
// by prefix so dated snapshots share the price of their family.
var knownModels = []struct {
	prefix string
	cost   ModelCost
}{
	{"claude-3-5-haiku", ModelCost{InputCostPerMillion: 0.80, OutputCostPerMillion: 4.00, CachedInputCostPerMillion: 0.08}},
	{"claude-3-5-sonnet", ModelCost{InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00, CachedInputCostPerMillion: 0.30}},
	{"claude-sonnet-4", ModelCost{InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00, CachedInputCostPerMillion: 0.30}},
	{"gpt-4o-mini", ModelCost{InputCostPerMillion: 0.15, OutputCostPerMillion: 0.60, CachedInputCostPerMillion: 0.075}},
	{"gpt-4o", ModelCost{InputCostPerMillion: 2.50, OutputCostPerMillion: 10.00, CachedInputCostPerMillion: 1.25}},
}

// ForModel returns the list price of model, if known.
func ForModel(model string) (ModelCost, bool) {
	model = strings.ToLower(model)
	for _, known := range knownModels {
		if strings.HasPrefix(model, known.prefix) {
			return known.cost, true
		}
	}
	return ModelCost{}, false
}

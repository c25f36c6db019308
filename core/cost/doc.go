// Package cost prices token usage. [ModelCost] holds per-million-token
// rates, [ForModel] knows the list prices of the default models and
// [ModelCost.Calculate] turns an [ai.Usage] into a [Summary].
package cost

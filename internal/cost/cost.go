// Package cost converts provider usage figures into ledger costs.
//
// All costs are expressed in microcents (millionths of a US cent) so that
// ledger sums stay exact under integer arithmetic. Floating point never
// enters the calculation; rounding is half-up and happens once, at the
// final division.
package cost

import "github.com/hyperengineering/fableforge/internal/types"

// Pricing holds the rate for one provider/model pair, in microcents per
// one million units. Output units may be priced differently from input
// units (LLM completion tokens typically cost more than prompt tokens).
type Pricing struct {
	UnitKind              types.UnitKind
	InputPerMillionUnits  int64
	OutputPerMillionUnits int64
}

// pricingKey identifies a rate table entry.
type pricingKey struct {
	provider string
	model    string
}

// Rates as published by the providers, converted to microcents per 1M units.
// $1.00 per 1M units = 100 cents = 100_000_000 microcents per 1M units.
var defaultPricing = map[pricingKey]Pricing{
	// OpenAI, per 1M tokens
	{"openai", "gpt-4o"}:                  {types.UnitTokens, 250_000_000, 1_000_000_000},
	{"openai", "gpt-4o-mini"}:             {types.UnitTokens, 15_000_000, 60_000_000},
	{"openai", "text-embedding-3-small"}:  {types.UnitTokens, 2_000_000, 0},
	{"openai", "text-embedding-3-large"}:  {types.UnitTokens, 13_000_000, 0},
	// Anthropic, per 1M tokens
	{"anthropic", "claude-3-5-sonnet-latest"}: {types.UnitTokens, 300_000_000, 1_500_000_000},
	{"anthropic", "claude-3-5-haiku-latest"}:  {types.UnitTokens, 80_000_000, 400_000_000},
	// ElevenLabs, per 1M characters (~$0.10 per 1K characters)
	{"elevenlabs", "eleven_multilingual_v2"}: {types.UnitCharacters, 10_000_000_000, 0},
	// Meshy, per 1M credits (~$0.04 per credit)
	{"meshy", "text-to-3d"}: {types.UnitCredits, 4_000_000_000_000, 0},
}

// Calculator computes ledger costs from a pricing table.
type Calculator struct {
	pricing map[pricingKey]Pricing
}

// NewCalculator returns a Calculator with the default pricing table.
func NewCalculator() *Calculator {
	return &Calculator{pricing: defaultPricing}
}

// Lookup returns the pricing for a provider/model pair.
// Unknown pairs return false; callers ledger them at zero cost rather than
// failing the request.
func (c *Calculator) Lookup(provider, model string) (Pricing, bool) {
	p, ok := c.pricing[pricingKey{provider: provider, model: model}]
	return p, ok
}

// Cost computes the total cost in microcents for the given usage.
// Unknown provider/model pairs cost zero.
func (c *Calculator) Cost(provider, model string, inputUnits, outputUnits int64) int64 {
	p, ok := c.Lookup(provider, model)
	if !ok {
		return 0
	}
	return scale(inputUnits, p.InputPerMillionUnits) + scale(outputUnits, p.OutputPerMillionUnits)
}

// UnitKind returns what the provider/model pair bills by.
// Unknown pairs default to tokens.
func (c *Calculator) UnitKind(provider, model string) types.UnitKind {
	if p, ok := c.Lookup(provider, model); ok {
		return p.UnitKind
	}
	return types.UnitTokens
}

// scale computes units * ratePerMillion / 1_000_000 with half-up rounding.
func scale(units, ratePerMillion int64) int64 {
	if units <= 0 || ratePerMillion <= 0 {
		return 0
	}
	return (units*ratePerMillion + 500_000) / 1_000_000
}

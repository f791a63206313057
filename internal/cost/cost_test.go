package cost

import (
	"testing"

	"github.com/hyperengineering/fableforge/internal/types"
)

func TestCost_KnownPairs(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name        string
		provider    string
		model       string
		inputUnits  int64
		outputUnits int64
		want        int64
	}{
		{
			name:       "embedding tokens at $0.02 per 1M",
			provider:   "openai",
			model:      "text-embedding-3-small",
			inputUnits: 1_000_000,
			want:       2_000_000, // 2 cents
		},
		{
			name:        "gpt-4o-mini input and output priced separately",
			provider:    "openai",
			model:       "gpt-4o-mini",
			inputUnits:  1_000_000,
			outputUnits: 1_000_000,
			want:        15_000_000 + 60_000_000,
		},
		{
			name:        "anthropic sonnet",
			provider:    "anthropic",
			model:       "claude-3-5-sonnet-latest",
			inputUnits:  2_000,
			outputUnits: 1_000,
			want:        600_000 + 1_500_000,
		},
		{
			name:       "elevenlabs characters",
			provider:   "elevenlabs",
			model:      "eleven_multilingual_v2",
			inputUnits: 500,
			want:       5_000_000, // 500 chars at $0.10/1K = 5 cents
		},
		{
			name:       "meshy flat credits",
			provider:   "meshy",
			model:      "text-to-3d",
			inputUnits: 5,
			want:       20_000_000, // 5 credits at $0.04 = 20 cents
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Cost(tt.provider, tt.model, tt.inputUnits, tt.outputUnits)
			if got != tt.want {
				t.Errorf("Cost() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCost_UnknownPairIsZero(t *testing.T) {
	calc := NewCalculator()

	if got := calc.Cost("openai", "some-future-model", 1_000_000, 1_000_000); got != 0 {
		t.Errorf("Cost() = %d, want 0 for unknown model", got)
	}
}

func TestCost_HalfUpRounding(t *testing.T) {
	calc := NewCalculator()

	// 1 token of gpt-4o-mini input: 15_000_000 / 1_000_000 = 15 exactly
	if got := calc.Cost("openai", "gpt-4o-mini", 1, 0); got != 15 {
		t.Errorf("Cost(1 token) = %d, want 15", got)
	}

	// 1 token of embedding: 2_000_000 / 1_000_000 = 2 exactly
	if got := calc.Cost("openai", "text-embedding-3-small", 1, 0); got != 2 {
		t.Errorf("Cost(1 token) = %d, want 2", got)
	}
}

func TestScale_RoundsHalfUp(t *testing.T) {
	tests := []struct {
		units int64
		rate  int64
		want  int64
	}{
		{1, 1, 0},            // 0.000001 rounds down
		{1, 500_000, 1},      // exactly half rounds up
		{1, 499_999, 0},      // just under half rounds down
		{3, 500_000, 2},      // 1.5 rounds up once at the end
		{1_000_000, 7, 7},    // exact
		{0, 1_000_000, 0},    // zero units
		{-5, 1_000_000, 0},   // negative units clamp to zero
		{10, -1_000_000, 0},  // negative rate clamps to zero
	}

	for _, tt := range tests {
		if got := scale(tt.units, tt.rate); got != tt.want {
			t.Errorf("scale(%d, %d) = %d, want %d", tt.units, tt.rate, got, tt.want)
		}
	}
}

func TestUnitKind(t *testing.T) {
	calc := NewCalculator()

	if got := calc.UnitKind("elevenlabs", "eleven_multilingual_v2"); got != types.UnitCharacters {
		t.Errorf("UnitKind = %q, want %q", got, types.UnitCharacters)
	}
	if got := calc.UnitKind("meshy", "text-to-3d"); got != types.UnitCredits {
		t.Errorf("UnitKind = %q, want %q", got, types.UnitCredits)
	}
	// Unknown pairs default to tokens
	if got := calc.UnitKind("nobody", "nothing"); got != types.UnitTokens {
		t.Errorf("UnitKind = %q, want %q", got, types.UnitTokens)
	}
}

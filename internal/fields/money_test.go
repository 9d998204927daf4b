package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMoneyCandidates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []MoneyCandidate
	}{
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "rupee symbol with commas",
			text: "Total: ₹1,234.50",
			want: []MoneyCandidate{{Value: 1234.50, Raw: "₹1,234.50", Line: "Total: ₹1,234.50"}},
		},
		{
			name: "rs prefix",
			text: "Rs. 1,000 payable",
			want: []MoneyCandidate{{Value: 1000, Raw: "Rs.1,000", Line: "Rs. 1,000 payable"}},
		},
		{
			name: "dollar sign",
			text: "$12.50",
			want: []MoneyCandidate{{Value: 12.50, Raw: "$12.50", Line: "$12.50"}},
		},
		{
			name: "bare number needs context",
			text: "qty 2 item 719",
			want: nil,
		},
		{
			name: "bare number with context word",
			text: "Amount due 719.35",
			want: []MoneyCandidate{{Value: 719.35, Raw: "719.35", Line: "Amount due 719.35"}},
		},
		{
			name: "sub-unit values dropped",
			text: "$0.50 deposit",
			want: nil,
		},
		{
			name: "multiple per line kept in order",
			text: "Total 500 of 750",
			want: []MoneyCandidate{
				{Value: 500, Raw: "500", Line: "Total 500 of 750"},
				{Value: 750, Raw: "750", Line: "Total 500 of 750"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMoneyCandidates(tt.text))
		})
	}
}

func TestMaxCandidate(t *testing.T) {
	_, ok := maxCandidate(nil)
	assert.False(t, ok)

	cands := []MoneyCandidate{
		{Value: 100, Raw: "100"},
		{Value: 750, Raw: "first750"},
		{Value: 750, Raw: "second750"},
		{Value: 20, Raw: "20"},
	}
	best, ok := maxCandidate(cands)
	require.True(t, ok)
	assert.Equal(t, 750.0, best.Value)
	// ties break toward the earlier occurrence
	assert.Equal(t, "first750", best.Raw)
}

func TestNonEmptyLines(t *testing.T) {
	got := nonEmptyLines("a\n\n  b  \n\nc")
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSlug(t *testing.T) {
	assert.Equal(t, "KT1abc_0", TokenSlug("KT1abc", ""))
	assert.Equal(t, "KT1abc_7", TokenSlug("KT1abc", "7"))
}

func TestParseAssetSlug(t *testing.T) {
	const lq = "KT1liquidity"

	tests := []struct {
		name string
		slug string
		want AssetScope
	}{
		{"empty is any", "", AnyScope()},
		{"native", "tez", NativeScope()},
		{"token with id", "KT1abc_3", TokenScope("KT1abc", "3")},
		{"token without id", "KT1abc", TokenScope("KT1abc", "0")},
		{"liquidity contract", "KT1liquidity_0", LiquidityScope(lq)},
		{"liquidity contract bare", "KT1liquidity", LiquidityScope(lq)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAssetSlug(tc.slug, lq)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseAssetSlug_Invalid(t *testing.T) {
	_, err := ParseAssetSlug("_1", "")
	require.Error(t, err)

	_, err = ParseAssetSlug("KT1abc_x", "")
	require.Error(t, err)
}

func TestAssetScopeString(t *testing.T) {
	assert.Equal(t, "", AnyScope().String())
	assert.Equal(t, "tez", NativeScope().String())
	assert.Equal(t, "KT1abc_0", TokenScope("KT1abc", "").String())
	assert.Equal(t, "KT1lq", LiquidityScope("KT1lq").String())
}

func TestCursorOf(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := CursorOf(RawOperation{ID: 9, Level: 100, Hash: "oo1", Timestamp: ts})
	assert.Equal(t, Cursor{Level: 100, Timestamp: ts, Hash: "oo1"}, c)
}

func TestTransferSummaryHasRecipient(t *testing.T) {
	s := &TokenTransferSummary{Recipients: []TransferRecipient{{Address: "tz1a", Amount: "1"}}}
	assert.True(t, s.HasRecipient("tz1a"))
	assert.False(t, s.HasRecipient("tz1b"))

	var nilSummary *TokenTransferSummary
	assert.False(t, nilSummary.HasRecipient("tz1a"))
}

func TestTransfersOf(t *testing.T) {
	summary := &TokenTransferSummary{AssetSlug: "tez"}
	assert.Same(t, summary, TransfersOf(TransferTo{TransferFields: TransferFields{Transfers: summary}}))
	assert.Nil(t, TransfersOf(Delegation{}))
	assert.Nil(t, TransfersOf(Other{Name: "reveal"}))
}

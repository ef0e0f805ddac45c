package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainIDString(t *testing.T) {
	assert.Equal(t, "NetXdQprcVkpaWU", ChainTezosMainnet.String())
	assert.Equal(t, "NetXnHfVqm9iesp", ChainTezosGhostnet.String())
}

func TestDefaultChains(t *testing.T) {
	seen := make(map[ChainID]bool)
	for _, c := range DefaultChains {
		assert.NotEmpty(t, c.IndexerURL, c.Name)
		assert.False(t, seen[c.ID], "duplicate chain %s", c.ID)
		seen[c.ID] = true
	}
	assert.True(t, seen[ChainTezosMainnet])
}

func TestStatusConstants(t *testing.T) {
	assert.Equal(t, OperationStatus("applied"), StatusApplied)
	assert.Equal(t, OperationStatus("backtracked"), StatusBacktracked)
	assert.Equal(t, OperationStatus("pending"), StatusPending)
}

func TestTokenStandardConstants(t *testing.T) {
	assert.Equal(t, TokenStandard("fa1.2"), StandardFA12)
	assert.Equal(t, TokenStandard("fa2"), StandardFA2)
	assert.Equal(t, TokenStandard("native"), StandardNative)
}

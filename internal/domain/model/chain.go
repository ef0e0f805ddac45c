package model

// ChainID is the chain identifier reported by the node (e.g. "NetXdQprcVkpaWU").
type ChainID string

func (c ChainID) String() string {
	return string(c)
}

const (
	ChainTezosMainnet  ChainID = "NetXdQprcVkpaWU"
	ChainTezosGhostnet ChainID = "NetXnHfVqm9iesp"
)

// KnownChain describes a chain the engine can query a history indexer for.
type KnownChain struct {
	ID                ChainID
	Name              string
	IndexerURL        string
	LiquidityContract string
}

// DefaultChains are used when no chains file is configured.
var DefaultChains = []KnownChain{
	{
		ID:                ChainTezosMainnet,
		Name:              "mainnet",
		IndexerURL:        "https://api.tzkt.io/v1",
		LiquidityContract: "KT1AafHA1C1vk959wvHWBispY9Y2f3fxBUUo",
	},
	{
		ID:         ChainTezosGhostnet,
		Name:       "ghostnet",
		IndexerURL: "https://api.ghostnet.tzkt.io/v1",
	},
}

type OperationKind string

const (
	KindTransaction OperationKind = "transaction"
	KindDelegation  OperationKind = "delegation"
	KindOrigination OperationKind = "origination"
	KindReveal      OperationKind = "reveal"
)

type OperationStatus string

const (
	StatusPending     OperationStatus = "pending"
	StatusApplied     OperationStatus = "applied"
	StatusBacktracked OperationStatus = "backtracked"
	StatusSkipped     OperationStatus = "skipped"
	StatusFailed      OperationStatus = "failed"
)

type TokenStandard string

const (
	StandardNative TokenStandard = "native"
	StandardFA12   TokenStandard = "fa1.2"
	StandardFA2    TokenStandard = "fa2"
)

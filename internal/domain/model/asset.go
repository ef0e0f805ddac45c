package model

import (
	"fmt"
	"strings"
)

// NativeAssetSlug is the reserved slug of the chain's native currency.
const NativeAssetSlug = "tez"

const defaultTokenID = "0"

// TokenSlug builds the composite slug of a token.
func TokenSlug(contract, tokenID string) string {
	if tokenID == "" {
		tokenID = defaultTokenID
	}
	return contract + "_" + tokenID
}

// ScopeKind selects which slice of an account's activity is requested.
type ScopeKind string

const (
	ScopeAny       ScopeKind = "any"
	ScopeNative    ScopeKind = "native"
	ScopeToken     ScopeKind = "token"
	ScopeLiquidity ScopeKind = "liquidity"
)

// AssetScope is the asset filter of a history request.
type AssetScope struct {
	Kind     ScopeKind
	Contract string
	TokenID  string
}

func AnyScope() AssetScope { return AssetScope{Kind: ScopeAny} }

func NativeScope() AssetScope { return AssetScope{Kind: ScopeNative} }

func TokenScope(contract, tokenID string) AssetScope {
	if tokenID == "" {
		tokenID = defaultTokenID
	}
	return AssetScope{Kind: ScopeToken, Contract: contract, TokenID: tokenID}
}

func LiquidityScope(contract string) AssetScope {
	return AssetScope{Kind: ScopeLiquidity, Contract: contract}
}

// String returns the slug form of the scope; "" for any.
func (s AssetScope) String() string {
	switch s.Kind {
	case ScopeNative:
		return NativeAssetSlug
	case ScopeToken:
		return TokenSlug(s.Contract, s.TokenID)
	case ScopeLiquidity:
		return s.Contract
	default:
		return ""
	}
}

// ParseAssetSlug maps a UI asset slug to a scope. An empty slug means any
// activity. A slug naming the chain's liquidity contract (with or without a
// token id) selects the liquidity scope.
func ParseAssetSlug(slug, liquidityContract string) (AssetScope, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return AnyScope(), nil
	}
	if slug == NativeAssetSlug {
		return NativeScope(), nil
	}

	contract, tokenID, _ := strings.Cut(slug, "_")
	if contract == "" {
		return AssetScope{}, fmt.Errorf("invalid asset slug %q", slug)
	}
	if tokenID == "" {
		tokenID = defaultTokenID
	}
	for _, r := range tokenID {
		if r < '0' || r > '9' {
			return AssetScope{}, fmt.Errorf("invalid token id in asset slug %q", slug)
		}
	}
	if liquidityContract != "" && contract == liquidityContract {
		return LiquidityScope(contract), nil
	}
	return TokenScope(contract, tokenID), nil
}

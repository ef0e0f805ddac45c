// Package tokenstd holds per-standard knowledge of token parameter shapes:
// how to query transfers, how to recognise a payload and how to extract a
// transfer summary from it. Adding a standard is one table entry.
package tokenstd

import (
	"encoding/json"
	"math/big"

	"github.com/mavryk-network/activity-history/internal/domain/model"
)

// Filter is one indexer query parameter.
type Filter struct {
	Key   string
	Value string
}

// Extraction is what a strategy derives from a matching transfer payload.
type Extraction struct {
	Outgoing bool
	// Amount is signed from the account's perspective.
	Amount  string
	Source  model.Alias
	Summary *model.TokenTransferSummary
}

// Strategy bundles everything standard-specific.
type Strategy struct {
	Standard model.TokenStandard
	// TransferFilter matches transfers of tokenID with account on either side.
	TransferFilter func(account, tokenID string) Filter
	// IncomingFilter matches transfers crediting account.
	IncomingFilter func(account string) Filter
	// Match reports whether the payload has this standard's transfer shape.
	Match func(p *model.Parameter) bool
	// IsNoise reports payloads that never produce a history item.
	IsNoise func(p *model.Parameter) bool
	// Extract returns false when the transfer does not involve account.
	Extract func(op model.RawOperation, account string) (Extraction, bool)
}

var table = map[model.TokenStandard]Strategy{
	model.StandardFA2:  fa2Strategy,
	model.StandardFA12: fa12Strategy,
}

// matchOrder is the order in which payloads are tested against standards.
var matchOrder = []model.TokenStandard{model.StandardFA2, model.StandardFA12}

// Lookup returns the strategy of standard.
func Lookup(standard model.TokenStandard) (Strategy, bool) {
	s, ok := table[standard]
	return s, ok
}

// Ordered returns the strategies in payload matching order.
func Ordered() []Strategy {
	out := make([]Strategy, 0, len(matchOrder))
	for _, standard := range matchOrder {
		out = append(out, table[standard])
	}
	return out
}

// Detect returns the first strategy whose shape matches p.
func Detect(p *model.Parameter) (Strategy, bool) {
	if p == nil {
		return Strategy{}, false
	}
	for _, s := range Ordered() {
		if s.Match(p) {
			return s, true
		}
	}
	return Strategy{}, false
}

// IsNoise reports whether any standard flags p as noise.
func IsNoise(p *model.Parameter) bool {
	if p == nil {
		return false
	}
	for _, s := range Ordered() {
		if s.IsNoise != nil && s.IsNoise(p) {
			return true
		}
	}
	return false
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func parseNat(value *string) (*big.Int, bool) {
	if value == nil {
		return nil, false
	}
	v, ok := model.ParseAmount(*value)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

func sourceAlias(op model.RawOperation, address string) model.Alias {
	if op.Sender.Address == address {
		return op.Sender
	}
	return model.Alias{Address: address}
}

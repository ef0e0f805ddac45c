package tokenstd

import (
	"encoding/json"

	"github.com/mavryk-network/activity-history/internal/domain/model"
)

// EntrypointMintOrBurn is the liquidity token entrypoint called by the liquidity contract.
const EntrypointMintOrBurn = "mintOrBurn"

type liquidityParams struct {
	Target   *string `json:"target"`
	Quantity *string `json:"quantity"`
}

func decodeLiquidity(p *model.Parameter) (liquidityParams, bool) {
	if p == nil || len(p.Value) == 0 {
		return liquidityParams{}, false
	}
	var lp liquidityParams
	if err := json.Unmarshal(p.Value, &lp); err != nil {
		return liquidityParams{}, false
	}
	if lp.Target == nil || lp.Quantity == nil {
		return liquidityParams{}, false
	}
	if _, ok := model.ParseAmount(*lp.Quantity); !ok {
		return liquidityParams{}, false
	}
	return lp, true
}

// MatchLiquidity reports whether p has the liquidity {target, quantity} shape.
func MatchLiquidity(p *model.Parameter) bool {
	_, ok := decodeLiquidity(p)
	return ok
}

// LiquidityAmount returns the signed quantity minted to (or burnt from)
// account, or "0" when the payload targets someone else.
func LiquidityAmount(p *model.Parameter, account string) string {
	lp, ok := decodeLiquidity(p)
	if !ok || *lp.Target != account {
		return "0"
	}
	v, _ := model.ParseAmount(*lp.Quantity)
	return v.String()
}

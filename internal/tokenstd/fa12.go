package tokenstd

import (
	"encoding/json"

	"github.com/mavryk-network/activity-history/internal/domain/model"
)

const entrypointApprove = "approve"

type fa12Transfer struct {
	From  *string `json:"from"`
	To    *string `json:"to"`
	Value *string `json:"value"`
}

type fa12Approve struct {
	Spender *string `json:"spender"`
	Value   *string `json:"value"`
}

var fa12Strategy = Strategy{
	Standard: model.StandardFA12,
	TransferFilter: func(account, _ string) Filter {
		return Filter{
			Key:   "parameter.in",
			Value: mustJSON([]map[string]string{{"from": account}, {"to": account}}),
		}
	},
	IncomingFilter: func(account string) Filter {
		return Filter{Key: "parameter.to", Value: account}
	},
	Match: func(p *model.Parameter) bool {
		_, ok := decodeFA12Transfer(p)
		return ok
	},
	IsNoise: func(p *model.Parameter) bool {
		if p.Entrypoint != entrypointApprove {
			return false
		}
		if _, ok := decodeFA12Transfer(p); ok {
			return true
		}
		var approve fa12Approve
		if err := json.Unmarshal(p.Value, &approve); err != nil {
			return false
		}
		return approve.Spender != nil && approve.Value != nil
	},
	Extract: extractFA12,
}

func decodeFA12Transfer(p *model.Parameter) (fa12Transfer, bool) {
	if p == nil || len(p.Value) == 0 {
		return fa12Transfer{}, false
	}
	var t fa12Transfer
	if err := json.Unmarshal(p.Value, &t); err != nil {
		return fa12Transfer{}, false
	}
	if t.From == nil || t.To == nil {
		return fa12Transfer{}, false
	}
	if _, ok := parseNat(t.Value); !ok {
		return fa12Transfer{}, false
	}
	return t, true
}

func extractFA12(op model.RawOperation, account string) (Extraction, bool) {
	t, ok := decodeFA12Transfer(op.Parameter)
	if !ok {
		return Extraction{}, false
	}
	from, to := *t.From, *t.To
	if from != account && to != account {
		return Extraction{}, false
	}

	amount, _ := parseNat(t.Value)
	contract := op.TargetAddress()
	summary := &model.TokenTransferSummary{
		Sender:      from,
		Recipients:  []model.TransferRecipient{{Address: to, Amount: amount.String()}},
		TotalAmount: amount.String(),
		Contract:    contract,
		TokenID:     "0",
		Standard:    model.StandardFA12,
		AssetSlug:   model.TokenSlug(contract, "0"),
	}

	outgoing := from == account
	signed := amount.String()
	if outgoing {
		signed = model.NegateAmount(signed)
	}
	// The displayed source is always the token sender: the account itself for
	// outgoing transfers, the counterparty for incoming ones.
	return Extraction{
		Outgoing: outgoing,
		Amount:   signed,
		Source:   sourceAlias(op, from),
		Summary:  summary,
	}, true
}

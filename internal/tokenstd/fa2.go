package tokenstd

import (
	"bytes"
	"encoding/json"
	"math/big"

	"github.com/mavryk-network/activity-history/internal/domain/model"
)

type fa2Tx struct {
	To      *string `json:"to_"`
	TokenID *string `json:"token_id"`
	Amount  *string `json:"amount"`
}

type fa2Batch struct {
	From *string `json:"from_"`
	Txs  []fa2Tx `json:"txs"`
}

var fa2Strategy = Strategy{
	Standard: model.StandardFA2,
	TransferFilter: func(account, tokenID string) Filter {
		if tokenID == "" {
			tokenID = "0"
		}
		return Filter{
			Key: "parameter.[*].in",
			Value: mustJSON([]map[string]any{
				{"from_": account, "txs": []map[string]string{{"token_id": tokenID}}},
				{"txs": []map[string]string{{"to_": account, "token_id": tokenID}}},
			}),
		}
	},
	IncomingFilter: func(account string) Filter {
		return Filter{Key: "parameter.[*].txs.[*].to_", Value: account}
	},
	Match: func(p *model.Parameter) bool {
		_, ok := decodeFA2Batches(p)
		return ok
	},
	Extract: extractFA2,
}

func decodeFA2Batches(p *model.Parameter) ([]fa2Batch, bool) {
	if p == nil {
		return nil, false
	}
	trimmed := bytes.TrimSpace(p.Value)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var batches []fa2Batch
	if err := json.Unmarshal(trimmed, &batches); err != nil {
		return nil, false
	}
	for _, b := range batches {
		if b.From == nil || b.Txs == nil {
			return nil, false
		}
		for _, tx := range b.Txs {
			if tx.To == nil || tx.TokenID == nil {
				return nil, false
			}
			if _, ok := parseNat(tx.Amount); !ok {
				return nil, false
			}
		}
	}
	return batches, true
}

// extractFA2 aggregates the legs involving account. Legs of the batch sent by
// the account count as outgoing; legs crediting the account in batches sent by
// others count as incoming. Only legs of the first involved token id are kept
// so the summary describes a single asset.
func extractFA2(op model.RawOperation, account string) (Extraction, bool) {
	batches, ok := decodeFA2Batches(op.Parameter)
	if !ok {
		return Extraction{}, false
	}

	var (
		tokenID    string
		matched    bool
		sender     string
		recipients []model.TransferRecipient
		sent       = new(big.Int)
		received   = new(big.Int)
	)
	take := func(tx fa2Tx) bool {
		if !matched {
			tokenID = *tx.TokenID
			matched = true
		}
		return *tx.TokenID == tokenID
	}

	for _, b := range batches {
		if *b.From == account {
			for _, tx := range b.Txs {
				if !take(tx) {
					continue
				}
				amount, _ := parseNat(tx.Amount)
				sent.Add(sent, amount)
				recipients = append(recipients, model.TransferRecipient{Address: *tx.To, Amount: amount.String()})
				sender = account
			}
			continue
		}
		for _, tx := range b.Txs {
			if *tx.To != account || !take(tx) {
				continue
			}
			amount, _ := parseNat(tx.Amount)
			received.Add(received, amount)
			recipients = append(recipients, model.TransferRecipient{Address: account, Amount: amount.String()})
			if sender == "" {
				sender = *b.From
			}
		}
	}
	if !matched {
		return Extraction{}, false
	}

	outgoing := sent.Sign() > 0 || sender == account
	total := received
	if outgoing {
		total = sent
	}
	contract := op.TargetAddress()
	summary := &model.TokenTransferSummary{
		Sender:      sender,
		Recipients:  recipients,
		TotalAmount: total.String(),
		Contract:    contract,
		TokenID:     tokenID,
		Standard:    model.StandardFA2,
		AssetSlug:   model.TokenSlug(contract, tokenID),
	}
	net := new(big.Int).Sub(received, sent)
	return Extraction{
		Outgoing: outgoing,
		Amount:   net.String(),
		Source:   sourceAlias(op, sender),
		Summary:  summary,
	}, true
}

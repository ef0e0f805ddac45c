// Package classifier projects raw indexer operations onto history item
// variants from the viewpoint of one account.
package classifier

import (
	"strconv"
	"strings"

	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/metrics"
	"github.com/mavryk-network/activity-history/internal/tokenstd"
)

const (
	dropReasonNoise      = "noise"
	dropReasonUninvolved = "uninvolved"
)

// Classify returns the history item of op, index being its position within
// its group. ok is false for noise operations, which produce no item.
// Unrecognised payloads never fail: they fall through to Interaction or Other.
func Classify(op model.RawOperation, index int, account string) (model.HistoryItem, bool) {
	switch op.Kind {
	case model.KindDelegation:
		if op.Sender.Address == account {
			return model.Delegation{
				ItemBase:     baseOf(op, index, "0", model.NativeAssetSlug),
				PrevDelegate: op.PrevDelegate,
				NewDelegate:  op.NewDelegate,
			}, true
		}
	case model.KindOrigination:
		amount := model.SignedAmount(op.ContractBalance, op.Sender.Address == account)
		return model.Origination{
			ItemBase:           baseOf(op, index, amount, model.NativeAssetSlug),
			OriginatedContract: op.OriginatedContract,
			ContractBalance:    op.ContractBalance,
		}, true
	case model.KindTransaction:
		return classifyTransaction(op, index, account)
	case model.KindReveal:
		return model.Reveal{ItemBase: baseOf(op, index, "0", model.NativeAssetSlug)}, true
	}
	return model.Other{
		ItemBase: baseOf(op, index, "0", model.NativeAssetSlug),
		Name:     otherName(op),
	}, true
}

func classifyTransaction(op model.RawOperation, index int, account string) (model.HistoryItem, bool) {
	if op.Parameter == nil {
		return classifyNativeTransfer(op, index, account), true
	}
	if tokenstd.IsNoise(op.Parameter) {
		metrics.ClassifierDropped.WithLabelValues(dropReasonNoise).Inc()
		return nil, false
	}

	if st, ok := tokenstd.Detect(op.Parameter); ok {
		ex, involved := st.Extract(op, account)
		if !involved {
			metrics.ClassifierDropped.WithLabelValues(dropReasonUninvolved).Inc()
			return nil, false
		}
		return tokenTransferItem(op, index, st, ex), true
	}

	if tokenstd.MatchLiquidity(op.Parameter) {
		return model.Interaction{
			ItemBase: baseOf(op, index,
				tokenstd.LiquidityAmount(op.Parameter, account),
				model.TokenSlug(op.TargetAddress(), "0")),
			TransferFields: model.TransferFields{
				Destination: targetAlias(op),
				Entrypoint:  op.Entrypoint(),
			},
		}, true
	}

	return model.Interaction{
		ItemBase: baseOf(op, index, nativeAmount(op, account), model.NativeAssetSlug),
		TransferFields: model.TransferFields{
			Destination: targetAlias(op),
			Entrypoint:  op.Entrypoint(),
		},
	}, true
}

func classifyNativeTransfer(op model.RawOperation, index int, account string) model.HistoryItem {
	amount := strconv.FormatInt(op.Amount, 10)
	fields := model.TransferFields{
		Destination: targetAlias(op),
		Transfers: &model.TokenTransferSummary{
			Sender:      op.Sender.Address,
			Recipients:  []model.TransferRecipient{{Address: op.TargetAddress(), Amount: amount}},
			TotalAmount: amount,
			Standard:    model.StandardNative,
			AssetSlug:   model.NativeAssetSlug,
		},
	}

	switch {
	case op.Sender.Address == account:
		return model.TransferTo{
			ItemBase:       baseOf(op, index, model.SignedAmount(op.Amount, true), model.NativeAssetSlug),
			TransferFields: fields,
		}
	case op.TargetAddress() == account:
		return model.TransferFrom{
			ItemBase:       baseOf(op, index, amount, model.NativeAssetSlug),
			TransferFields: fields,
		}
	default:
		return model.Interaction{
			ItemBase:       baseOf(op, index, "0", model.NativeAssetSlug),
			TransferFields: fields,
		}
	}
}

func tokenTransferItem(op model.RawOperation, index int, st tokenstd.Strategy, ex tokenstd.Extraction) model.HistoryItem {
	base := baseOf(op, index, ex.Amount, ex.Summary.AssetSlug)
	base.Source = ex.Source
	fields := model.TransferFields{
		Destination: destinationOf(op, ex),
		Transfers:   ex.Summary,
		Entrypoint:  op.Entrypoint(),
	}

	if st.Standard == model.StandardFA2 && strings.Contains(strings.ToLower(op.Entrypoint()), "swap") {
		return model.Swap{ItemBase: base, TransferFields: fields}
	}
	if ex.Outgoing {
		return model.TransferTo{ItemBase: base, TransferFields: fields}
	}
	return model.TransferFrom{ItemBase: base, TransferFields: fields}
}

func destinationOf(op model.RawOperation, ex tokenstd.Extraction) model.Alias {
	if ex.Summary != nil && len(ex.Summary.Recipients) > 0 {
		return model.Alias{Address: ex.Summary.Recipients[0].Address}
	}
	return targetAlias(op)
}

func baseOf(op model.RawOperation, index int, amount, assetSlug string) model.ItemBase {
	return model.ItemBase{
		ID:            op.ID,
		Level:         op.Level,
		Hash:          op.Hash,
		Source:        op.Sender,
		Status:        op.Status,
		Amount:        amount,
		AssetSlug:     assetSlug,
		BakerFee:      op.BakerFee,
		StorageFee:    op.StorageFee,
		AllocationFee: op.AllocationFee,
		Timestamp:     op.Timestamp,
		Index:         index,
	}
}

// nativeAmount signs the attached native amount from the account's side.
func nativeAmount(op model.RawOperation, account string) string {
	switch {
	case op.Sender.Address == account:
		return model.SignedAmount(op.Amount, true)
	case op.TargetAddress() == account:
		return model.SignedAmount(op.Amount, false)
	default:
		return "0"
	}
}

func targetAlias(op model.RawOperation) model.Alias {
	if op.Target == nil {
		return model.Alias{}
	}
	return *op.Target
}

func otherName(op model.RawOperation) string {
	if ep := op.Entrypoint(); ep != "" {
		return string(op.Kind) + ":" + ep
	}
	if op.Kind == "" {
		return "unknown"
	}
	return string(op.Kind)
}

package api

import (
	"time"

	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/pipeline/summarizer"
)

type aliasResponse struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type recipientResponse struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type transfersResponse struct {
	Sender      string              `json:"sender"`
	Recipients  []recipientResponse `json:"recipients"`
	TotalAmount string              `json:"total_amount"`
	Contract    string              `json:"contract,omitempty"`
	TokenID     string              `json:"token_id,omitempty"`
	Standard    string              `json:"standard"`
	AssetSlug   string              `json:"asset_slug"`
}

type operationResponse struct {
	Type          string        `json:"type"`
	ID            int64         `json:"id"`
	Level         int64         `json:"level"`
	Hash          string        `json:"hash"`
	Index         int           `json:"index"`
	Timestamp     time.Time     `json:"timestamp"`
	Status        string        `json:"status"`
	Source        aliasResponse `json:"source"`
	Amount        string        `json:"amount"`
	AssetSlug     string        `json:"asset_slug"`
	BakerFee      int64         `json:"baker_fee"`
	StorageFee    int64         `json:"storage_fee"`
	AllocationFee int64         `json:"allocation_fee"`

	Destination        *aliasResponse     `json:"destination,omitempty"`
	Entrypoint         string             `json:"entrypoint,omitempty"`
	Transfers          *transfersResponse `json:"transfers,omitempty"`
	PrevDelegate       *aliasResponse     `json:"prev_delegate,omitempty"`
	NewDelegate        *aliasResponse     `json:"new_delegate,omitempty"`
	OriginatedContract *aliasResponse     `json:"originated_contract,omitempty"`
	ContractBalance    *int64             `json:"contract_balance,omitempty"`
	Name               string             `json:"name,omitempty"`
}

type moneyDiffResponse struct {
	AssetSlug string `json:"asset_slug"`
	Diff      string `json:"diff"`
}

type historyItemResponse struct {
	Type        string              `json:"type"`
	Hash        string              `json:"hash"`
	AddedAt     time.Time           `json:"added_at"`
	Status      string              `json:"status"`
	IsGroupedOp bool                `json:"is_grouped_op"`
	Operations  []operationResponse `json:"operations"`
	MoneyDiffs  []moneyDiffResponse `json:"money_diffs"`
}

type cursorResponse struct {
	Level     int64     `json:"level"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
}

type historyResponse struct {
	Chain         string                `json:"chain"`
	Account       string                `json:"account"`
	Asset         string                `json:"asset,omitempty"`
	Items         []historyItemResponse `json:"items"`
	NextCursor    *cursorResponse       `json:"next_cursor"`
	ReachedTheEnd bool                  `json:"reached_the_end"`
}

func toHistoryItemResponse(item model.UserHistoryItem, allowZero bool) historyItemResponse {
	ops := make([]operationResponse, 0, len(item.Operations))
	for _, op := range item.Operations {
		ops = append(ops, toOperationResponse(op))
	}
	diffs := summarizer.MoneyDiffs(item.Operations, allowZero)
	diffResp := make([]moneyDiffResponse, 0, len(diffs))
	for _, d := range diffs {
		diffResp = append(diffResp, moneyDiffResponse{AssetSlug: d.AssetSlug, Diff: d.Diff})
	}
	return historyItemResponse{
		Type:        item.Type.String(),
		Hash:        item.Hash,
		AddedAt:     item.AddedAt,
		Status:      string(item.Status),
		IsGroupedOp: item.IsGroupedOp,
		Operations:  ops,
		MoneyDiffs:  diffResp,
	}
}

func toOperationResponse(item model.HistoryItem) operationResponse {
	base := item.Base()
	resp := operationResponse{
		Type:          item.Type().String(),
		ID:            base.ID,
		Level:         base.Level,
		Hash:          base.Hash,
		Index:         base.Index,
		Timestamp:     base.Timestamp,
		Status:        string(base.Status),
		Source:        aliasResponse{Address: base.Source.Address, Name: base.Source.Name},
		Amount:        base.Amount,
		AssetSlug:     base.AssetSlug,
		BakerFee:      base.BakerFee,
		StorageFee:    base.StorageFee,
		AllocationFee: base.AllocationFee,
	}

	switch v := item.(type) {
	case model.TransferTo:
		applyTransferFields(&resp, v.TransferFields)
	case model.TransferFrom:
		applyTransferFields(&resp, v.TransferFields)
	case model.Swap:
		applyTransferFields(&resp, v.TransferFields)
	case model.Interaction:
		applyTransferFields(&resp, v.TransferFields)
	case model.Delegation:
		resp.PrevDelegate = aliasPtr(v.PrevDelegate)
		resp.NewDelegate = aliasPtr(v.NewDelegate)
	case model.Origination:
		resp.OriginatedContract = aliasPtr(v.OriginatedContract)
		balance := v.ContractBalance
		resp.ContractBalance = &balance
	case model.Other:
		resp.Name = v.Name
	case model.Reveal:
	}
	return resp
}

func applyTransferFields(resp *operationResponse, f model.TransferFields) {
	if f.Destination.Address != "" {
		resp.Destination = &aliasResponse{Address: f.Destination.Address, Name: f.Destination.Name}
	}
	resp.Entrypoint = f.Entrypoint
	if f.Transfers == nil {
		return
	}
	recipients := make([]recipientResponse, 0, len(f.Transfers.Recipients))
	for _, r := range f.Transfers.Recipients {
		recipients = append(recipients, recipientResponse{Address: r.Address, Amount: r.Amount})
	}
	resp.Transfers = &transfersResponse{
		Sender:      f.Transfers.Sender,
		Recipients:  recipients,
		TotalAmount: f.Transfers.TotalAmount,
		Contract:    f.Transfers.Contract,
		TokenID:     f.Transfers.TokenID,
		Standard:    string(f.Transfers.Standard),
		AssetSlug:   f.Transfers.AssetSlug,
	}
}

func aliasPtr(a *model.Alias) *aliasResponse {
	if a == nil {
		return nil
	}
	return &aliasResponse{Address: a.Address, Name: a.Name}
}

func toCursorResponse(c *model.Cursor) *cursorResponse {
	if c == nil {
		return nil
	}
	return &cursorResponse{Level: c.Level, Timestamp: c.Timestamp, Hash: c.Hash}
}

// ItemView renders a feed entry in its JSON response shape.
func ItemView(item model.UserHistoryItem, allowZero bool) any {
	return toHistoryItemResponse(item, allowZero)
}

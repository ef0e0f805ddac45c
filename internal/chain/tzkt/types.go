package tzkt

import (
	"encoding/json"
	"time"

	"github.com/mavryk-network/activity-history/internal/domain/model"
)

type Alias struct {
	Alias   string `json:"alias,omitempty"`
	Address string `json:"address"`
}

type Parameter struct {
	Entrypoint string          `json:"entrypoint"`
	Value      json.RawMessage `json:"value,omitempty"`
}

// Operation is the indexer's wire representation of any operation kind.
// Fields absent for a kind decode to their zero value.
type Operation struct {
	Type               string     `json:"type"`
	ID                 int64      `json:"id"`
	Level              int64      `json:"level"`
	Timestamp          time.Time  `json:"timestamp"`
	Hash               string     `json:"hash"`
	Sender             *Alias     `json:"sender,omitempty"`
	Target             *Alias     `json:"target,omitempty"`
	Initiator          *Alias     `json:"initiator,omitempty"`
	Amount             int64      `json:"amount"`
	BakerFee           int64      `json:"bakerFee"`
	StorageFee         int64      `json:"storageFee"`
	AllocationFee      int64      `json:"allocationFee"`
	Status             string     `json:"status"`
	Parameter          *Parameter `json:"parameter,omitempty"`
	PrevDelegate       *Alias     `json:"prevDelegate,omitempty"`
	NewDelegate        *Alias     `json:"newDelegate,omitempty"`
	OriginatedContract *Alias     `json:"originatedContract,omitempty"`
	ContractBalance    int64      `json:"contractBalance"`
}

// Contract is the subset of contract metadata needed to detect its token standard.
type Contract struct {
	Address string   `json:"address"`
	Kind    string   `json:"kind"`
	Tzips   []string `json:"tzips"`
}

// Standard maps the contract's declared TZIP interfaces to a token standard.
// Contracts that do not declare FA2 are treated as FA1.2.
func (c Contract) Standard() model.TokenStandard {
	for _, tzip := range c.Tzips {
		if tzip == "fa2" {
			return model.StandardFA2
		}
	}
	return model.StandardFA12
}

func (op Operation) toModel() model.RawOperation {
	raw := model.RawOperation{
		ID:                 op.ID,
		Level:              op.Level,
		Hash:               op.Hash,
		Timestamp:          op.Timestamp,
		Kind:               model.OperationKind(op.Type),
		Target:             op.Target.toModel(),
		Initiator:          op.Initiator.toModel(),
		Amount:             op.Amount,
		BakerFee:           op.BakerFee,
		StorageFee:         op.StorageFee,
		AllocationFee:      op.AllocationFee,
		Status:             model.OperationStatus(op.Status),
		PrevDelegate:       op.PrevDelegate.toModel(),
		NewDelegate:        op.NewDelegate.toModel(),
		OriginatedContract: op.OriginatedContract.toModel(),
		ContractBalance:    op.ContractBalance,
	}
	if sender := op.Sender.toModel(); sender != nil {
		raw.Sender = *sender
	}
	if op.Parameter != nil {
		raw.Parameter = &model.Parameter{
			Entrypoint: op.Parameter.Entrypoint,
			Value:      op.Parameter.Value,
		}
	}
	return raw
}

func (a *Alias) toModel() *model.Alias {
	if a == nil {
		return nil
	}
	return &model.Alias{Address: a.Address, Name: a.Alias}
}

func toModelOperations(ops []Operation) []model.RawOperation {
	out := make([]model.RawOperation, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.toModel())
	}
	return out
}

package model

import (
	"encoding/json"
	"time"
)

// Alias is an address as reported by the indexer, with its optional display name.
type Alias struct {
	Address string `json:"address"`
	Name    string `json:"alias,omitempty"`
}

// Parameter is the contract call payload of a transaction.
// Value is kept raw because its shape depends on the entrypoint and token standard.
type Parameter struct {
	Entrypoint string          `json:"entrypoint"`
	Value      json.RawMessage `json:"value,omitempty"`
}

// RawOperation is one operation record as received from the indexer.
// It is never mutated after decoding.
type RawOperation struct {
	ID            int64
	Level         int64
	Hash          string
	Timestamp     time.Time
	Kind          OperationKind
	Sender        Alias
	Target        *Alias
	Initiator     *Alias
	Amount        int64
	BakerFee      int64
	StorageFee    int64
	AllocationFee int64
	Status        OperationStatus
	Parameter     *Parameter

	// delegation
	PrevDelegate *Alias
	NewDelegate  *Alias

	// origination
	OriginatedContract *Alias
	ContractBalance    int64
}

// TargetAddress returns the target address or "" when the operation has none.
func (op RawOperation) TargetAddress() string {
	if op.Target == nil {
		return ""
	}
	return op.Target.Address
}

// Entrypoint returns the called entrypoint or "" for plain transfers.
func (op RawOperation) Entrypoint() string {
	if op.Parameter == nil {
		return ""
	}
	return op.Parameter.Entrypoint
}

// OperationsGroup holds every operation sharing one hash, newest ID first.
type OperationsGroup struct {
	Hash       string
	Operations []RawOperation
}

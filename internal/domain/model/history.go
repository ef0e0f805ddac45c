package model

import "time"

type HistoryItemType string

const (
	TypeTransferTo   HistoryItemType = "transfer_to"
	TypeTransferFrom HistoryItemType = "transfer_from"
	TypeDelegation   HistoryItemType = "delegation"
	TypeInteraction  HistoryItemType = "interaction"
	TypeOrigination  HistoryItemType = "origination"
	TypeReveal       HistoryItemType = "reveal"
	TypeSwap         HistoryItemType = "swap"
	TypeOther        HistoryItemType = "other"
)

func (t HistoryItemType) String() string {
	return string(t)
}

// TransferRecipient is one receiving leg of a token transfer.
type TransferRecipient struct {
	Address string
	Amount  string
}

// TokenTransferSummary describes the asset movement of one operation.
type TokenTransferSummary struct {
	Sender      string
	Recipients  []TransferRecipient
	TotalAmount string
	Contract    string
	TokenID     string
	Standard    TokenStandard
	AssetSlug   string
}

// HasRecipient reports whether address receives any leg of the transfer.
func (s *TokenTransferSummary) HasRecipient(address string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Recipients {
		if r.Address == address {
			return true
		}
	}
	return false
}

// ItemBase carries the fields shared by every history item variant.
// Amount is a signed decimal integer from the viewing account's perspective.
type ItemBase struct {
	ID            int64
	Level         int64
	Hash          string
	Source        Alias
	Status        OperationStatus
	Amount        string
	AssetSlug     string
	BakerFee      int64
	StorageFee    int64
	AllocationFee int64
	Timestamp     time.Time
	Index         int
}

// HistoryItem is the classified projection of one raw operation.
// The set of implementations is closed; switch on the concrete type.
type HistoryItem interface {
	Type() HistoryItemType
	Base() ItemBase
	historyItem()
}

// TransferFields are shared by transfer-like variants.
type TransferFields struct {
	Destination Alias
	Transfers   *TokenTransferSummary
	Entrypoint  string
}

type TransferTo struct {
	ItemBase
	TransferFields
}

type TransferFrom struct {
	ItemBase
	TransferFields
}

type Swap struct {
	ItemBase
	TransferFields
}

type Interaction struct {
	ItemBase
	TransferFields
}

type Delegation struct {
	ItemBase
	PrevDelegate *Alias
	NewDelegate  *Alias
}

type Origination struct {
	ItemBase
	OriginatedContract *Alias
	ContractBalance    int64
}

type Reveal struct {
	ItemBase
}

type Other struct {
	ItemBase
	Name string
}

func (TransferTo) Type() HistoryItemType   { return TypeTransferTo }
func (TransferFrom) Type() HistoryItemType { return TypeTransferFrom }
func (Swap) Type() HistoryItemType         { return TypeSwap }
func (Interaction) Type() HistoryItemType  { return TypeInteraction }
func (Delegation) Type() HistoryItemType   { return TypeDelegation }
func (Origination) Type() HistoryItemType  { return TypeOrigination }
func (Reveal) Type() HistoryItemType       { return TypeReveal }
func (Other) Type() HistoryItemType        { return TypeOther }

func (i TransferTo) Base() ItemBase   { return i.ItemBase }
func (i TransferFrom) Base() ItemBase { return i.ItemBase }
func (i Swap) Base() ItemBase         { return i.ItemBase }
func (i Interaction) Base() ItemBase  { return i.ItemBase }
func (i Delegation) Base() ItemBase   { return i.ItemBase }
func (i Origination) Base() ItemBase  { return i.ItemBase }
func (i Reveal) Base() ItemBase       { return i.ItemBase }
func (i Other) Base() ItemBase        { return i.ItemBase }

func (TransferTo) historyItem()   {}
func (TransferFrom) historyItem() {}
func (Swap) historyItem()         {}
func (Interaction) historyItem()  {}
func (Delegation) historyItem()   {}
func (Origination) historyItem()  {}
func (Reveal) historyItem()       {}
func (Other) historyItem()        {}

// TransfersOf returns the token-transfer summary of transfer-like items.
func TransfersOf(item HistoryItem) *TokenTransferSummary {
	switch v := item.(type) {
	case TransferTo:
		return v.Transfers
	case TransferFrom:
		return v.Transfers
	case Swap:
		return v.Transfers
	case Interaction:
		return v.Transfers
	default:
		return nil
	}
}

// UserHistoryItem is one entry of the history feed, built from one operations group.
// FirstOperation and OldestOperation anchor pagination.
type UserHistoryItem struct {
	Type            HistoryItemType
	Hash            string
	AddedAt         time.Time
	Status          OperationStatus
	Operations      []HistoryItem
	IsGroupedOp     bool
	FirstOperation  RawOperation
	OldestOperation RawOperation
}

// MoneyDiff is the signed balance change of one asset.
type MoneyDiff struct {
	AssetSlug string
	Diff      string
}

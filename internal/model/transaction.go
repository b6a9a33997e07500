// Package model holds the data types shared across the demurrage accounting services.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NanoErgScale is the number of base units (nanoERG) per display unit (ERG).
const NanoErgScale = 9

// TransactionRef is a paginated ledger entry: enough to place a transaction
// on the chain without its full input/output set.
type TransactionRef struct {
	ID              string
	InclusionHeight uint64
	TimestampMillis int64
}

// TransactionEntry is a single input or output of a transaction.
type TransactionEntry struct {
	Address string
	Value   int64
}

// Transaction is the full detail of a confirmed transaction as reported by
// the chain indexer. Immutable once confirmed; never mutated here.
type Transaction struct {
	ID              string
	InclusionHeight uint64
	TimestampMillis int64
	Inputs          []TransactionEntry
	Outputs         []TransactionEntry
}

// Timestamp converts the millisecond timestamp to UTC time.
func (t Transaction) Timestamp() time.Time {
	return time.UnixMilli(t.TimestampMillis).UTC()
}

// TransferDirection of a transaction relative to the tracked wallet.
type TransferDirection string

const (
	DirectionInbound  TransferDirection = "inbound"
	DirectionOutbound TransferDirection = "outbound"
	DirectionUnknown  TransferDirection = "unknown"
)

// ClassifiedTransfer is a transaction reduced to its meaning for the tracked
// wallet: direction, display-unit amount and placement. Derived per
// aggregation pass, never persisted.
type ClassifiedTransfer struct {
	TxID           string
	Direction      TransferDirection
	Amount         decimal.Decimal
	Height         uint64
	Timestamp      time.Time
	RecipientCount int
	Verified       bool
}

// NanoToErg converts a base-unit amount to ERG without going through floats.
func NanoToErg(nano int64) decimal.Decimal {
	return decimal.New(nano, -NanoErgScale)
}

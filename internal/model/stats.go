package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WindowName identifies a trailing aggregation window.
type WindowName string

const (
	Window24h     WindowName = "24h"
	Window7d      WindowName = "7d"
	Window30d     WindowName = "30d"
	WindowAllTime WindowName = "allTime"
)

// WindowNames returns all windows in ascending span order.
func WindowNames() []WindowName {
	return []WindowName{Window24h, Window7d, Window30d, WindowAllTime}
}

// Duration returns the window span. ok is false for the unbounded all-time window.
func (w WindowName) Duration() (d time.Duration, ok bool) {
	switch w {
	case Window24h:
		return 24 * time.Hour, true
	case Window7d:
		return 7 * 24 * time.Hour, true
	case Window30d:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// WindowBucket holds the aggregates of one trailing window. Recomputed fresh
// on every aggregation pass.
type WindowBucket struct {
	Window              WindowName
	VerifiedInflowTotal decimal.Decimal
	OutflowTotal        decimal.Decimal
	InflowSamples       int
	OutflowSamples      int
}

// DistributionEvent is an outbound transfer interpreted as a payout round.
type DistributionEvent struct {
	TxID           string
	Timestamp      time.Time
	TotalAmount    decimal.Decimal
	RecipientCount int
}

// DistributionEstimate is a forward-looking projection, not a guarantee.
type DistributionEstimate struct {
	Timestamp time.Time
	Amount    decimal.Decimal
}

// TransferSummary is a compact transfer record for recent-activity lists.
type TransferSummary struct {
	TxID      string
	Amount    decimal.Decimal
	Timestamp time.Time
	Height    uint64
	Verified  bool
}

// APIStatus tells the caller how complete the underlying ledger walk was, so
// degraded results can be judged for confidence.
type APIStatus struct {
	ProcessedTransactions int
	ErrorCount            int
	CompletionPercent     float64
}

// WalletStats is the wallet-statistics result consumed by the API layer.
type WalletStats struct {
	Balance                   decimal.Decimal
	RecentInbound             []TransferSummary
	RecentOutbound            []TransferSummary
	Windows                   map[WindowName]WindowBucket
	LastDistribution          *DistributionEvent
	NextEstimatedDistribution *DistributionEstimate
	Status                    APIStatus
}

// Epoch is a fixed-size contiguous height range used as an accounting bucket.
type Epoch struct {
	Index       int64
	StartHeight uint64
	EndHeight   uint64
	Demurrage   decimal.Decimal
	BlockCount  uint64
	IsCurrent   bool
}

// EpochStats is the epoch-statistics result consumed by the API layer.
type EpochStats struct {
	CurrentEpoch             int64
	CurrentHeight            uint64
	CurrentEpochStartHeight  uint64
	BlocksInCurrentEpoch     uint64
	BlocksLeftInEpoch        uint64
	TotalDemurrage           decimal.Decimal
	AverageDemurragePerEpoch decimal.Decimal
	ProjectedCurrentEpoch    decimal.Decimal
	Epochs                   []Epoch
}

// HashrateSample is one point of a miner's or the pool's hashrate series.
type HashrateSample struct {
	Timestamp time.Time
	Hashrate  float64
}

// PeriodEarnings is a per-window earnings estimate. Estimated is always true:
// these figures are proportional projections, not ledger records.
type PeriodEarnings struct {
	Amount       decimal.Decimal
	SharePercent float64
	Estimated    bool
}

// MinerPayment is a payout observed from the demurrage wallet to a miner.
type MinerPayment struct {
	TxID      string
	Timestamp time.Time
	Amount    decimal.Decimal
}

// MinerEarnings is the per-miner demurrage-earnings result.
type MinerEarnings struct {
	Address              string
	CurrentHashrate      float64
	CurrentSharePercent  float64
	Earnings             map[WindowName]PeriodEarnings
	RecentPayments       []MinerPayment
	ProjectedNextPayment *DistributionEstimate
	Status               APIStatus
}

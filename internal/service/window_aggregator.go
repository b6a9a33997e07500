package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sigmapool/stats-backend/internal/model"
)

// distributionSampleSize bounds how many recent payout rounds feed the
// interval and amount estimates.
const distributionSampleSize = 5

// WindowAggregation is the result of bucketing a transfer set into the
// trailing windows.
type WindowAggregation struct {
	Windows                   map[model.WindowName]model.WindowBucket
	LastDistribution          *model.DistributionEvent
	NextEstimatedDistribution *model.DistributionEstimate
}

// AggregateWindows buckets verified inflows and all outflows into the trailing
// windows and derives the distribution projections. Pure: the transfer slice
// is not mutated.
func AggregateWindows(transfers []model.ClassifiedTransfer, now time.Time) WindowAggregation {
	windows := make(map[model.WindowName]model.WindowBucket, len(model.WindowNames()))
	for _, name := range model.WindowNames() {
		bucket := model.WindowBucket{
			Window:              name,
			VerifiedInflowTotal: decimal.Zero,
			OutflowTotal:        decimal.Zero,
		}

		duration, bounded := name.Duration()
		cutoff := now.Add(-duration)

		for _, t := range transfers {
			if bounded && t.Timestamp.Before(cutoff) {
				continue
			}
			switch {
			case t.Direction == model.DirectionInbound && t.Verified:
				bucket.VerifiedInflowTotal = bucket.VerifiedInflowTotal.Add(t.Amount)
				bucket.InflowSamples++
			case t.Direction == model.DirectionOutbound:
				bucket.OutflowTotal = bucket.OutflowTotal.Add(t.Amount)
				bucket.OutflowSamples++
			}
		}

		windows[name] = bucket
	}

	last, next := estimateDistributions(transfers)

	return WindowAggregation{
		Windows:                   windows,
		LastDistribution:          last,
		NextEstimatedDistribution: next,
	}
}

// estimateDistributions derives the last payout round and a projection of the
// next one. The projection needs at least two outbound events; its interval is
// the mean of consecutive deltas across the most recent rounds and its amount
// is the mean of the most recent verified inflow amounts.
func estimateDistributions(transfers []model.ClassifiedTransfer) (*model.DistributionEvent, *model.DistributionEstimate) {
	var outbound []model.ClassifiedTransfer
	for _, t := range transfers {
		if t.Direction == model.DirectionOutbound {
			outbound = append(outbound, t)
		}
	}
	if len(outbound) == 0 {
		return nil, nil
	}

	sort.Slice(outbound, func(a, b int) bool {
		return outbound[a].Timestamp.After(outbound[b].Timestamp)
	})

	last := &model.DistributionEvent{
		TxID:           outbound[0].TxID,
		Timestamp:      outbound[0].Timestamp,
		TotalAmount:    outbound[0].Amount,
		RecipientCount: outbound[0].RecipientCount,
	}

	if len(outbound) < 2 {
		return last, nil
	}

	recent := outbound
	if len(recent) > distributionSampleSize {
		recent = recent[:distributionSampleSize]
	}

	var totalDelta time.Duration
	for i := 0; i < len(recent)-1; i++ {
		totalDelta += recent[i].Timestamp.Sub(recent[i+1].Timestamp)
	}
	meanInterval := totalDelta / time.Duration(len(recent)-1)

	estimate := &model.DistributionEstimate{
		Timestamp: last.Timestamp.Add(meanInterval),
		Amount:    meanVerifiedInflow(transfers),
	}
	return last, estimate
}

// meanVerifiedInflow averages the most recent verified inbound amounts.
func meanVerifiedInflow(transfers []model.ClassifiedTransfer) decimal.Decimal {
	var inbound []model.ClassifiedTransfer
	for _, t := range transfers {
		if t.Direction == model.DirectionInbound && t.Verified {
			inbound = append(inbound, t)
		}
	}
	if len(inbound) == 0 {
		return decimal.Zero
	}

	sort.Slice(inbound, func(a, b int) bool {
		return inbound[a].Timestamp.After(inbound[b].Timestamp)
	})
	if len(inbound) > distributionSampleSize {
		inbound = inbound[:distributionSampleSize]
	}

	total := decimal.Zero
	for _, t := range inbound {
		total = total.Add(t.Amount)
	}
	return total.Div(decimal.NewFromInt(int64(len(inbound))))
}

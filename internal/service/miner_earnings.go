package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sigmapool/stats-backend/internal/cache"
	"github.com/sigmapool/stats-backend/internal/model"
)

const (
	minerEarningsCachePrefix = "miner_earnings:"
	// MinerEarningsTTL is how long a computed per-miner result stays fresh.
	MinerEarningsTTL = 10 * time.Minute
)

// MinerEarningsService estimates a miner's demurrage earnings from their
// historical share of total pool hashpower. Figures are proportional
// projections, not ledger records.
type MinerEarningsService struct {
	collector *TransferCollector
	hashrates HashrateRepository
	results   *cache.ResultCache[string, model.MinerEarnings]
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewMinerEarningsService builds the miner earnings service.
func NewMinerEarningsService(
	collector *TransferCollector,
	hashrates HashrateRepository,
	results *cache.ResultCache[string, model.MinerEarnings],
	logger *zap.Logger,
) *MinerEarningsService {
	return &MinerEarningsService{
		collector: collector,
		hashrates: hashrates,
		results:   results,
		ttl:       MinerEarningsTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// MinerEarnings returns the earnings estimate for one miner, served from
// cache within the TTL. Returns model.ErrMinerNotFound for an address with no
// hashrate samples.
func (s *MinerEarningsService) MinerEarnings(ctx context.Context, address string) (model.MinerEarnings, error) {
	key := minerEarningsCachePrefix + address
	return s.results.GetOrCompute(ctx, key, s.ttl, func(ctx context.Context) (model.MinerEarnings, error) {
		return s.compute(ctx, address)
	})
}

func (s *MinerEarningsService) compute(ctx context.Context, address string) (model.MinerEarnings, error) {
	minerHashrate, err := s.hashrates.LatestMinerHashrate(ctx, address)
	if err != nil {
		return model.MinerEarnings{}, fmt.Errorf("latest hashrate for %s: %w", address, err)
	}

	currentShare := 0.0
	poolHashrate, err := s.hashrates.LatestPoolHashrate(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		return model.MinerEarnings{}, ctx.Err()
	case err != nil:
		s.logger.Warn("pool hashrate fetch failed, assuming zero share", zap.Error(err))
	case poolHashrate > 0:
		currentShare = clampShare(minerHashrate / poolHashrate)
	}

	set, err := s.collector.Collect(ctx)
	if err != nil {
		return model.MinerEarnings{}, err
	}

	now := s.now().UTC()
	aggregation := AggregateWindows(set.Transfers, now)

	earnings := make(map[model.WindowName]model.PeriodEarnings, len(model.WindowNames()))
	for _, window := range model.WindowNames() {
		share := s.windowShare(ctx, address, window, now, currentShare)
		verified := aggregation.Windows[window].VerifiedInflowTotal

		earnings[window] = model.PeriodEarnings{
			Amount:       verified.Mul(decimal.NewFromFloat(share)),
			SharePercent: share * 100,
			Estimated:    true,
		}
	}

	var projected *model.DistributionEstimate
	if next := aggregation.NextEstimatedDistribution; next != nil {
		projected = &model.DistributionEstimate{
			Timestamp: next.Timestamp,
			Amount:    next.Amount.Mul(decimal.NewFromFloat(currentShare)),
		}
	}

	return model.MinerEarnings{
		Address:              address,
		CurrentHashrate:      minerHashrate,
		CurrentSharePercent:  currentShare * 100,
		Earnings:             earnings,
		RecentPayments:       minerPayments(set.Transactions, set.Transfers, address),
		ProjectedNextPayment: projected,
		Status:               set.Status,
	}, nil
}

// windowShare estimates the miner's average share over one window from the
// stored sample series, falling back to the current instantaneous share when
// either series is unavailable.
func (s *MinerEarningsService) windowShare(
	ctx context.Context,
	address string,
	window model.WindowName,
	now time.Time,
	currentShare float64,
) float64 {
	var since time.Time
	if duration, bounded := window.Duration(); bounded {
		since = now.Add(-duration)
	}

	minerSamples, err := s.hashrates.MinerHashrateSince(ctx, address, since)
	if err != nil {
		s.logger.Warn("miner sample fetch failed, using current share",
			zap.String("window", string(window)),
			zap.Error(err))
		return currentShare
	}
	poolSamples, err := s.hashrates.PoolHashrateSince(ctx, since)
	if err != nil {
		s.logger.Warn("pool sample fetch failed, using current share",
			zap.String("window", string(window)),
			zap.Error(err))
		return currentShare
	}

	return EstimateShare(minerSamples, poolSamples, currentShare)
}

// minerPayments extracts payouts from the wallet to the miner, newest first.
func minerPayments(transactions []model.Transaction, transfers []model.ClassifiedTransfer, address string) []model.MinerPayment {
	outbound := make(map[string]struct{}, len(transfers))
	for _, t := range transfers {
		if t.Direction == model.DirectionOutbound {
			outbound[t.TxID] = struct{}{}
		}
	}

	var payments []model.MinerPayment
	for _, tx := range transactions {
		if _, ok := outbound[tx.ID]; !ok {
			continue
		}
		var paid int64
		for _, out := range tx.Outputs {
			if out.Address == address {
				paid += out.Value
			}
		}
		if paid == 0 {
			continue
		}
		payments = append(payments, model.MinerPayment{
			TxID:      tx.ID,
			Timestamp: tx.Timestamp(),
			Amount:    model.NanoToErg(paid),
		})
	}

	sort.Slice(payments, func(a, b int) bool {
		return payments[a].Timestamp.After(payments[b].Timestamp)
	})
	if len(payments) > recentTransferCount {
		payments = payments[:recentTransferCount]
	}
	return payments
}

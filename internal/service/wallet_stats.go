package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sigmapool/stats-backend/internal/cache"
	"github.com/sigmapool/stats-backend/internal/model"
)

const (
	walletStatsCacheKey = "wallet_stats"
	// WalletStatsTTL is how long a computed wallet result stays fresh.
	WalletStatsTTL = 5 * time.Minute

	recentTransferCount = 10
)

// WalletStatsService produces the demurrage wallet's statistics: balance,
// recent transfers, windowed verified totals and distribution projections.
type WalletStatsService struct {
	collector     *TransferCollector
	ledger        Ledger
	walletAddress string
	results       *cache.ResultCache[string, model.WalletStats]
	ttl           time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewWalletStatsService builds the wallet statistics service.
func NewWalletStatsService(
	collector *TransferCollector,
	ledger Ledger,
	walletAddress string,
	results *cache.ResultCache[string, model.WalletStats],
	logger *zap.Logger,
) *WalletStatsService {
	return &WalletStatsService{
		collector:     collector,
		ledger:        ledger,
		walletAddress: walletAddress,
		results:       results,
		ttl:           WalletStatsTTL,
		logger:        logger,
		now:           time.Now,
	}
}

// WalletStats returns the wallet statistics, served from cache within the TTL.
func (s *WalletStatsService) WalletStats(ctx context.Context) (model.WalletStats, error) {
	return s.results.GetOrCompute(ctx, walletStatsCacheKey, s.ttl, s.compute)
}

func (s *WalletStatsService) compute(ctx context.Context) (model.WalletStats, error) {
	balance := decimal.Zero
	nano, err := s.ledger.Balance(ctx, s.walletAddress)
	switch {
	case err != nil && ctx.Err() != nil:
		return model.WalletStats{}, ctx.Err()
	case err != nil:
		s.logger.Warn("balance fetch failed, reporting zero balance", zap.Error(err))
	default:
		balance = model.NanoToErg(nano)
	}

	set, err := s.collector.Collect(ctx)
	if err != nil {
		return model.WalletStats{}, err
	}

	aggregation := AggregateWindows(set.Transfers, s.now().UTC())

	return model.WalletStats{
		Balance:                   balance,
		RecentInbound:             recentTransfers(set.Transfers, model.DirectionInbound),
		RecentOutbound:            recentTransfers(set.Transfers, model.DirectionOutbound),
		Windows:                   aggregation.Windows,
		LastDistribution:          aggregation.LastDistribution,
		NextEstimatedDistribution: aggregation.NextEstimatedDistribution,
		Status:                    set.Status,
	}, nil
}

// recentTransfers lists the newest transfers in one direction, capped.
func recentTransfers(transfers []model.ClassifiedTransfer, direction model.TransferDirection) []model.TransferSummary {
	var matched []model.ClassifiedTransfer
	for _, t := range transfers {
		if t.Direction == direction {
			matched = append(matched, t)
		}
	}

	sort.Slice(matched, func(a, b int) bool {
		return matched[a].Timestamp.After(matched[b].Timestamp)
	})
	if len(matched) > recentTransferCount {
		matched = matched[:recentTransferCount]
	}

	summaries := make([]model.TransferSummary, 0, len(matched))
	for _, t := range matched {
		summaries = append(summaries, model.TransferSummary{
			TxID:      t.TxID,
			Amount:    t.Amount,
			Timestamp: t.Timestamp,
			Height:    t.Height,
			Verified:  t.Verified,
		})
	}
	return summaries
}

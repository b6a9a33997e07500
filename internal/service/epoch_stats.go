package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sigmapool/stats-backend/internal/cache"
	"github.com/sigmapool/stats-backend/internal/model"
)

const (
	epochStatsCacheKey = "epoch_stats"
	// EpochStatsTTL is how long a computed epoch result stays fresh. Epochs
	// move slowly, so this is much longer than the wallet TTL.
	EpochStatsTTL = 30 * time.Minute
)

// EpochStatsService buckets verified demurrage by epoch and projects the
// current epoch's total.
type EpochStatsService struct {
	collector *TransferCollector
	ledger    Ledger
	results   *cache.ResultCache[string, model.EpochStats]
	ttl       time.Duration
	logger    *zap.Logger
}

// NewEpochStatsService builds the epoch statistics service.
func NewEpochStatsService(
	collector *TransferCollector,
	ledger Ledger,
	results *cache.ResultCache[string, model.EpochStats],
	logger *zap.Logger,
) *EpochStatsService {
	return &EpochStatsService{
		collector: collector,
		ledger:    ledger,
		results:   results,
		ttl:       EpochStatsTTL,
		logger:    logger,
	}
}

// EpochStats returns the epoch statistics, served from cache within the TTL.
func (s *EpochStatsService) EpochStats(ctx context.Context) (model.EpochStats, error) {
	return s.results.GetOrCompute(ctx, epochStatsCacheKey, s.ttl, s.compute)
}

func (s *EpochStatsService) compute(ctx context.Context) (model.EpochStats, error) {
	// Without the chain height there is no current epoch to anchor the view
	// on; this is the one upstream failure that cannot degrade.
	height, err := s.ledger.NetworkHeight(ctx)
	if err != nil {
		return model.EpochStats{}, fmt.Errorf("fetch network height: %w", err)
	}

	set, err := s.collector.Collect(ctx)
	if err != nil {
		return model.EpochStats{}, err
	}

	stats := AggregateEpochs(set.Transfers, height)

	s.logger.Info("epoch aggregation complete",
		zap.Int64("current_epoch", stats.CurrentEpoch),
		zap.Uint64("current_height", height),
		zap.Int("epochs", len(stats.Epochs)))

	return stats, nil
}

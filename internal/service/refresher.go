package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sigmapool/stats-backend/internal/clock"
)

const (
	defaultRefreshInterval = 4 * time.Minute
	refreshErrorBackoff    = 30 * time.Second
)

// StatsRefresher keeps the wallet and epoch results warm by recomputing them
// on an interval slightly shorter than their cache TTLs, so interactive
// callers rarely pay for a full ledger walk.
type StatsRefresher struct {
	wallet   WalletStatsProvider
	epochs   EpochStatsProvider
	metrics  RefresherMetrics
	interval time.Duration
	backoff  time.Duration
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration) error
}

// NewStatsRefresher builds the background refresher.
func NewStatsRefresher(
	wallet WalletStatsProvider,
	epochs EpochStatsProvider,
	metrics RefresherMetrics,
	interval time.Duration,
	logger *zap.Logger,
) *StatsRefresher {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &StatsRefresher{
		wallet:   wallet,
		epochs:   epochs,
		metrics:  metrics,
		interval: interval,
		backoff:  refreshErrorBackoff,
		logger:   logger,
		sleep:    clock.SleepWithContext,
	}
}

// Run refreshes until ctx ends. A failed cycle backs off briefly and tries
// again; it never stops the loop.
func (s *StatsRefresher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("refresh cycle failed, backing off",
				zap.Error(err),
				zap.Duration("sleep", s.backoff))
			if sleepErr := s.sleep(ctx, s.backoff); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		if err := s.sleep(ctx, s.interval); err != nil {
			return err
		}
	}
}

func (s *StatsRefresher) refresh(ctx context.Context) error {
	started := time.Now()
	walletStats, err := s.wallet.WalletStats(ctx)
	s.metrics.ObserveCycle("wallet", err, started)
	if err != nil {
		return err
	}
	s.metrics.SetLedgerErrors("wallet", walletStats.Status.ErrorCount)

	started = time.Now()
	epochStats, err := s.epochs.EpochStats(ctx)
	s.metrics.ObserveCycle("epochs", err, started)
	if err != nil {
		return err
	}

	s.logger.Info("stats refreshed",
		zap.Int("wallet_error_count", walletStats.Status.ErrorCount),
		zap.Int64("current_epoch", epochStats.CurrentEpoch))
	return nil
}

package service

import (
	"context"
	"time"

	"github.com/sigmapool/stats-backend/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Ledger fetches the demurrage wallet's on-chain history from the chain
	// indexer.
	Ledger interface {
		FetchAllTransactions(ctx context.Context, address string, maxCount int) ([]model.TransactionRef, int, error)
		TransactionByID(ctx context.Context, txID string) (model.Transaction, error)
		Balance(ctx context.Context, address string) (int64, error)
		NetworkHeight(ctx context.Context) (uint64, error)
	}

	// PoolBlockRepository answers which block heights the pool itself found.
	PoolBlockRepository interface {
		PoolBlockHeights(ctx context.Context, heights []uint64) (map[uint64]struct{}, error)
	}

	// HashrateRepository serves miner and pool-wide hashrate sample series.
	HashrateRepository interface {
		LatestMinerHashrate(ctx context.Context, address string) (float64, error)
		LatestPoolHashrate(ctx context.Context) (float64, error)
		MinerHashrateSince(ctx context.Context, address string, since time.Time) ([]model.HashrateSample, error)
		PoolHashrateSince(ctx context.Context, since time.Time) ([]model.HashrateSample, error)
	}

	// WalletStatsProvider computes (or serves cached) wallet statistics.
	WalletStatsProvider interface {
		WalletStats(ctx context.Context) (model.WalletStats, error)
	}

	// EpochStatsProvider computes (or serves cached) epoch statistics.
	EpochStatsProvider interface {
		EpochStats(ctx context.Context) (model.EpochStats, error)
	}

	// RefresherMetrics records background refresh cycle outcomes.
	RefresherMetrics interface {
		ObserveCycle(result string, err error, started time.Time)
		SetLedgerErrors(result string, errorCount int)
	}
)

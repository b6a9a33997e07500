package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sigmapool/stats-backend/internal/explorer"
	"github.com/sigmapool/stats-backend/internal/model"
	"github.com/sigmapool/stats-backend/pkg/workerpool"
)

const (
	defaultMaxTransactions = 2000
	defaultDetailWorkers   = 32
)

// TransferSet is one pass over the wallet's ledger: every transfer classified
// and verified, plus a confidence indicator describing how complete the walk
// was.
type TransferSet struct {
	Transfers    []model.ClassifiedTransfer
	Transactions []model.Transaction
	Status       model.APIStatus
}

// TransferCollector walks the demurrage wallet's ledger, classifies every
// transfer and marks verified demurrage against the pool's block records. The
// walk degrades instead of failing: missing details are skipped, failed pages
// and chunks are counted into the status block.
type TransferCollector struct {
	ledger          Ledger
	blocks          *PoolBlockIndex
	walletAddress   string
	maxTransactions int
	detailWorkers   int
	logger          *zap.Logger
}

// NewTransferCollector builds a collector for the given wallet.
func NewTransferCollector(
	ledger Ledger,
	blocks *PoolBlockIndex,
	walletAddress string,
	maxTransactions int,
	detailWorkers int,
	logger *zap.Logger,
) *TransferCollector {
	if maxTransactions <= 0 {
		maxTransactions = defaultMaxTransactions
	}
	if detailWorkers <= 0 {
		detailWorkers = defaultDetailWorkers
	}
	return &TransferCollector{
		ledger:          ledger,
		blocks:          blocks,
		walletAddress:   walletAddress,
		maxTransactions: maxTransactions,
		detailWorkers:   detailWorkers,
		logger:          logger,
	}
}

// Collect performs one full ledger pass. The error is non-nil only when ctx
// ends the pass; upstream trouble shrinks the result instead.
func (c *TransferCollector) Collect(ctx context.Context) (TransferSet, error) {
	refs, pageErrors, err := c.ledger.FetchAllTransactions(ctx, c.walletAddress, c.maxTransactions)
	if err != nil {
		return TransferSet{}, err
	}

	var (
		mu           sync.Mutex
		transactions = make([]model.Transaction, 0, len(refs))
		detailErrors int
	)

	err = workerpool.Process(ctx, c.detailWorkers, refs, func(ctx context.Context, ref model.TransactionRef) error {
		tx, err := c.ledger.TransactionByID(ctx, ref.ID)
		switch {
		case errors.Is(err, explorer.ErrNotFound):
			// Pruned or not yet indexed; skip quietly.
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("transaction detail fetch failed, skipping",
				zap.String("tx_id", ref.ID),
				zap.Error(err))
			mu.Lock()
			detailErrors++
			mu.Unlock()
			return nil
		}

		mu.Lock()
		transactions = append(transactions, tx)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return TransferSet{}, err
	}

	// The pool fills the slice in completion order; restore ledger order.
	sort.Slice(transactions, func(a, b int) bool {
		return transactions[a].TimestampMillis > transactions[b].TimestampMillis
	})

	transfers := make([]model.ClassifiedTransfer, 0, len(transactions))
	inboundHeights := make([]uint64, 0, len(transactions))
	for _, tx := range transactions {
		transfer := Classify(tx, c.walletAddress)
		if transfer.Direction == model.DirectionInbound {
			inboundHeights = append(inboundHeights, transfer.Height)
		}
		transfers = append(transfers, transfer)
	}

	verified, failedChunks, err := c.blocks.Verify(ctx, inboundHeights)
	if err != nil {
		return TransferSet{}, err
	}
	for idx := range transfers {
		if transfers[idx].Direction != model.DirectionInbound {
			continue
		}
		_, ok := verified[transfers[idx].Height]
		transfers[idx].Verified = ok
	}

	completion := 100.0
	if len(refs) > 0 {
		completion = float64(len(transactions)) / float64(len(refs)) * 100
	}

	set := TransferSet{
		Transfers:    transfers,
		Transactions: transactions,
		Status: model.APIStatus{
			ProcessedTransactions: len(transactions),
			ErrorCount:            pageErrors + detailErrors + failedChunks,
			CompletionPercent:     completion,
		},
	}

	c.logger.Info("ledger pass complete",
		zap.Int("transfers", len(transfers)),
		zap.Int("verified_heights", len(verified)),
		zap.Int("error_count", set.Status.ErrorCount))

	return set, nil
}

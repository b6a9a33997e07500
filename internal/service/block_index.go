package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sigmapool/stats-backend/pkg/workerpool"
)

const (
	defaultVerifyChunkSize   = 500
	defaultVerifyConcurrency = 4
)

// PoolBlockIndex decides which block heights belong to blocks the pool found,
// by chunked existence lookups against the pool's own records.
type PoolBlockIndex struct {
	repo        PoolBlockRepository
	logger      *zap.Logger
	chunkSize   int
	concurrency int
}

// NewPoolBlockIndex builds a block index over the pool-block store.
func NewPoolBlockIndex(repo PoolBlockRepository, logger *zap.Logger, chunkSize, concurrency int) *PoolBlockIndex {
	if chunkSize <= 0 {
		chunkSize = defaultVerifyChunkSize
	}
	if concurrency <= 0 {
		concurrency = defaultVerifyConcurrency
	}
	return &PoolBlockIndex{
		repo:        repo,
		logger:      logger,
		chunkSize:   chunkSize,
		concurrency: concurrency,
	}
}

// Verify returns the subset of heights confirmed to be pool-found blocks,
// together with the number of chunk queries that failed. A failed chunk
// contributes no heights: attribution under-reports rather than over-reports.
// The error is non-nil only when ctx ends the verification.
func (i *PoolBlockIndex) Verify(ctx context.Context, heights []uint64) (map[uint64]struct{}, int, error) {
	verified := make(map[uint64]struct{}, len(heights))
	if len(heights) == 0 {
		return verified, 0, nil
	}

	unique := make([]uint64, 0, len(heights))
	seen := make(map[uint64]struct{}, len(heights))
	for _, h := range heights {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		unique = append(unique, h)
	}

	chunks := make([][]uint64, 0, (len(unique)+i.chunkSize-1)/i.chunkSize)
	for start := 0; start < len(unique); start += i.chunkSize {
		end := start + i.chunkSize
		if end > len(unique) {
			end = len(unique)
		}
		chunks = append(chunks, unique[start:end])
	}

	var (
		mu           sync.Mutex
		failedChunks int
	)

	err := workerpool.Process(ctx, i.concurrency, chunks, func(ctx context.Context, chunk []uint64) error {
		found, err := i.repo.PoolBlockHeights(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			i.logger.Warn("pool block chunk lookup failed, treating chunk as unverified",
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			mu.Lock()
			failedChunks++
			mu.Unlock()
			return nil
		}

		mu.Lock()
		for h := range found {
			verified[h] = struct{}{}
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, failedChunks, err
	}

	return verified, failedChunks, nil
}

package service

import (
	"github.com/shopspring/decimal"

	"github.com/sigmapool/stats-backend/internal/model"
)

// Epoch indexing constants for the reference chain. Indices are anchored to
// one known (epoch, startHeight) pair and extrapolated linearly both ways.
const (
	EpochSize         uint64 = 1024
	epochAnchorIndex  int64  = 1461
	epochAnchorHeight uint64 = 1_496_064
)

// trailingEpochCount bounds how many finished epochs are materialized per
// aggregation, for cost control.
const trailingEpochCount = 10

// EpochIndex maps a block height to its epoch index.
func EpochIndex(height uint64) int64 {
	if height >= epochAnchorHeight {
		return epochAnchorIndex + int64((height-epochAnchorHeight)/EpochSize)
	}
	// Ceiling division below the anchor so the boundary lands exactly on the
	// anchor height.
	behind := epochAnchorHeight - height
	return epochAnchorIndex - int64((behind+EpochSize-1)/EpochSize)
}

// EpochStartHeight returns the first height of an epoch.
func EpochStartHeight(index int64) uint64 {
	offset := (index - epochAnchorIndex) * int64(EpochSize)
	return uint64(int64(epochAnchorHeight) + offset)
}

// AggregateEpochs buckets verified demurrage inflows by epoch over the most
// recent epochs and projects the incomplete current epoch's total.
func AggregateEpochs(transfers []model.ClassifiedTransfer, currentHeight uint64) model.EpochStats {
	currentEpoch := EpochIndex(currentHeight)
	currentStart := EpochStartHeight(currentEpoch)
	oldestEpoch := currentEpoch - trailingEpochCount

	demurrageByEpoch := make(map[int64]decimal.Decimal)
	blocksByEpoch := make(map[int64]uint64)
	for _, t := range transfers {
		if t.Direction != model.DirectionInbound || !t.Verified {
			continue
		}
		epoch := EpochIndex(t.Height)
		if epoch < oldestEpoch || epoch > currentEpoch {
			continue
		}
		total, ok := demurrageByEpoch[epoch]
		if !ok {
			total = decimal.Zero
		}
		demurrageByEpoch[epoch] = total.Add(t.Amount)
		blocksByEpoch[epoch]++
	}

	blocksElapsed := currentHeight - currentStart + 1

	stats := model.EpochStats{
		CurrentEpoch:             currentEpoch,
		CurrentHeight:            currentHeight,
		CurrentEpochStartHeight:  currentStart,
		BlocksInCurrentEpoch:     blocksElapsed,
		BlocksLeftInEpoch:        EpochSize - blocksElapsed,
		TotalDemurrage:           decimal.Zero,
		AverageDemurragePerEpoch: decimal.Zero,
		ProjectedCurrentEpoch:    decimal.Zero,
		Epochs:                   make([]model.Epoch, 0, trailingEpochCount+1),
	}

	for epoch := oldestEpoch; epoch <= currentEpoch; epoch++ {
		total, ok := demurrageByEpoch[epoch]
		if !ok {
			total = decimal.Zero
		}

		start := EpochStartHeight(epoch)
		end := start + EpochSize - 1
		isCurrent := epoch == currentEpoch
		if isCurrent {
			end = currentHeight
		}

		stats.Epochs = append(stats.Epochs, model.Epoch{
			Index:       epoch,
			StartHeight: start,
			EndHeight:   end,
			Demurrage:   total,
			BlockCount:  blocksByEpoch[epoch],
			IsCurrent:   isCurrent,
		})
		stats.TotalDemurrage = stats.TotalDemurrage.Add(total)
	}

	stats.AverageDemurragePerEpoch = stats.TotalDemurrage.Div(decimal.NewFromInt(int64(len(stats.Epochs))))

	if current, ok := demurrageByEpoch[currentEpoch]; ok && blocksElapsed > 0 {
		stats.ProjectedCurrentEpoch = current.
			Div(decimal.NewFromInt(int64(blocksElapsed))).
			Mul(decimal.NewFromInt(int64(EpochSize)))
	}

	return stats
}

package service

import (
	"sort"

	"github.com/sigmapool/stats-backend/internal/model"
)

// EstimateShare reconstructs a miner's average share of total pool hashpower
// over a period by matching each miner sample to the pool sample nearest in
// time. The pool series must be sorted ascending by timestamp. Falls back to
// fallbackShare when either series is empty. The result is always in [0, 1].
func EstimateShare(minerSamples, poolSamples []model.HashrateSample, fallbackShare float64) float64 {
	if len(minerSamples) == 0 || len(poolSamples) == 0 {
		return clampShare(fallbackShare)
	}

	var total float64
	for _, sample := range minerSamples {
		pool := nearestSample(poolSamples, sample)
		if pool.Hashrate <= 0 {
			continue
		}
		total += clampShare(sample.Hashrate / pool.Hashrate)
	}

	return clampShare(total / float64(len(minerSamples)))
}

// nearestSample returns the pool sample closest in time to target.
func nearestSample(sorted []model.HashrateSample, target model.HashrateSample) model.HashrateSample {
	idx := sort.Search(len(sorted), func(i int) bool {
		return !sorted[i].Timestamp.Before(target.Timestamp)
	})
	if idx == 0 {
		return sorted[0]
	}
	if idx == len(sorted) {
		return sorted[len(sorted)-1]
	}

	after := sorted[idx]
	before := sorted[idx-1]
	if after.Timestamp.Sub(target.Timestamp) < target.Timestamp.Sub(before.Timestamp) {
		return after
	}
	return before
}

func clampShare(share float64) float64 {
	switch {
	case share < 0:
		return 0
	case share > 1:
		return 1
	default:
		return share
	}
}

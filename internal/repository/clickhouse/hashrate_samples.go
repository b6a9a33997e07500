package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/sigmapool/stats-backend/internal/model"
)

// LatestMinerHashrate returns the most recent hashrate sample for a miner.
// Returns model.ErrMinerNotFound when the address has no samples at all.
func (r *Repository) LatestMinerHashrate(ctx context.Context, address string) (float64, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("latest_miner_hashrate", err, start)
	}()

	const query = `
SELECT hashrate
FROM miner_hashrate_samples
WHERE address = ?
ORDER BY timestamp DESC
LIMIT 1`

	rows, err := r.conn.Query(ctx, query, address)
	if err != nil {
		return 0, fmt.Errorf("query latest miner hashrate: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return 0, fmt.Errorf("iterate latest miner hashrate: %w", err)
		}
		err = model.ErrMinerNotFound
		return 0, err
	}

	var hashrate float64
	if err = rows.Scan(&hashrate); err != nil {
		return 0, fmt.Errorf("scan latest miner hashrate: %w", err)
	}
	if err = rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate latest miner hashrate: %w", err)
	}

	return hashrate, nil
}

// LatestPoolHashrate returns the most recent pool-wide hashrate sample, or
// zero when no samples exist yet.
func (r *Repository) LatestPoolHashrate(ctx context.Context) (float64, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("latest_pool_hashrate", err, start)
	}()

	const query = `
SELECT hashrate
FROM pool_hashrate_samples
ORDER BY timestamp DESC
LIMIT 1`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("query latest pool hashrate: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	var hashrate float64
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return 0, fmt.Errorf("iterate latest pool hashrate: %w", err)
		}
		return 0, nil
	}
	if err = rows.Scan(&hashrate); err != nil {
		return 0, fmt.Errorf("scan latest pool hashrate: %w", err)
	}
	if err = rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate latest pool hashrate: %w", err)
	}

	return hashrate, nil
}

// MinerHashrateSince returns a miner's hashrate samples at or after since, in
// ascending timestamp order.
func (r *Repository) MinerHashrateSince(ctx context.Context, address string, since time.Time) ([]model.HashrateSample, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("miner_hashrate_since", err, start)
	}()

	const query = `
SELECT timestamp, hashrate
FROM miner_hashrate_samples
WHERE address = ? AND timestamp >= ?
ORDER BY timestamp ASC`

	rows, err := r.conn.Query(ctx, query, address, since)
	if err != nil {
		return nil, fmt.Errorf("query miner hashrate samples: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	var samples []model.HashrateSample
	for rows.Next() {
		var sample model.HashrateSample
		if err = rows.Scan(&sample.Timestamp, &sample.Hashrate); err != nil {
			return nil, fmt.Errorf("scan miner hashrate sample: %w", err)
		}
		samples = append(samples, sample)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate miner hashrate samples: %w", err)
	}

	return samples, nil
}

// PoolHashrateSince returns pool-wide hashrate samples at or after since, in
// ascending timestamp order.
func (r *Repository) PoolHashrateSince(ctx context.Context, since time.Time) ([]model.HashrateSample, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("pool_hashrate_since", err, start)
	}()

	const query = `
SELECT timestamp, hashrate
FROM pool_hashrate_samples
WHERE timestamp >= ?
ORDER BY timestamp ASC`

	rows, err := r.conn.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query pool hashrate samples: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	var samples []model.HashrateSample
	for rows.Next() {
		var sample model.HashrateSample
		if err = rows.Scan(&sample.Timestamp, &sample.Hashrate); err != nil {
			return nil, fmt.Errorf("scan pool hashrate sample: %w", err)
		}
		samples = append(samples, sample)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool hashrate samples: %w", err)
	}

	return samples, nil
}

// InsertMinerHashrateSample records one miner hashrate observation.
func (r *Repository) InsertMinerHashrateSample(ctx context.Context, address string, at time.Time, hashrate float64) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_miner_hashrate_sample", err, start)
	}()

	const query = `INSERT INTO miner_hashrate_samples (address, timestamp, hashrate) VALUES (?, ?, ?)`

	if err = r.conn.Exec(ctx, query, address, at, hashrate); err != nil {
		return fmt.Errorf("insert miner hashrate sample: %w", err)
	}
	return nil
}

// InsertPoolHashrateSample records one pool-wide hashrate observation.
func (r *Repository) InsertPoolHashrateSample(ctx context.Context, at time.Time, hashrate float64) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_pool_hashrate_sample", err, start)
	}()

	const query = `INSERT INTO pool_hashrate_samples (timestamp, hashrate) VALUES (?, ?)`

	if err = r.conn.Exec(ctx, query, at, hashrate); err != nil {
		return fmt.Errorf("insert pool hashrate sample: %w", err)
	}
	return nil
}

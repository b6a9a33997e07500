package clickhouse

import (
	"context"
	"fmt"
	"time"
)

// PoolBlockHeights returns which of the candidate heights belong to blocks the
// pool itself found.
func (r *Repository) PoolBlockHeights(ctx context.Context, heights []uint64) (map[uint64]struct{}, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("pool_block_heights", err, start)
	}()

	found := make(map[uint64]struct{}, len(heights))
	if len(heights) == 0 {
		return found, nil
	}

	const query = `
SELECT DISTINCT height
FROM pool_blocks
WHERE height IN ?`

	rows, err := r.conn.Query(ctx, query, heights)
	if err != nil {
		return nil, fmt.Errorf("query pool block heights: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var height uint64
		if err = rows.Scan(&height); err != nil {
			return nil, fmt.Errorf("scan pool block height: %w", err)
		}
		found[height] = struct{}{}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool block heights: %w", err)
	}

	return found, nil
}

// InsertPoolBlock records a block found by the pool.
func (r *Repository) InsertPoolBlock(ctx context.Context, height uint64, foundAt time.Time) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_pool_block", err, start)
	}()

	const query = `INSERT INTO pool_blocks (height, found_at) VALUES (?, ?)`

	if err = r.conn.Exec(ctx, query, height, foundAt); err != nil {
		return fmt.Errorf("insert pool block: %w", err)
	}
	return nil
}

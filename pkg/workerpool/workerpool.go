// Package workerpool runs a bounded number of workers over a slice of items.
package workerpool

import (
	"context"
	"sync"
)

// Process fans items out to workerCount goroutines and invokes process for
// each item. The first process error cancels the remaining work and is
// returned; callers that want best-effort processing should absorb per-item
// failures inside process instead of returning them.
func Process[T any](ctx context.Context, workerCount int, items []T, process func(context.Context, T) error) error {
	if workerCount < 1 {
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan T)
	errOnce := sync.Once{}
	var firstErr error

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case item, ok := <-tasks:
					if !ok {
						return
					}
					if err := process(ctx, item); err != nil {
						errOnce.Do(func() {
							firstErr = err
							cancel()
						})
						return
					}
				}
			}
		}()
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
		case tasks <- item:
			continue
		}
		break
	}
	close(tasks)

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

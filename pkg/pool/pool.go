// Package pool provides a bounded-concurrency dispatcher used for paced
// fan-outs such as bulk confirmation emails. It only sequences concurrency
// and pacing; handlers bring their own error collection.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Options controls the worker count and per-item pacing of a Run call.
type Options struct {
	// Limit is the maximum number of handlers in flight. Values below 1
	// mean serial execution.
	Limit int
	// Delay is waited by each worker after a handler settles, before it
	// claims the next item. It throttles per-worker throughput, not just
	// batch boundaries.
	Delay time.Duration
}

// Run invokes handler for every index in [0, n). Workers share a single
// advancing cursor, so a slow handler never leaves queued items pinned to
// an idle worker. Run returns once all items are processed or the context
// is cancelled.
func Run(ctx context.Context, n int, opts Options, handler func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > n {
		limit = n
	}

	var cursor int64 = -1
	var wg sync.WaitGroup
	wg.Add(limit)

	for w := 0; w < limit; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1))
				if i >= n {
					return
				}
				if ctx.Err() != nil {
					return
				}
				handler(ctx, i)
				if opts.Delay > 0 {
					select {
					case <-time.After(opts.Delay):
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	wg.Wait()
}

package channel

import (
	"context"
	"time"
)

// DefaultPostsTimeout is the wall-clock budget for authenticated aggregation.
// First connections to the messaging network can take over a minute on slow links.
const DefaultPostsTimeout = 180 * time.Second

// WithDeadline races op against limit. If op finishes first its value is returned
// with true; otherwise fallback is returned with false.
//
// op receives a context that expires with the deadline so it can stop early,
// but the guard never waits for it: a late result is dropped into a buffered
// channel nobody reads. A panic in op yields fallback.
func WithDeadline[T any](ctx context.Context, limit time.Duration, op func(context.Context) T, fallback T) (T, bool) {
	opCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan T, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fallback
			}
		}()
		done <- op(opCtx)
	}()

	select {
	case v := <-done:
		return v, true
	case <-opCtx.Done():
		return fallback, false
	}
}

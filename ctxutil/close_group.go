// Copyright (c) 2023 BVK Chaitanya

package ctxutil

import (
	"context"
	"os"
	"sync"
)

// CloseGroup runs goroutines that share a single cancellation context.
// Closing the group cancels the context and waits for all goroutines.
type CloseGroup struct {
	closeCtx  context.Context
	causeFunc context.CancelCauseFunc

	wg sync.WaitGroup

	once sync.Once
}

func (cg *CloseGroup) init() {
	cg.closeCtx, cg.causeFunc = context.WithCancelCause(context.Background())
}

func (cg *CloseGroup) Close() {
	cg.CloseCause(os.ErrClosed)
}

// CloseCause is like Close, but cancels the group context with the given
// cause. Only the first cause is recorded.
func (cg *CloseGroup) CloseCause(cause error) {
	cg.once.Do(cg.init)
	cg.causeFunc(cause)
	cg.wg.Wait()
}

func (cg *CloseGroup) Context() context.Context {
	cg.once.Do(cg.init)
	return cg.closeCtx
}

func (cg *CloseGroup) Go(f func(ctx context.Context)) {
	cg.once.Do(cg.init)

	cg.wg.Add(1)
	go func() {
		defer cg.wg.Done()
		f(cg.closeCtx)
	}()
}

package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"

	"go.viam.com/dynamicgap/logging"
)

// StoppableWorkers is a collection of background goroutines sharing one cancellation context,
// such as the config file watcher.
type StoppableWorkers interface {
	AddWorkers(...func(context.Context))
	Stop()
	Context() context.Context
}

// stoppableWorkersImpl is only ever handed out through the interface so the WaitGroup is never copied.
type stoppableWorkersImpl struct {
	mu                      sync.Mutex
	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
	logger                  logging.Logger
}

// NewStoppableWorkers runs the functions in separate goroutines derived from ctx. They can be
// stopped later, or by cancelling ctx. A worker that panics is logged to logger and counts as
// returned.
func NewStoppableWorkers(ctx context.Context, logger logging.Logger, funcs ...func(context.Context)) StoppableWorkers {
	cancelCtx, cancelFunc := context.WithCancel(ctx)
	workers := &stoppableWorkersImpl{cancelCtx: cancelCtx, cancelFunc: cancelFunc, logger: logger}
	workers.AddWorkers(funcs...)
	return workers
}

// AddWorkers starts up additional goroutines for each function passed in. If you call this after
// calling Stop(), it will return immediately without starting any new goroutines.
func (sw *stoppableWorkersImpl) AddWorkers(funcs ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.cancelCtx.Err() != nil {
		return
	}

	sw.activeBackgroundWorkers.Add(len(funcs))
	for _, f := range funcs {
		f := f
		goutils.PanicCapturingGoWithCallback(func() {
			defer sw.activeBackgroundWorkers.Done()
			f(sw.cancelCtx)
		}, func(err interface{}) {
			sw.logger.Errorw("background worker panicked", "error", err)
		})
	}
}

// Stop cancels the shared context and waits for every worker to return.
func (sw *stoppableWorkersImpl) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cancelFunc()
	sw.activeBackgroundWorkers.Wait()
}

// Context gets the context the workers are checking on.
func (sw *stoppableWorkersImpl) Context() context.Context {
	return sw.cancelCtx
}

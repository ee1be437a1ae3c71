package utils

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// ValueFunc is for GetInParallel.
type ValueFunc[T any] func(ctx context.Context) (T, error)

// GetInParallel runs all functions in parallel and joins them before returning. The result
// slice is indexed like fs. A panic in any function is captured and reported as an error
// rather than taking down the caller.
func GetInParallel[T any](ctx context.Context, fs []ValueFunc[T]) (time.Duration, []T, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	var bigError error
	var bigErrorMutex sync.Mutex
	storeError := func(err error) {
		bigErrorMutex.Lock()
		defer bigErrorMutex.Unlock()
		if bigError == nil || !errors.Is(err, context.Canceled) {
			bigError = multierr.Combine(bigError, err)
		}
	}

	results := make([]T, len(fs))

	helper := func(f ValueFunc[T], i int) {
		defer func() {
			if thePanic := recover(); thePanic != nil {
				storeError(fmt.Errorf("got panic getting something in parallel: %v", thePanic))
				cancel()
			}
			wg.Done()
		}()
		value, err := f(ctx)
		if err != nil {
			storeError(err)
			cancel()
			return
		}
		results[i] = value
	}

	wg.Add(len(fs))
	for i, f := range fs {
		i, f := i, f
		utils.PanicCapturingGo(func() { helper(f, i) })
	}

	wg.Wait()
	return time.Since(start), results, bigError
}

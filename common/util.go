package common

import (
	"context"
	"errors"
	"sync"
)

// RunParallel runs funcs concurrently and joins their errors. The first
// failure cancels the context handed to the others. The count is the
// number of funcs that failed.
func RunParallel(ctx context.Context, funcs ...func(ctx context.Context) error) (error, int) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, fn := range funcs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				cancel()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...), len(errs)
}

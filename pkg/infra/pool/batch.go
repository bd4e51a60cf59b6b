package pool

import (
	"context"
	"fmt"
	"sync"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Batch fans a set of tasks out over a Pool and collects their errors.
// A Batch is used once: Go any number of tasks, then Wait.
type Batch struct {
	pool *Pool
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// NewBatch creates a batch bound to p.
func (p *Pool) NewBatch() *Batch {
	return &Batch{pool: p}
}

// Go submits task. Submission blocks while the pool is full. Tasks not yet
// started when ctx is cancelled report ctx.Err().
func (b *Batch) Go(ctx context.Context, task func(ctx context.Context) error) {
	b.wg.Add(1)
	err := b.pool.Submit(func() {
		defer b.wg.Done()
		var err error
		defer func() {
			if r := recover(); r != nil {
				b.record(fmt.Errorf("task panic: %v", r))
				return
			}
			b.record(err)
		}()

		if err = ctx.Err(); err != nil {
			return
		}
		err = task(ctx)
	})
	if err != nil {
		b.wg.Done()
		b.record(err)
	}
}

// Wait blocks until every submitted task finished and returns the aggregate
// of their errors, or nil.
func (b *Batch) Wait() error {
	b.wg.Wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	return utilerrors.NewAggregate(b.errs)
}

func (b *Batch) record(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()
}

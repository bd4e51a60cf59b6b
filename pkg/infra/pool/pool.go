package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Config defines the configuration for the worker pool.
type Config struct {
	// Capacity 池容量（最大并发 goroutine 数）
	Capacity int
	// ExpiryDuration goroutine 空闲过期时间
	ExpiryDuration time.Duration
	// Nonblocking 提交任务是否非阻塞（若池满则返回 ErrPoolOverload）
	Nonblocking bool
	// PanicHandler 恐慌处理函数
	PanicHandler func(interface{})
}

// DefaultConfig 返回阻塞提交的池配置，capacity 即最大并发数。
func DefaultConfig(capacity int) *Config {
	return &Config{
		Capacity:       capacity,
		ExpiryDuration: 10 * time.Second,
	}
}

// Pool represents a worker pool.
type Pool struct {
	name   string
	pool   *ants.Pool
	stats  statsCounter
	closed atomic.Bool
	mu     sync.Mutex
}

type statsCounter struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	panics    atomic.Int64
}

// Stats contains statistics about the worker pool.
type Stats struct {
	SubmittedTasks int64 // 已提交任务数
	CompletedTasks int64 // 已完成任务数
	FailedTasks    int64 // 失败任务数（含 panic）
	RejectedTasks  int64 // 拒绝任务数
	PanicRecovered int64 // 恢复的 panic 数
}

// NewPool creates a new worker pool with the given configuration.
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig(ants.DefaultAntsPoolSize)
	}
	if config.Capacity <= 0 {
		return nil, fmt.Errorf("pool %s: capacity must be positive", name)
	}

	p := &Pool{name: name}

	panicHandler := config.PanicHandler
	if panicHandler == nil {
		panicHandler = func(r interface{}) {
			logger.Errorw("Worker panic recovered", "pool", name, "panic", r)
		}
	}

	pool, err := ants.NewPool(config.Capacity,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithPanicHandler(panicHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}
	p.pool = pool

	logger.Infow("Worker pool created", "name", name, "capacity", config.Capacity)
	return p, nil
}

// Name 返回池名称
func (p *Pool) Name() string {
	return p.name
}

// Cap 返回池容量
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Running 返回正在运行的 goroutine 数量
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Submit 提交任务到池中执行。阻塞模式下池满时等待空闲 worker。
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	err := p.pool.Submit(func() {
		p.stats.submitted.Add(1)
		defer func() {
			if r := recover(); r != nil {
				p.stats.panics.Add(1)
				p.stats.failed.Add(1)
				// 交给 ants PanicHandler 处理
				panic(r)
			}
			p.stats.completed.Add(1)
		}()
		task()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.rejected.Add(1)
			return ErrPoolOverload
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		p.stats.failed.Add(1)
		return err
	}
	return nil
}

// SubmitWithContext 提交带上下文的任务；任务开始前上下文已取消则跳过。
func (p *Pool) SubmitWithContext(ctx context.Context, task func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Submit(func() {
		if ctx.Err() != nil {
			return
		}
		task()
	})
}

// Release 关闭池并释放资源
func (p *Pool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Swap(true) {
		return
	}
	p.pool.Release()
	logger.Infow("Worker pool released", "name", p.name)
}

// ReleaseTimeout 关闭池并等待运行中的任务完成，直到超时。
func (p *Pool) ReleaseTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Swap(true) {
		return nil
	}
	return p.pool.ReleaseTimeout(timeout)
}

// Stats 返回池统计信息快照
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks: p.stats.submitted.Load(),
		CompletedTasks: p.stats.completed.Load(),
		FailedTasks:    p.stats.failed.Load(),
		RejectedTasks:  p.stats.rejected.Load(),
		PanicRecovered: p.stats.panics.Load(),
	}
}

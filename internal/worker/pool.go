// Package worker resolves currency conversions, either in process through a
// bounded goroutine pool or as the consumer side of the message queue.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/log"
)

var (
	ErrQueueFull  = errors.New("conversion queue full")
	ErrPoolClosed = errors.New("conversion pool closed")
)

// ConversionHandler is implemented by services.ConversionService.
type ConversionHandler interface {
	Handle(ctx context.Context, req core.ConversionRequest) error
}

// Pool runs conversions on a fixed number of goroutines fed by a buffered
// queue. Dispatch never blocks; a full queue is reported as ErrQueueFull.
type Pool struct {
	handler ConversionHandler
	logger  *log.Logger
	timeout time.Duration
	workers int

	queue  chan core.ConversionRequest
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

type PoolConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single conversion.
	Timeout time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Workers: 4, QueueSize: 256, Timeout: 15 * time.Second}
}

func NewPool(handler ConversionHandler, cfg PoolConfig, logger *log.Logger) *Pool {
	def := DefaultPoolConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		handler: handler,
		logger:  logger,
		timeout: cfg.Timeout,
		workers: cfg.Workers,
		queue:   make(chan core.ConversionRequest, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	p.logger.Info("Conversion pool started", "workers", p.workers, "queue_size", cap(p.queue))
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case req, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(p.ctx, req)
		}
	}
}

func (p *Pool) process(parent context.Context, req core.ConversionRequest) {
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()
	if err := p.handler.Handle(ctx, req); err != nil {
		p.logger.ErrorContext(ctx, "Conversion failed",
			log.NewFields().WithItem(req.DraftID, string(req.Category), req.ItemID, req.Revision).WithError(err).ToSlice()...)
	}
}

// Dispatch queues a request.
func (p *Pool) Dispatch(_ context.Context, req core.ConversionRequest) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending is the number of queued requests.
func (p *Pool) Pending() int {
	return len(p.queue)
}

// Shutdown stops accepting requests and drains the queue until ctx expires.
// Requests still queued afterwards are dropped and their items keep the raw
// amount.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	p.logger.Info("Draining conversion queue", "remaining", len(p.queue))
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		p.logger.Warn("Conversion queue not drained before deadline", "dropped", len(p.queue))
		return ctx.Err()
	}
}

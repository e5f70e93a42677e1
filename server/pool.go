package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/jasm/compiler"
	"github.com/chazu/jasm/vm"
)

var (
	ErrQueueFull   = errors.New("run queue is full")
	ErrPoolStopped = errors.New("pool is stopped")
)

// job is a unit of work handed to a worker goroutine.
type job struct {
	ctx      context.Context
	id       string
	source   string
	maxSteps int
	done     chan jobResult
}

type jobResult struct {
	run *Run
	err error
}

// Run is a finished program execution.
type Run struct {
	ID       string
	Result   vm.Result
	Duration time.Duration
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithRunLimits sets the step budget and deadline applied to every run.
// Zero disables either limit.
func WithRunLimits(maxSteps int, timeout time.Duration) PoolOption {
	return func(p *Pool) {
		p.maxSteps = maxSteps
		p.timeout = timeout
	}
}

// WithRunTrace turns on per-instruction tracing for every run.
func WithRunTrace(on bool) PoolOption {
	return func(p *Pool) { p.trace = on }
}

// Pool runs programs on a fixed set of worker goroutines fed by a bounded
// queue. Every run gets its own Environment; nothing is shared between runs.
type Pool struct {
	jobs chan job
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	maxSteps int
	timeout  time.Duration
	trace    bool
	log      commonlog.Logger
}

// NewPool creates a Pool and starts its workers.
func NewPool(workers, queue int, opts ...PoolOption) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{
		jobs: make(chan job, queue),
		quit: make(chan struct{}),
		log:  commonlog.GetLogger("jasm.server"),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.loop()
	}
	return p
}

// loop processes jobs until the pool is stopped.
func (p *Pool) loop() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			j.done <- p.execute(j)
		case <-p.quit:
			return
		}
	}
}

// execute runs one job, recovering from panics.
func (p *Pool) execute(j job) (result jobResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("run %s: panic: %v", j.id, r)
			result = jobResult{err: fmt.Errorf("run %s: %v", j.id, r)}
		}
	}()

	ctx := j.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	interp := vm.NewInterpreter(
		vm.WithMaxSteps(p.effectiveSteps(j.maxSteps)),
		vm.WithTrace(p.trace),
	)

	p.log.Debugf("run %s: start (%d bytes)", j.id, len(j.source))
	start := time.Now()
	res := interp.Run(ctx, compiler.Parse(j.source), vm.NewEnvironment())
	run := &Run{ID: j.id, Result: res, Duration: time.Since(start)}

	if res.OK {
		p.log.Infof("run %s: %s after %d steps in %s", j.id, res.State, res.Steps, run.Duration)
	} else {
		p.log.Infof("run %s: failed at line %d after %d steps: %s", j.id, res.Line(), res.Steps, res.Err)
	}
	return jobResult{run: run}
}

// effectiveSteps lets a request lower the pool's step budget but never
// raise it.
func (p *Pool) effectiveSteps(requested int) int {
	switch {
	case requested <= 0:
		return p.maxSteps
	case p.maxSteps <= 0 || requested < p.maxSteps:
		return requested
	default:
		return p.maxSteps
	}
}

// Run parses and executes source on a worker and blocks until it finishes.
// It returns ErrQueueFull without waiting when the queue has no room.
func (p *Pool) Run(ctx context.Context, source string, maxSteps int) (*Run, error) {
	select {
	case <-p.quit:
		return nil, ErrPoolStopped
	default:
	}

	j := job{
		ctx:      ctx,
		id:       uuid.NewString(),
		source:   source,
		maxSteps: maxSteps,
		done:     make(chan jobResult, 1),
	}

	select {
	case p.jobs <- j:
	default:
		p.log.Warningf("run %s: rejected, queue full", j.id)
		return nil, ErrQueueFull
	}

	select {
	case r := <-j.done:
		return r.run, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrPoolStopped
	}
}

// Stop shuts down the workers and waits for running jobs to finish.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

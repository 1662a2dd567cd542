// Package workerpool implements the substrate's two named bounded
// worker pools: io (for DB and file work) and llm (for long-running
// external calls), each with a hard queue-depth ceiling.
package workerpool

import (
	"sync"
	"sync/atomic"

	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/logger"
)

// Pool names.
const (
	PoolIO  = "io"
	PoolLLM = "llm"
)

// MaxQueueDepth is the hard submission ceiling shared by every pool.
const MaxQueueDepth = 32

const (
	ioWorkers  = 4
	llmWorkers = 2
)

// ErrWorkerPoolBusy is returned by Submit/SubmitSync when a pool's
// pending count is at or above MaxQueueDepth.
var ErrWorkerPoolBusy = errors.New("worker pool busy")

// toolRouting is a frozen tool-name -> pool-name table. Unknown tools
// default to PoolIO.
var toolRouting = map[string]string{
	"read_file":    PoolIO,
	"write_file":   PoolIO,
	"query_dag":    PoolIO,
	"sign":         PoolIO,
	"llm_generate": PoolLLM,
	"llm_embed":    PoolLLM,
}

// RouteTool returns the pool name a tool should run on.
func RouteTool(tool string) string {
	if pool, ok := toolRouting[tool]; ok {
		return pool
	}
	return PoolIO
}

type job struct {
	fn     func() (interface{}, error)
	result chan<- jobResult
}

type jobResult struct {
	value interface{}
	err   error
}

// Future is a handle to a submitted job's eventual result.
type Future struct {
	ch <-chan jobResult
}

// Wait blocks until the job completes and returns its result.
func (f *Future) Wait() (interface{}, error) {
	r := <-f.ch
	return r.value, r.err
}

// Stats summarizes a pool's lifetime activity.
type Stats struct {
	Name      string `json:"name"`
	Workers   int    `json:"workers"`
	Pending   int64  `json:"pending"`
	Submitted int64  `json:"submitted"`
	Completed int64  `json:"completed"`
	Rejected  int64  `json:"rejected"`
}

// Pool is a bounded pool of goroutine workers draining a shared job channel.
type Pool struct {
	name      string
	jobs      chan job
	pending   int64
	submitted int64
	completed int64
	rejected  int64
	wg        sync.WaitGroup
}

func newPool(name string, workers int) *Pool {
	p := &Pool{
		name: name,
		jobs: make(chan job, MaxQueueDepth),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.runJob(j)
	}
}

func (p *Pool) runJob(j job) {
	var res jobResult
	defer func() {
		if r := recover(); r != nil {
			if logger.Logger != nil {
				logger.Logger.Errorw("worker pool job panicked", "pool", p.name, "panic", r)
			}
			res = jobResult{err: errors.Newf("job panicked: %v", r)}
		}
		atomic.AddInt64(&p.pending, -1)
		atomic.AddInt64(&p.completed, 1)
		if j.result != nil {
			j.result <- res
		}
	}()
	v, err := j.fn()
	res = jobResult{value: v, err: err}
}

// SubmitSync enqueues fn and returns a Future for its result, or
// ErrWorkerPoolBusy if the pool is at capacity.
func (p *Pool) SubmitSync(fn func() (interface{}, error)) (*Future, error) {
	if atomic.LoadInt64(&p.pending) >= MaxQueueDepth {
		atomic.AddInt64(&p.rejected, 1)
		return nil, ErrWorkerPoolBusy
	}
	atomic.AddInt64(&p.pending, 1)
	atomic.AddInt64(&p.submitted, 1)

	resultCh := make(chan jobResult, 1)
	select {
	case p.jobs <- job{fn: fn, result: resultCh}:
		return &Future{ch: resultCh}, nil
	default:
		atomic.AddInt64(&p.pending, -1)
		atomic.AddInt64(&p.rejected, 1)
		return nil, ErrWorkerPoolBusy
	}
}

// Submit enqueues fn for execution and awaits its result inline.
func (p *Pool) Submit(fn func() (interface{}, error)) (interface{}, error) {
	f, err := p.SubmitSync(fn)
	if err != nil {
		return nil, err
	}
	return f.Wait()
}

// Stats returns a snapshot of this pool's counters.
func (p *Pool) Stats(workers int) Stats {
	return Stats{
		Name:      p.name,
		Workers:   workers,
		Pending:   atomic.LoadInt64(&p.pending),
		Submitted: atomic.LoadInt64(&p.submitted),
		Completed: atomic.LoadInt64(&p.completed),
		Rejected:  atomic.LoadInt64(&p.rejected),
	}
}

// Stop closes the job channel and waits for every worker to drain.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Manager owns the io and llm pools and routes tool names to them.
type Manager struct {
	IO  *Pool
	LLM *Pool
}

// NewManager constructs the io (4-worker) and llm (2-worker) pools.
func NewManager() *Manager {
	return &Manager{
		IO:  newPool(PoolIO, ioWorkers),
		LLM: newPool(PoolLLM, llmWorkers),
	}
}

// PoolFor returns the pool a tool name routes to.
func (m *Manager) PoolFor(tool string) *Pool {
	if RouteTool(tool) == PoolLLM {
		return m.LLM
	}
	return m.IO
}

// Stats returns stats for both pools.
func (m *Manager) Stats() map[string]Stats {
	return map[string]Stats{
		PoolIO:  m.IO.Stats(ioWorkers),
		PoolLLM: m.LLM.Stats(llmWorkers),
	}
}

// Stop drains and stops both pools.
func (m *Manager) Stop() {
	m.IO.Stop()
	m.LLM.Stop()
}

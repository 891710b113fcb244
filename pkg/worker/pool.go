// Package worker runs council prompts concurrently. Each job gets its own
// conversation, store and stream, so jobs share no mutable state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/council/pkg/chat"
	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/logger"
	"github.com/papercomputeco/council/pkg/store"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 64
)

// Backend is what a job needs from the council backend. *client.Client
// implements it.
type Backend interface {
	chat.Backend
	CreateConversation(ctx context.Context, deviceID string) (council.Conversation, error)
}

// Job is one prompt to put to the council.
type Job struct {
	// ID identifies the job in results and logs.
	ID int

	Prompt string
}

// Result is the outcome of a Job. Conversation holds whatever was
// recorded, even when Err is set.
type Result struct {
	Job          Job
	Conversation council.Conversation
	Err          error
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Backend creates the conversations and streams the answers.
	Backend Backend

	// DeviceID owns the conversations created for jobs.
	DeviceID string

	// NumWorkers is the number of jobs run at once (defaults to 3).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// OnResult is called from the worker goroutine when a job finishes.
	// It must be safe for concurrent use.
	OnResult func(Result)

	// Observer, when set, returns an observer subscribed to a job's store.
	Observer func(Job) store.Observer

	Logger *slog.Logger
}

// Pool runs jobs on a fixed number of goroutines.
type Pool struct {
	ctx    context.Context
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool starts the worker goroutines. Jobs run under ctx: canceling it
// aborts in-flight streams.
func NewPool(ctx context.Context, c *Config) (*Pool, error) {
	if c.Backend == nil {
		return nil, errors.New("worker pool requires a backend")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		ctx:    ctx,
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job. It returns false, dropping the job, when the queue
// is full.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "job", job.ID)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "job", job.ID)
		return false
	}
}

// Close stops accepting jobs and waits for queued and in-flight jobs to
// finish.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		res := p.processJob(job)
		if p.config.OnResult != nil {
			p.config.OnResult(res)
		}
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob asks the council in a fresh conversation.
func (p *Pool) processJob(job Job) Result {
	res := Result{Job: job}

	if err := p.ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	conv, err := p.config.Backend.CreateConversation(p.ctx, p.config.DeviceID)
	if err != nil {
		p.logger.Error("creating conversation failed", "job", job.ID, "error", err)
		res.Err = err
		return res
	}

	opts := []store.Option{store.WithLogger(p.logger)}
	if p.config.Observer != nil {
		opts = append(opts, store.WithObserver(p.config.Observer(job)))
	}
	st := store.New(conv, opts...)
	defer st.Close()

	session := chat.NewSession(p.config.Backend, conv.ID, st, chat.WithLogger(p.logger))
	res.Err = session.Send(p.ctx, job.Prompt)
	res.Conversation = st.Snapshot()

	if res.Err != nil {
		p.logger.Error("ask failed", "job", job.ID, "conversation", conv.ID, "error", res.Err)
	} else {
		p.logger.Debug("ask finished", "job", job.ID, "conversation", conv.ID)
	}
	return res
}

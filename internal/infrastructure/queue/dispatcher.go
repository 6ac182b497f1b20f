package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	defaultBuffer  = 256
)

// Dispatcher routes sync jobs to a fixed set of workers using consistent
// hashing on the login, so jobs for one user are applied in order.
//
// A rename touches two logins. While any job naming a login is queued or
// running, later jobs for that login follow it to the same worker, so a
// rename A->B and a later job for B are never reordered.
type Dispatcher struct {
	workers   []chan domain.SyncJob
	processor ports.SyncProcessor
	skipped   error
	log       zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	routeMu sync.Mutex
	routes  map[string]*route
}

// route pins a login to a worker while jobs naming it are in flight.
type route struct {
	shard    int
	inflight int
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithSkipError marks processor errors matching err as skipped rather than failed.
func WithSkipError(err error) Option {
	return func(d *Dispatcher) { d.skipped = err }
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers, each
// buffering up to buffer jobs. Non-positive values select the defaults.
func NewDispatcher(numWorkers, buffer int, processor ports.SyncProcessor, log zerolog.Logger, opts ...Option) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	d := &Dispatcher{
		workers:   make([]chan domain.SyncJob, numWorkers),
		processor: processor,
		log:       log,
		routes:    make(map[string]*route),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.SyncJob, buffer)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// Close drains their channel.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands job to the worker responsible for its login. It never
// blocks: a full worker queue or a closed dispatcher drops the job.
func (d *Dispatcher) Enqueue(job domain.SyncJob) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(job, "dispatcher closed")
		return false
	}

	d.routeMu.Lock()
	defer d.routeMu.Unlock()

	idx := d.shardFor(job)
	select {
	case d.workers[idx] <- job:
		d.pin(job, idx)
		metrics.SyncQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		d.drop(job, "worker queue full")
		return false
	}
}

// shardFor picks the worker for job. Must be called with routeMu held.
func (d *Dispatcher) shardFor(job domain.SyncJob) int {
	for _, login := range routingKeys(job) {
		if r, ok := d.routes[login]; ok {
			return r.shard
		}
	}
	return d.shardIndex(job.ShardKey())
}

// pin records job as in flight on shard. Must be called with routeMu held.
func (d *Dispatcher) pin(job domain.SyncJob, shard int) {
	for _, login := range routingKeys(job) {
		r, ok := d.routes[login]
		if !ok {
			r = &route{shard: shard}
			d.routes[login] = r
		}
		r.inflight++
	}
}

// release undoes pin once job has been processed.
func (d *Dispatcher) release(job domain.SyncJob) {
	d.routeMu.Lock()
	defer d.routeMu.Unlock()
	for _, login := range routingKeys(job) {
		r, ok := d.routes[login]
		if !ok {
			continue
		}
		if r.inflight--; r.inflight <= 0 {
			delete(d.routes, login)
		}
	}
}

// routingKeys lists the logins job touches, the shard key first.
func routingKeys(job domain.SyncJob) []string {
	if job.PreviousLogin == "" || job.PreviousLogin == job.Login {
		return []string{job.Login}
	}
	return []string{job.PreviousLogin, job.Login}
}

// Close stops accepting jobs and waits for queued jobs to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// shardIndex maps a login deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) drop(job domain.SyncJob, reason string) {
	metrics.SyncJobsDroppedTotal.WithLabelValues(string(job.Kind)).Inc()
	d.log.Warn().
		Str("kind", string(job.Kind)).
		Str("login", job.Login).
		Str("reason", reason).
		Msg("sync job dropped")
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.SyncJob) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			metrics.SyncQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.handle(ctx, id, job)
			d.release(job)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, id int, job domain.SyncJob) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SyncJobsTotal.WithLabelValues(string(job.Kind), "failed").Inc()
			d.log.Error().Interface("panic", r).Str("kind", string(job.Kind)).Int("worker_id", id).Msg("sync worker recovered from panic")
		}
	}()

	start := time.Now()
	err := d.processor.Process(ctx, job)
	metrics.SyncJobDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.SyncJobsTotal.WithLabelValues(string(job.Kind), "delivered").Inc()
	case d.skipped != nil && errors.Is(err, d.skipped):
		metrics.SyncJobsTotal.WithLabelValues(string(job.Kind), "skipped").Inc()
	default:
		metrics.SyncJobsTotal.WithLabelValues(string(job.Kind), "failed").Inc()
		d.log.Debug().Err(err).
			Str("kind", string(job.Kind)).
			Int("worker_id", id).
			Msg("sync job processing failed")
	}
}

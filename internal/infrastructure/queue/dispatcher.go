package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
	deliverTimeout = 30 * time.Second
)

// ErrQueueFull is returned when a worker's backlog is at capacity.
var ErrQueueFull = errors.New("mail queue full")

// ErrClosed is returned for sends after Close.
var ErrClosed = errors.New("mail queue closed")

type resetJob struct {
	user domain.User
	link string
}

// MailDispatcher is a ports.Mailer that delivers password reset emails on a
// fixed set of workers, so the forgot-password response does not wait on the
// mail server. Jobs are sharded by address, which keeps the emails sent to
// one recipient in request order. Confirmation emails are delivered inline
// because registration reports their failure.
type MailDispatcher struct {
	next    ports.Mailer
	workers []chan resetJob
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewMailDispatcher creates a MailDispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewMailDispatcher(numWorkers int, next ports.Mailer, log zerolog.Logger) *MailDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &MailDispatcher{
		next:    next,
		workers: make([]chan resetJob, numWorkers),
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan resetJob, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. They run until Close.
func (d *MailDispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Close stops accepting jobs and waits for the backlog to drain or ctx to end.
func (d *MailDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *MailDispatcher) SendConfirmation(ctx context.Context, user *domain.User, link string) error {
	return d.next.SendConfirmation(ctx, user, link)
}

// SendPasswordReset enqueues the email without blocking. The user is copied so
// later changes by the caller do not race with the worker.
func (d *MailDispatcher) SendPasswordReset(_ context.Context, user *domain.User, link string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.workers[d.shardIndex(user.Email)] <- resetJob{user: *user, link: link}:
		return nil
	default:
		return ErrQueueFull
	}
}

// shardIndex maps an address deterministically to a worker index.
func (d *MailDispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *MailDispatcher) runWorker(id int, ch <-chan resetJob) {
	defer d.wg.Done()
	for job := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		if err := d.next.SendPasswordReset(ctx, &job.user, job.link); err != nil {
			d.log.Error().Err(err).
				Str("user_id", job.user.ID).
				Int("worker_id", id).
				Msg("password reset delivery failed")
		}
		cancel()
	}
}

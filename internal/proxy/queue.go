package proxy

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	imetrics "github.com/camrail/dejafoo/internal/metrics"
)

// QueueConfig controls the admission queue and concurrency limiter that sits
// in front of the proxy handler (spec's server loop / admission concerns).
// - MaxQueue: maximum number of requests allowed to wait before being admitted.
// - MaxConcurrent: maximum number of requests served at once.
// - EnqueueTimeout: how long a request may wait before it is rejected.
// - QueueWaitHeader: if true, exposes queue/concurrency bookkeeping via
//   response headers, useful when tuning the two limits against real traffic.
type QueueConfig struct {
	MaxQueue        int
	MaxConcurrent   int
	EnqueueTimeout  time.Duration
	QueueWaitHeader bool
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.MaxQueue <= 0 {
		c.MaxQueue = 1024
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 128
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = 2 * time.Second
	}
	return c
}

// admitter is a bounded waiting room (waiting chan) plus a bounded worker
// pool (active chan). A request must pass through both before it reaches
// the wrapped handler.
type admitter struct {
	cfg    QueueConfig
	waitCh chan struct{}
	slotCh chan struct{}
	depth  int64 // requests currently waiting, not yet active
}

// WithQueue wraps next with an admitter built from cfg. Requests that can't
// fit in the queue get an immediate 429; requests that wait past
// EnqueueTimeout, or whose client disconnects while waiting, get a 503.
func WithQueue(next http.Handler, cfg QueueConfig) http.Handler {
	cfg = cfg.withDefaults()
	a := &admitter{
		cfg:    cfg,
		waitCh: make(chan struct{}, cfg.MaxQueue),
		slotCh: make(chan struct{}, cfg.MaxConcurrent),
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.serve(w, r, next)
	})
}

func (a *admitter) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	waitStart := time.Now()

	ticket, ok := a.tryEnqueue()
	if !ok {
		imetrics.QueueRejectedInc()
		http.Error(w, "queue full, try again later", http.StatusTooManyRequests)
		return
	}
	defer ticket.releaseIfStillWaiting()

	slot, err := a.acquireSlot(r.Context(), a.cfg.EnqueueTimeout)
	imetrics.QueueWaitObserve(time.Since(waitStart))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			imetrics.QueueTimeoutsInc()
			http.Error(w, "timed out while waiting in queue", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "request cancelled while waiting in queue", http.StatusServiceUnavailable)
		return
	}
	defer slot.release()

	ticket.release()

	if a.cfg.QueueWaitHeader {
		w.Header().Set("X-Concurrency-Limit", strconv.Itoa(a.cfg.MaxConcurrent))
		w.Header().Set("X-Queue-Limit", strconv.Itoa(a.cfg.MaxQueue))
		w.Header().Set("X-Queue-Depth", strconv.FormatInt(ticket.depthAtEnqueue, 10))
		w.Header().Set("X-Queue-Wait", time.Since(waitStart).String())
	}

	next.ServeHTTP(w, r)
}

// waitTicket tracks a single request's occupancy of the waiting room so it
// can be released exactly once, whether it leaves by acquiring a slot,
// timing out, or the client disconnecting.
type waitTicket struct {
	a              *admitter
	depthAtEnqueue int64
	released       bool
}

func (t *waitTicket) release() {
	if t.released {
		return
	}
	t.released = true
	<-t.a.waitCh
	depth := atomic.AddInt64(&t.a.depth, -1)
	imetrics.QueueDepthSet(depth)
}

func (t *waitTicket) releaseIfStillWaiting() { t.release() }

// tryEnqueue attempts to occupy one waiting-room spot, failing immediately
// if MaxQueue is already full rather than blocking.
func (a *admitter) tryEnqueue() (*waitTicket, bool) {
	select {
	case a.waitCh <- struct{}{}:
	default:
		return nil, false
	}
	depth := atomic.AddInt64(&a.depth, 1)
	imetrics.QueueDepthSet(depth)
	return &waitTicket{a: a, depthAtEnqueue: depth}, true
}

// activeSlot represents one concurrency permit; release must be called
// exactly once when the wrapped handler finishes.
type activeSlot struct{ a *admitter }

func (s *activeSlot) release() { <-s.a.slotCh }

// acquireSlot blocks until a concurrency permit is free, the wait deadline
// elapses, or ctx is canceled (the client disconnected) -- whichever comes
// first. The acquisition goroutine is bound to acquireCtx so it never leaks
// past this call.
func (a *admitter) acquireSlot(ctx context.Context, timeout time.Duration) (*activeSlot, error) {
	acquireCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	granted := make(chan struct{}, 1)
	go func() {
		select {
		case a.slotCh <- struct{}{}:
			granted <- struct{}{}
		case <-acquireCtx.Done():
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, context.DeadlineExceeded
	case <-granted:
		return &activeSlot{a: a}, nil
	}
}

package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/psmatrix/dispatch"
	"github.com/hupe1980/psmatrix/protocol"
)

var (
	// ErrNoRoute is returned when no handler is registered for an address.
	ErrNoRoute = errors.New("no route to shard")
	// ErrDuplicateRequest is returned when a request id is already pending.
	ErrDuplicateRequest = errors.New("request id already pending")
)

// Handler executes a request frame and returns a response frame.
type Handler interface {
	Handle(ctx context.Context, frame []byte) []byte
}

// Fault injects failure behavior for one address.
type Fault struct {
	// Delay postpones the reply. The handler still runs to completion,
	// so a delayed reply can arrive after its caller gave up.
	Delay time.Duration
	// Drop loses the request; no reply is ever delivered.
	Drop bool
	// Err refuses the request with an *dispatch.UnreachableError.
	Err error
}

// Loopback is an in-process asynchronous transport. It is safe for concurrent use.
type Loopback struct {
	mu       sync.Mutex
	handlers map[string]Handler
	faults   map[string]Fault
	pending  map[uint64]*call
	calls    map[string]int

	seq   atomic.Uint64
	total atomic.Int64
	late  atomic.Int64
	wg    sync.WaitGroup
}

// call is one caller waiting for a reply. token tells a reply for this call
// apart from a late reply to an earlier call that reused the request id.
type call struct {
	token uint64
	ch    chan []byte
}

// NewLoopback creates a Loopback with no routes.
func NewLoopback() *Loopback {
	return &Loopback{
		handlers: make(map[string]Handler),
		faults:   make(map[string]Fault),
		pending:  make(map[uint64]*call),
		calls:    make(map[string]int),
	}
}

// Register routes addr to h, replacing any previous handler.
func (l *Loopback) Register(addr string, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[addr] = h
}

// Unregister removes the route for addr.
func (l *Loopback) Unregister(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers, addr)
}

// SetFault installs f for addr.
func (l *Loopback) SetFault(addr string, f Fault) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.faults[addr] = f
}

// ClearFaults removes all injected faults.
func (l *Loopback) ClearFaults() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.faults)
}

// Calls returns the number of frames sent to all addresses.
func (l *Loopback) Calls() int64 { return l.total.Load() }

// CallsTo returns the number of frames sent to addr.
func (l *Loopback) CallsTo(addr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[addr]
}

// LateReplies returns the number of replies dropped because their caller
// was no longer waiting.
func (l *Loopback) LateReplies() int64 { return l.late.Load() }

// Pending returns the number of calls awaiting a reply.
func (l *Loopback) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Wait blocks until every handler goroutine has finished.
func (l *Loopback) Wait() { l.wg.Wait() }

// Send implements dispatch.Transport.
func (l *Loopback) Send(ctx context.Context, addr string, frame []byte) ([]byte, error) {
	id, err := protocol.PeekRequestID(frame)
	if err != nil {
		return nil, err
	}
	l.total.Add(1)

	l.mu.Lock()
	l.calls[addr]++
	h, ok := l.handlers[addr]
	fault := l.faults[addr]
	if !ok {
		l.mu.Unlock()
		return nil, &dispatch.UnreachableError{Addr: addr, Err: ErrNoRoute}
	}
	if fault.Err != nil {
		l.mu.Unlock()
		return nil, &dispatch.UnreachableError{Addr: addr, Err: fault.Err}
	}
	if _, dup := l.pending[id]; dup {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrDuplicateRequest, id)
	}
	c := &call{token: l.seq.Add(1), ch: make(chan []byte, 1)}
	l.pending[id] = c
	l.mu.Unlock()

	if !fault.Drop {
		// The shard works on its own copy, detached from the caller's ctx.
		in := append([]byte(nil), frame...)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			if fault.Delay > 0 {
				time.Sleep(fault.Delay)
			}
			l.deliver(id, c.token, h.Handle(context.Background(), in))
		}()
	}

	select {
	case reply := <-c.ch:
		return reply, nil
	case <-ctx.Done():
		l.mu.Lock()
		if cur, ok := l.pending[id]; ok && cur == c {
			delete(l.pending, id)
		}
		l.mu.Unlock()
		return nil, ctx.Err()
	}
}

// deliver hands a reply to the call that sent its request. A reply whose
// caller gave up is dropped, even if a newer call reuses the request id.
func (l *Loopback) deliver(id, token uint64, reply []byte) {
	l.mu.Lock()
	c, ok := l.pending[id]
	if ok && c.token == token {
		delete(l.pending, id)
	} else {
		ok = false
	}
	l.mu.Unlock()
	if !ok {
		l.late.Add(1)
		return
	}
	c.ch <- reply
}

package consumer

import (
	"context"
	"sync"

	"github.com/downfa11-org/sharefetch/pkg/fetch"
	"github.com/downfa11-org/sharefetch/pkg/metrics"
)

// FetchBuffer queues completed fetches in arrival order and tracks the one
// currently being read. It is safe for concurrent use: the network side adds
// fetches while the polling side collects them.
type FetchBuffer struct {
	mu         sync.Mutex
	completed  []*fetch.ShareCompletedFetch
	nextInLine *fetch.ShareCompletedFetch
	notify     chan struct{}
	closed     bool
}

func NewFetchBuffer() *FetchBuffer {
	return &FetchBuffer{notify: make(chan struct{}, 1)}
}

func (b *FetchBuffer) Add(f *fetch.ShareCompletedFetch) {
	b.AddAll(f)
}

func (b *FetchBuffer) AddAll(fetches ...*fetch.ShareCompletedFetch) {
	if len(fetches) == 0 {
		return
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		for _, f := range fetches {
			f.Drain()
		}
		return
	}
	b.completed = append(b.completed, fetches...)
	metrics.BufferedFetches.Set(float64(len(b.completed)))
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Peek returns the oldest queued fetch without removing it.
func (b *FetchBuffer) Peek() *fetch.ShareCompletedFetch {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.completed) == 0 {
		return nil
	}
	return b.completed[0]
}

// Poll removes and returns the oldest queued fetch.
func (b *FetchBuffer) Poll() *fetch.ShareCompletedFetch {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.completed) == 0 {
		return nil
	}
	f := b.completed[0]
	b.completed[0] = nil
	b.completed = b.completed[1:]
	metrics.BufferedFetches.Set(float64(len(b.completed)))
	return f
}

func (b *FetchBuffer) NextInLine() *fetch.ShareCompletedFetch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextInLine
}

func (b *FetchBuffer) SetNextInLine(f *fetch.ShareCompletedFetch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextInLine = f
}

// IsEmpty reports whether no fetch is queued. The next-in-line fetch is not
// counted.
func (b *FetchBuffer) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.completed) == 0
}

func (b *FetchBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.completed)
}

// AwaitNotEmpty blocks until a fetch is queued or ctx is done.
func (b *FetchBuffer) AwaitNotEmpty(ctx context.Context) error {
	for {
		if !b.IsEmpty() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.notify:
		}
	}
}

// Close drains every queued fetch and the next-in-line fetch. Fetches added
// afterwards are drained immediately.
func (b *FetchBuffer) Close() {
	b.mu.Lock()
	fetches := b.completed
	if b.nextInLine != nil {
		fetches = append(fetches, b.nextInLine)
	}
	b.completed = nil
	b.nextInLine = nil
	b.closed = true
	metrics.BufferedFetches.Set(0)
	b.mu.Unlock()

	for _, f := range fetches {
		f.Drain()
	}
}

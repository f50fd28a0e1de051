package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tabslayer/tabslayer-server/internal/store"
)

type fakeAnnotator struct {
	mu     sync.Mutex
	result Annotation
	err    error
	calls  []string
}

func (f *fakeAnnotator) Annotate(ctx context.Context, url string) (Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err := ctx.Err(); err != nil {
		return Annotation{}, err
	}
	return f.result, f.err
}

// blockingQuerier parks every call until release receives a value.
type blockingQuerier struct {
	started chan struct{}
	release chan QueryResult
	err     error
	links   [][]store.Link
}

func newBlockingQuerier() *blockingQuerier {
	return &blockingQuerier{started: make(chan struct{}, 8), release: make(chan QueryResult)}
}

func (q *blockingQuerier) Query(_ context.Context, _ string, links []store.Link) (QueryResult, error) {
	q.links = append(q.links, links)
	q.started <- struct{}{}
	r := <-q.release
	return r, q.err
}

type stubQuerier struct {
	result QueryResult
	err    error
	got    []store.Link
}

func (q *stubQuerier) Query(_ context.Context, _ string, links []store.Link) (QueryResult, error) {
	q.got = links
	return q.result, q.err
}

type publishedEvent struct {
	Type string
	Data interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
}

func (p *recordingPublisher) ofType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// countingKV counts writes and can be told to fail them. Like the real
// backends it refuses to write with a cancelled context.
type countingKV struct {
	*store.MemoryStore
	mu      sync.Mutex
	sets    int
	failSet bool
}

func newCountingKV() *countingKV {
	return &countingKV{MemoryStore: store.NewMemoryStore()}
}

func (k *countingKV) Set(ctx context.Context, key, value string) error {
	k.mu.Lock()
	k.sets++
	fail := k.failSet
	k.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.MemoryStore.Set(ctx, key, value)
}

func (k *countingKV) setCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sets
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("link-%d", n)
	}
}

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

// gatedAnnotator blocks until gate is closed.
type gatedAnnotator struct {
	gate    chan struct{}
	mu      sync.Mutex
	started bool
}

func (g *gatedAnnotator) Annotate(context.Context, string) (Annotation, error) {
	g.mu.Lock()
	g.started = true
	g.mu.Unlock()
	<-g.gate
	return Annotation{Title: "slow"}, nil
}

func (g *gatedAnnotator) waiting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

package notify

import (
	"context"
	"sync"
)

// MemoryPublisher keeps published notifications in memory.
type MemoryPublisher struct {
	mu        sync.Mutex
	published []Notification
	failWith  error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, n)
	return nil
}

// FailWith makes subsequent Publish calls return err. Nil restores normal delivery.
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	p.failWith = err
	p.mu.Unlock()
}

// Published returns a copy of every notification received so far.
func (p *MemoryPublisher) Published() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Notification(nil), p.published...)
}

// Reset forgets recorded notifications.
func (p *MemoryPublisher) Reset() {
	p.mu.Lock()
	p.published = nil
	p.mu.Unlock()
}

// internal/browser/pool.go
package browser

import (
	"context"
	"fmt"
	"sync"
)

// SessionPool hands out reusable tabs, creating at most maxSize of them
type SessionPool struct {
	baseCtx     context.Context
	factory     func(ctx context.Context) (Tab, error)
	idle        chan Tab
	slots       chan struct{}
	maxSize     int
	mu          sync.Mutex
	currentSize int
	closed      bool
}

// NewSessionPool creates a pool. Tabs are created lazily from baseCtx.
func NewSessionPool(baseCtx context.Context, maxSize int, factory func(ctx context.Context) (Tab, error)) *SessionPool {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &SessionPool{
		baseCtx: baseCtx,
		factory: factory,
		idle:    make(chan Tab, maxSize),
		slots:   make(chan struct{}, maxSize),
		maxSize: maxSize,
	}
}

// Get returns an idle tab, opens a new one while under the limit, or waits
// for one to be returned.
func (p *SessionPool) Get(ctx context.Context) (Tab, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("session pool is closed")
	}
	p.mu.Unlock()

	select {
	case tab := <-p.idle:
		return tab, nil
	default:
	}

	select {
	case tab := <-p.idle:
		return tab, nil
	case p.slots <- struct{}{}:
		tab, err := p.factory(p.baseCtx)
		if err != nil {
			<-p.slots
			return nil, err
		}
		p.mu.Lock()
		p.currentSize++
		p.mu.Unlock()
		return tab, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns a healthy tab to the pool
func (p *SessionPool) Put(tab Tab) {
	if tab == nil {
		return
	}
	// closed is checked and the tab queued under one lock so Close either
	// sees the tab in idle or Put sees closed
	p.mu.Lock()
	queued := false
	if !p.closed {
		select {
		case p.idle <- tab:
			queued = true
		default:
		}
	}
	p.mu.Unlock()
	if !queued {
		p.Discard(tab)
	}
}

// Discard closes a tab and frees its slot
func (p *SessionPool) Discard(tab Tab) {
	if tab == nil {
		return
	}
	tab.Close()
	p.mu.Lock()
	p.currentSize--
	p.mu.Unlock()
	<-p.slots
}

// Idle returns the number of tabs waiting in the pool
func (p *SessionPool) Idle() int {
	return len(p.idle)
}

// TotalSize returns the number of live tabs
func (p *SessionPool) TotalSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentSize
}

// Close closes idle tabs; tabs still borrowed are closed when returned
func (p *SessionPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case tab := <-p.idle:
			p.Discard(tab)
		default:
			return nil
		}
	}
}

package lockqueue

import (
	"context"
	"sync"
	"time"
)

// MemoryService is an in-process LockService + QueueService, grounded on
// the teacher's Hub pattern in internal/api/websocket.go: a single mutex
// guarding a plain map, with blocking handled via channels rather than
// spin-polling. Suitable for single-instance deployment (spec.md §4.2).
type MemoryService struct {
	mu    sync.Mutex
	locks map[string]chan struct{} // name -> held-token channel (buffered 1)

	qmu    sync.Mutex
	queues map[string][]QueueItem
}

// NewMemoryService constructs an empty in-memory lock+queue service.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		locks:  make(map[string]chan struct{}),
		queues: make(map[string][]QueueItem),
	}
}

func (m *MemoryService) tokenFor(name string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.locks[name]
	if !ok {
		ch = make(chan struct{}, 1)
		ch <- struct{}{}
		m.locks[name] = ch
	}
	return ch
}

type memoryHandle struct {
	ch chan struct{}
}

func (h *memoryHandle) Release() {
	h.ch <- struct{}{}
}

// Lock blocks until the named token is available, ctx is done, or
// timeout elapses.
func (m *MemoryService) Lock(ctx context.Context, _ LockClass, name string, timeout time.Duration) (Handle, error) {
	ch := m.tokenFor(name)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return &memoryHandle{ch: ch}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, timeoutErr(name)
	}
}

func (m *MemoryService) Push(_ context.Context, name string, item QueueItem) error {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	m.queues[name] = append(m.queues[name], item)
	return nil
}

func (m *MemoryService) Peek(_ context.Context, name string) (QueueItem, bool, error) {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	q := m.queues[name]
	if len(q) == 0 {
		return nil, false, nil
	}
	return q[0], true, nil
}

func (m *MemoryService) Pop(_ context.Context, name string) (QueueItem, bool, error) {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	q := m.queues[name]
	if len(q) == 0 {
		return nil, false, nil
	}
	item := q[0]
	m.queues[name] = q[1:]
	return item, true, nil
}

func (m *MemoryService) Remove(_ context.Context, name string, target QueueItem) (bool, error) {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	q := m.queues[name]
	for i, item := range q {
		if queueItemEqual(item, target) {
			m.queues[name] = append(q[:i], q[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryService) Length(_ context.Context, name string) (int, error) {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	return len(m.queues[name]), nil
}

func queueItemEqual(a, b QueueItem) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

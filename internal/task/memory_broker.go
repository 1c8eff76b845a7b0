package task

import (
	"context"
	"sync"
	"time"
)

// MemoryBroker is an in-process Broker for tests and single-node setups
// without Redis. Queue and pub/sub semantics match RedisBroker: queued
// payloads wait for a consumer, published payloads reach only current
// subscribers.
type MemoryBroker struct {
	mu     sync.Mutex
	queues map[string]chan []byte
	subs   map[string]map[*memorySubscription]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		queues: make(map[string]chan []byte),
		subs:   make(map[string]map[*memorySubscription]struct{}),
	}
}

func (b *MemoryBroker) queue(name string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = make(chan []byte, 1024)
		b.queues[name] = q
	}
	return q
}

func (b *MemoryBroker) Enqueue(ctx context.Context, queue string, payload []byte) error {
	select {
	case b.queue(queue) <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBroker) Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case payload := <-b.queue(queue):
		return payload, true, nil
	case <-timer.C:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var delivered int64
	for sub := range b.subs[channel] {
		select {
		case sub.out <- payload:
			delivered++
		default:
			// Slow subscriber with a full buffer misses the message,
			// matching fire-and-forget pub/sub semantics.
		}
	}
	return delivered, nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := &memorySubscription{
		broker:  b,
		channel: channel,
		out:     make(chan []byte, 16),
	}
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()
	return sub, nil
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	out     chan []byte
	once    sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.out
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		delete(s.broker.subs[s.channel], s)
		close(s.out)
	})
	return nil
}

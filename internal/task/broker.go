package task

import (
	"context"
	"time"
)

// Subscription is one client's live feed of published payloads. Close is
// idempotent and stops the Messages channel.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Broker is the queue plus pub/sub transport between the API process and
// the worker pool. The two sides share no memory, only the broker.
type Broker interface {
	// Enqueue appends a payload to the named work queue.
	Enqueue(ctx context.Context, queue string, payload []byte) error
	// Dequeue blocks up to timeout for the next payload. A timeout is not
	// an error; ok reports whether a payload was received.
	Dequeue(ctx context.Context, queue string, timeout time.Duration) (payload []byte, ok bool, err error)
	// Publish sends a payload to every current subscriber of the channel
	// and reports how many received it.
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
	// Subscribe opens a subscription on the channel.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

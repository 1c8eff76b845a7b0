package task

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Dispatcher submits RAG completion work to the queue. The caller gets the
// task id back immediately and never blocks on the LLM.
type Dispatcher struct {
	broker  Broker
	pending *PendingRegistry
}

func NewDispatcher(broker Broker, pending *PendingRegistry) *Dispatcher {
	return &Dispatcher{broker: broker, pending: pending}
}

// Dispatch registers the pending mapping, then enqueues the message. The
// order matters: once the message is on the queue a worker may publish the
// result at any moment, and the mapping must already exist for the fanout
// to honor it. A failed enqueue rolls the registration back.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) error {
	if msg.MessageID == "" {
		return fmt.Errorf("dispatch: message_id is required")
	}
	if msg.ClientID == "" {
		return fmt.Errorf("dispatch: client_id is required")
	}
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	d.pending.Register(msg.MessageID, msg.ClientID)
	if err := d.broker.Enqueue(ctx, QueueName, payload); err != nil {
		d.pending.Complete(msg.MessageID)
		return fmt.Errorf("dispatch task %s: %w", msg.MessageID, err)
	}
	logutil.GetLogger(ctx).Debug("task dispatched",
		zap.String("task_id", msg.MessageID), zap.String("client_id", msg.ClientID))
	return nil
}

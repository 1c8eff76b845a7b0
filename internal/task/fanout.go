package task

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Fanout routes published results to the one live connection waiting for
// them. Each connection runs exactly one Listen call for its client id.
type Fanout struct {
	broker  Broker
	pending *PendingRegistry
}

func NewFanout(broker Broker, pending *PendingRegistry) *Fanout {
	return &Fanout{broker: broker, pending: pending}
}

// Listen subscribes on the client's result channel and forwards every
// payload through deliver until ctx is cancelled or deliver fails. On
// return the subscription is closed and the client's pending tasks are
// purged; in-flight worker computations are unaffected.
func (f *Fanout) Listen(ctx context.Context, clientID string, deliver func(payload []byte) error) error {
	logger := logutil.GetLogger(ctx).With(zap.String("client_id", clientID))
	sub, err := f.broker.Subscribe(ctx, ResultChannel(clientID))
	if err != nil {
		return err
	}
	defer func() {
		_ = sub.Close()
		if purged := f.pending.PurgeClient(clientID); purged > 0 {
			logger.Info("purged pending tasks for disconnected client", zap.Int("count", purged))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			env, err := DecodeResultEnvelope(payload)
			if err != nil {
				logger.Warn("discarding malformed result payload", zap.Error(err))
				continue
			}
			if _, ok := f.pending.Complete(env.TaskID); !ok {
				logger.Info("result for unknown task, dropped", zap.String("task_id", env.TaskID))
				continue
			}
			if err := deliver(payload); err != nil {
				logger.Warn("failed to deliver result, closing subscriber", zap.Error(err))
				return err
			}
			logger.Debug("result delivered", zap.String("task_id", env.TaskID))
		}
	}
}

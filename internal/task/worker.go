package task

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/kweaver00/askgraph/internal/ai"
)

// Completer produces an answer from a system prompt and a user prompt.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, prompt string) (string, error)
}

// HistoryStore persists the question/answer pair a task produced. The side
// effect happens even if the asking client is gone.
type HistoryStore interface {
	SaveAnswer(ctx context.Context, sessionID, userID, question, answer string) error
}

// Worker consumes queued tasks, runs the LLM completion with bounded
// retries and publishes results on the asking client's channel.
type Worker struct {
	broker      Broker
	completer   Completer
	history     HistoryStore
	pool        *ants.Pool
	maxRetries  int
	retryBase   time.Duration
	pollTimeout time.Duration
}

type WorkerOption func(*Worker)

func WithRetry(maxRetries int, base time.Duration) WorkerOption {
	return func(w *Worker) {
		w.maxRetries = maxRetries
		w.retryBase = base
	}
}

func WithPollTimeout(timeout time.Duration) WorkerOption {
	return func(w *Worker) {
		w.pollTimeout = timeout
	}
}

func NewWorker(broker Broker, completer Completer, history HistoryStore, concurrency int, opts ...WorkerOption) (*Worker, error) {
	if concurrency <= 0 {
		concurrency = 4
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, err
	}
	w := &Worker{
		broker:      broker,
		completer:   completer,
		history:     history,
		pool:        pool,
		maxRetries:  2,
		retryBase:   60 * time.Second,
		pollTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run consumes the queue until ctx is cancelled. Tasks in flight when the
// context ends run to completion; their chat-history side effect is still
// worth finishing.
func (w *Worker) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	logger.Info("worker started", zap.String("queue", QueueName))
	defer w.pool.Release()
	for {
		payload, ok, err := w.broker.Dequeue(ctx, QueueName, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("failed to dequeue task", zap.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		raw := payload
		if err := w.pool.Submit(func() {
			w.handle(context.WithoutCancel(ctx), raw)
		}); err != nil {
			logger.Error("failed to submit task to pool", zap.Error(err))
		}
	}
}

func (w *Worker) handle(ctx context.Context, payload []byte) {
	logger := logutil.GetLogger(ctx)
	msg, err := DecodeMessage(payload)
	if err != nil {
		logger.Error("discarding malformed task", zap.Error(err))
		return
	}
	logger = logger.With(zap.String("task_id", msg.MessageID), zap.String("client_id", msg.ClientID))

	answer, err := w.complete(ctx, msg)
	if err != nil {
		logger.Error("task failed permanently, no result will be published",
			zap.Int("attempts", w.maxRetries+1), zap.Error(err))
		return
	}

	if msg.SessionID != "" && msg.UserID != "" {
		if err := w.history.SaveAnswer(ctx, msg.SessionID, msg.UserID, msg.Question, answer); err != nil {
			logger.Warn("failed to persist answer to chat history", zap.Error(err))
		}
	}

	env := NewResultEnvelope(msg.MessageID, msg.Question, answer)
	raw, err := env.Encode()
	if err != nil {
		logger.Error("failed to encode result envelope", zap.Error(err))
		return
	}
	receivers, err := w.broker.Publish(ctx, ResultChannel(msg.ClientID), raw)
	if err != nil {
		logger.Error("failed to publish result", zap.Error(err))
		return
	}
	if receivers == 0 {
		logger.Info("client gone before delivery, result dropped")
		return
	}
	logger.Debug("result published", zap.Int64("receivers", receivers))
}

// complete runs the LLM call with exponential backoff: base, 2x base, ...
// up to maxRetries extra attempts.
func (w *Worker) complete(ctx context.Context, msg *Message) (string, error) {
	prompt := ai.BuildAnswerPrompt(msg.Question, msg.ScoredChunks())
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			delay := w.retryBase << (attempt - 1)
			logutil.GetLogger(ctx).Warn("retrying task",
				zap.String("task_id", msg.MessageID), zap.Int("attempt", attempt),
				zap.Duration("delay", delay), zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		answer, err := w.completer.Complete(ctx, ai.AnswerSystemPrompt, prompt)
		if err == nil {
			return answer, nil
		}
		lastErr = err
	}
	return "", lastErr
}

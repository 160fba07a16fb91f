package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-account-support/core"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const JobIDProcessDelivery = "account_support.delivery.process"

const (
	parameterPayload    = "payload"
	parameterDeliveryID = "delivery_id"
)

// DeliveryProcessor runs one raw notification payload through the handler.
// inbound.Processor satisfies it.
type DeliveryProcessor interface {
	Process(ctx context.Context, payload []byte) (core.InvocationResult, error)
}

// RetryPolicy defines queue retry bounds to avoid unbounded redelivery loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// NewDeliveryMessage wraps a raw notification payload for the queue. The
// delivery id doubles as the idempotency key so the queue itself can collapse
// duplicate enqueues.
func NewDeliveryMessage(deliveryID string, payload []byte) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID: JobIDProcessDelivery,
		Parameters: map[string]any{
			parameterPayload:    string(payload),
			parameterDeliveryID: strings.TrimSpace(deliveryID),
		},
		IdempotencyKey: strings.TrimSpace(deliveryID),
	}
}

// PayloadFromMessage extracts the raw notification payload from a queue
// message.
func PayloadFromMessage(msg *job.ExecutionMessage) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("gojob: execution message is required")
	}
	value, ok := msg.Parameters[parameterPayload]
	if !ok {
		return nil, fmt.Errorf("gojob: execution message has no payload parameter")
	}
	payload, ok := value.(string)
	if !ok || strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("gojob: execution message payload is empty")
	}
	return []byte(payload), nil
}

// DeliveryIDFromMessage returns the delivery id carried in the message, if
// any.
func DeliveryIDFromMessage(msg *job.ExecutionMessage) string {
	if msg == nil {
		return ""
	}
	if value, ok := msg.Parameters[parameterDeliveryID]; ok {
		if deliveryID, ok := value.(string); ok {
			return strings.TrimSpace(deliveryID)
		}
	}
	return strings.TrimSpace(msg.IdempotencyKey)
}

// DeliveryWorker consumes queued notification deliveries and settles each
// one against the queue: ack on success or skip, delayed requeue on
// retryable failures, dead letter on permanent ones.
type DeliveryWorker struct {
	Processor DeliveryProcessor
	Backoff   core.BackoffScheduler
	Policy    RetryPolicy
	Logger    glog.Logger
}

func NewDeliveryWorker(processor DeliveryProcessor) *DeliveryWorker {
	return &DeliveryWorker{
		Processor: processor,
		Backoff:   core.ExponentialBackoffScheduler{},
		Policy: RetryPolicy{
			MaxAttempts:     8,
			DeadLetterOnMax: true,
		},
		Logger: glog.Nop(),
	}
}

// Handle processes a single delivery on its first attempt.
func (w *DeliveryWorker) Handle(ctx context.Context, delivery queue.Delivery) (core.InvocationResult, error) {
	return w.HandleAttempt(ctx, delivery, 1)
}

func (w *DeliveryWorker) HandleAttempt(
	ctx context.Context,
	delivery queue.Delivery,
	attempt int,
) (core.InvocationResult, error) {
	if w == nil || w.Processor == nil {
		return core.InvocationResult{}, fmt.Errorf("gojob: delivery worker requires a processor")
	}
	if delivery == nil {
		return core.InvocationResult{}, fmt.Errorf("gojob: delivery is required")
	}

	msg := delivery.Message()
	deliveryID := DeliveryIDFromMessage(msg)
	payload, err := PayloadFromMessage(msg)
	if err != nil {
		w.logger().Error("delivery message rejected", "delivery_id", deliveryID, "error", err)
		if nackErr := delivery.Nack(ctx, queue.NackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		}); nackErr != nil {
			return core.InvocationResult{}, nackErr
		}
		return core.InvocationResult{Outcome: core.OutcomeFailed, Reason: err.Error()}, err
	}

	result, err := w.Processor.Process(ctx, payload)
	if err == nil {
		if ackErr := delivery.Ack(ctx); ackErr != nil {
			return result, ackErr
		}
		return result, nil
	}

	if core.IsRetryable(err) {
		opts := w.Policy.Normalize(queue.NackOptions{
			Delay:   w.backoff().NextDelay(attempt),
			Requeue: true,
			Reason:  err.Error(),
		}, attempt)
		w.logger().Warn(
			"delivery processing failed, requeueing",
			"delivery_id", deliveryID,
			"attempt", attempt,
			"delay_ms", opts.Delay.Milliseconds(),
			"dead_letter", opts.DeadLetter,
			"error", err,
		)
		if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
			return result, nackErr
		}
		return result, err
	}

	w.logger().Error(
		"delivery processing failed permanently",
		"delivery_id", deliveryID,
		"attempt", attempt,
		"error", err,
	)
	if nackErr := delivery.Nack(ctx, queue.NackOptions{
		DeadLetter: true,
		Reason:     err.Error(),
	}); nackErr != nil {
		return result, nackErr
	}
	return result, err
}

func (w *DeliveryWorker) backoff() core.BackoffScheduler {
	if w != nil && w.Backoff != nil {
		return w.Backoff
	}
	return core.ExponentialBackoffScheduler{}
}

func (w *DeliveryWorker) logger() glog.Logger {
	if w != nil && w.Logger != nil {
		return w.Logger
	}
	return glog.Nop()
}

// LoggingHook surfaces worker lifecycle events through the service logger.
type LoggingHook struct {
	Logger glog.Logger
}

func NewLoggingHook(logger glog.Logger) *LoggingHook {
	return &LoggingHook{Logger: logger}
}

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	h.logger().Debug("delivery attempt started", eventFields(event)...)
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	h.logger().Info("delivery attempt succeeded", eventFields(event)...)
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	h.logger().Error("delivery attempt failed", eventFields(event)...)
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	h.logger().Warn("delivery attempt will retry", eventFields(event)...)
}

func (h *LoggingHook) logger() glog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return glog.Nop()
}

func eventFields(event worker.Event) []any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fields := []any{
		"delivery_id", DeliveryIDFromMessage(message),
		"attempt", event.Attempt,
		"duration_ms", event.Duration.Milliseconds(),
	}
	if event.Err != nil {
		fields = append(fields, "error", event.Err)
	}
	return fields
}

var _ worker.Hook = (*LoggingHook)(nil)

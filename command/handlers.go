package command

import (
	"context"

	"github.com/goliatone/go-account-support/core"
	gocmd "github.com/goliatone/go-command"
)

type MutatingService interface {
	ProcessEvent(ctx context.Context, event core.AccountEvent) (core.InvocationResult, error)
	OpenCase(ctx context.Context, accountID string) (core.InvocationResult, error)
}

// DeliveryProcessor handles raw payloads end to end, including dedupe when a
// ledger is wired.
type DeliveryProcessor interface {
	Process(ctx context.Context, payload []byte) (core.InvocationResult, error)
}

type ProcessEventCommand struct {
	service MutatingService
}

func NewProcessEventCommand(service MutatingService) *ProcessEventCommand {
	return &ProcessEventCommand{service: service}
}

func (c *ProcessEventCommand) Execute(ctx context.Context, msg ProcessEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account case service is required")
	}
	out, err := c.service.ProcessEvent(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ProcessDeliveryCommand struct {
	processor DeliveryProcessor
}

func NewProcessDeliveryCommand(processor DeliveryProcessor) *ProcessDeliveryCommand {
	return &ProcessDeliveryCommand{processor: processor}
}

func (c *ProcessDeliveryCommand) Execute(ctx context.Context, msg ProcessDeliveryMessage) error {
	if c == nil || c.processor == nil {
		return commandDependencyError("command: delivery processor is required")
	}
	out, err := c.processor.Process(ctx, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type OpenCaseCommand struct {
	service MutatingService
}

func NewOpenCaseCommand(service MutatingService) *OpenCaseCommand {
	return &OpenCaseCommand{service: service}
}

func (c *OpenCaseCommand) Execute(ctx context.Context, msg OpenCaseMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account case service is required")
	}
	out, err := c.service.OpenCase(ctx, msg.AccountID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

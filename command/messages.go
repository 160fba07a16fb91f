package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-account-support/core"
)

const (
	TypeProcessEvent    = "account_support.command.event.process"
	TypeProcessDelivery = "account_support.command.delivery.process"
	TypeOpenCase        = "account_support.command.case.open"
)

type ProcessEventMessage struct {
	Event core.AccountEvent
}

func (ProcessEventMessage) Type() string { return TypeProcessEvent }

func (m ProcessEventMessage) Validate() error {
	if err := m.Event.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid account event")
	}
	return nil
}

// ProcessDeliveryMessage carries a raw notification payload straight off the
// transport, before normalization.
type ProcessDeliveryMessage struct {
	Payload []byte
}

func (ProcessDeliveryMessage) Type() string { return TypeProcessDelivery }

func (m ProcessDeliveryMessage) Validate() error {
	if len(m.Payload) == 0 {
		return commandInvalidInputError("command: payload is required")
	}
	return nil
}

type OpenCaseMessage struct {
	AccountID string
}

func (OpenCaseMessage) Type() string { return TypeOpenCase }

func (m OpenCaseMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return commandValidationError("account_id", fmt.Sprintf("account id is required, got %q", m.AccountID))
	}
	return nil
}

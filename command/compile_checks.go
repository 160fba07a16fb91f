package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessEventMessage]    = (*ProcessEventCommand)(nil)
	_ gocmd.Commander[ProcessDeliveryMessage] = (*ProcessDeliveryCommand)(nil)
	_ gocmd.Commander[OpenCaseMessage]        = (*OpenCaseCommand)(nil)
)

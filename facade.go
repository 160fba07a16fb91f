package accountsupport

import (
	"fmt"

	"github.com/goliatone/go-account-support/adapters/gojob"
	"github.com/goliatone/go-account-support/adapters/gologger"
	supportcommand "github.com/goliatone/go-account-support/command"
	"github.com/goliatone/go-account-support/core"
	"github.com/goliatone/go-account-support/inbound"
	supportquery "github.com/goliatone/go-account-support/query"
	glog "github.com/goliatone/go-logger/glog"
)

type Commands struct {
	ProcessEvent    *supportcommand.ProcessEventCommand
	ProcessDelivery *supportcommand.ProcessDeliveryCommand
	OpenCase        *supportcommand.OpenCaseCommand
}

type Queries struct {
	GetCaseRecord   *supportquery.GetCaseRecordQuery
	ListCaseRecords *supportquery.ListCaseRecordsQuery
}

// Facade bundles the command and query handlers over one service plus its
// inbound processor, so hosts wire a single value.
type Facade struct {
	service   core.AccountCaseService
	processor *inbound.Processor
	commands  Commands
	queries   Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	ledger core.CaseLedger
	reader core.CaseRecordReader
}

// WithFacadeLedger wires a claim ledger into the inbound processor. When the
// ledger also satisfies core.CaseRecordReader it backs the query handlers.
func WithFacadeLedger(ledger core.CaseLedger) FacadeOption {
	return func(options *facadeOptions) {
		options.ledger = ledger
	}
}

func WithCaseRecordReader(reader core.CaseRecordReader) FacadeOption {
	return func(options *facadeOptions) {
		options.reader = reader
	}
}

func NewFacade(service core.AccountCaseService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("accountsupport: account case service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	ledger := cfg.ledger
	if ledger == nil {
		ledger = resolveLedger(service)
	}
	reader := cfg.reader
	if reader == nil {
		if candidate, ok := ledger.(core.CaseRecordReader); ok {
			reader = candidate
		}
	}

	processor := inbound.NewProcessor(service)
	processor.Ledger = ledger

	facade := &Facade{
		service:   service,
		processor: processor,
	}
	facade.commands = Commands{
		ProcessEvent:    supportcommand.NewProcessEventCommand(service),
		ProcessDelivery: supportcommand.NewProcessDeliveryCommand(processor),
		OpenCase:        supportcommand.NewOpenCaseCommand(service),
	}
	facade.queries = Queries{
		GetCaseRecord:   supportquery.NewGetCaseRecordQuery(reader),
		ListCaseRecords: supportquery.NewListCaseRecordsQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() core.AccountCaseService {
	if f == nil {
		return nil
	}
	return f.service
}

func (f *Facade) Processor() *inbound.Processor {
	if f == nil {
		return nil
	}
	return f.processor
}

// DeliveryWorker builds a queue worker over this facade's processor. The
// logger pair is bridged so worker output lands in the same sink as the
// handler; pass nils to log nowhere.
func (f *Facade) DeliveryWorker(provider glog.LoggerProvider, logger glog.Logger) (*gojob.DeliveryWorker, *gojob.LoggingHook) {
	if f == nil || f.processor == nil {
		return nil, nil
	}
	bridge := gologger.NewBridge(gologger.DefaultLoggerName, provider, logger)
	worker := gojob.NewDeliveryWorker(f.processor)
	worker.Logger = bridge.WorkerLogger()
	return worker, gojob.NewLoggingHook(bridge.WorkerLogger())
}

func resolveLedger(service core.AccountCaseService) core.CaseLedger {
	provider, ok := service.(interface{ Ledger() core.CaseLedger })
	if !ok {
		return nil
	}
	return provider.Ledger()
}

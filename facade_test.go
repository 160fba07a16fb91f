package accountsupport

import (
	"context"
	"fmt"
	"testing"

	supportcommand "github.com/goliatone/go-account-support/command"
	"github.com/goliatone/go-account-support/core"
	"github.com/goliatone/go-account-support/inbound"
	supportquery "github.com/goliatone/go-account-support/query"
	gocmd "github.com/goliatone/go-command"
)

type facadeStatusLookup struct{}

func (facadeStatusLookup) DescribeCreationStatus(context.Context, string) (core.CreationStatus, error) {
	return core.CreationStatus{
		State:     core.CreationStateSucceeded,
		AccountID: "111122223333",
	}, nil
}

type facadeCaseCreator struct {
	calls int
}

func (c *facadeCaseCreator) CreateCase(context.Context, core.CaseRequest) (string, error) {
	c.calls++
	return fmt.Sprintf("case-%d", c.calls), nil
}

func facadeConfig() Config {
	cfg := DefaultConfig()
	cfg.Case.Subject = "Additional account ${account_id} actions"
	cfg.Case.Body = "Please apply baseline actions to ${account_id}."
	cfg.Case.CCList = []string{"cloud-team@example.com"}
	cfg.Reconcile.InitialBackoff = 0
	cfg.Reconcile.MaxBackoff = 0
	return cfg
}

func newFacadeService(t *testing.T, creator *facadeCaseCreator, ledger core.CaseLedger) *Service {
	t.Helper()
	options := []Option{
		WithCreationStatusLookup(facadeStatusLookup{}),
		WithSupportCaseCreator(creator),
	}
	if ledger != nil {
		options = append(options, WithCaseLedger(ledger))
	}
	service, err := NewService(facadeConfig(), options...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	service := newFacadeService(t, &facadeCaseCreator{}, inbound.NewMemoryCaseLedger())

	facade, err := NewFacade(service)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.ProcessEvent == nil || commands.ProcessDelivery == nil || commands.OpenCase == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.GetCaseRecord == nil || queries.ListCaseRecords == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Processor() == nil || facade.Processor().Ledger == nil {
		t.Fatalf("expected the service ledger to reach the inbound processor")
	}
}

func TestFacade_DeliveryWorkerUsesProcessor(t *testing.T) {
	service := newFacadeService(t, &facadeCaseCreator{}, inbound.NewMemoryCaseLedger())

	facade, err := NewFacade(service)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	worker, hook := facade.DeliveryWorker(nil, nil)
	if worker == nil || hook == nil {
		t.Fatalf("expected worker and hook")
	}
	if worker.Processor != facade.Processor() {
		t.Fatalf("expected worker to run the facade processor")
	}
	if worker.Logger == nil {
		t.Fatalf("expected a resolved worker logger")
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

func TestFacade_DeliveryLifecycleEndToEnd(t *testing.T) {
	creator := &facadeCaseCreator{}
	service := newFacadeService(t, creator, inbound.NewMemoryCaseLedger())
	facade, err := NewFacade(service)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	payload := []byte(`{
		"id": "delivery-facade-1",
		"source": "aws.organizations",
		"time": "2024-05-01T12:00:00Z",
		"detail": {
			"eventName": "InviteAccountToOrganization",
			"requestParameters": {"target": {"id": "111122223333", "type": "ACCOUNT"}}
		}
	}`)

	collector := gocmd.NewResult[core.InvocationResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().ProcessDelivery.Execute(ctx, supportcommand.ProcessDeliveryMessage{
		Payload: payload,
	}); err != nil {
		t.Fatalf("process delivery: %v", err)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected collected invocation result")
	}
	if result.Outcome != core.OutcomeSuccess || result.CaseID != "case-1" {
		t.Fatalf("expected opened case, got %+v", result)
	}
	if creator.calls != 1 {
		t.Fatalf("expected one case submission, got %d", creator.calls)
	}

	// Redelivery of the same notification surfaces the original case.
	dupCollector := gocmd.NewResult[core.InvocationResult]()
	dupCtx := gocmd.ContextWithResult(context.Background(), dupCollector)
	if err := facade.Commands().ProcessDelivery.Execute(dupCtx, supportcommand.ProcessDeliveryMessage{
		Payload: payload,
	}); err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}
	duplicate, ok := dupCollector.Load()
	if !ok {
		t.Fatalf("expected collected duplicate result")
	}
	if duplicate.Outcome != core.OutcomeSkipped || duplicate.CaseID != "case-1" {
		t.Fatalf("expected skipped duplicate with original case id, got %+v", duplicate)
	}
	if creator.calls != 1 {
		t.Fatalf("expected no second submission, got %d", creator.calls)
	}

	record, err := facade.Queries().GetCaseRecord.Query(context.Background(), supportquery.GetCaseRecordMessage{
		Source:     "organizations",
		DeliveryID: "delivery-facade-1",
	})
	if err != nil {
		t.Fatalf("get case record: %v", err)
	}
	if record.Status != core.CaseRecordStatusOpened || record.CaseID != "case-1" {
		t.Fatalf("expected opened ledger record, got %+v", record)
	}

	page, err := facade.Queries().ListCaseRecords.Query(context.Background(), supportquery.ListCaseRecordsMessage{
		Filter: core.CaseRecordFilter{AccountID: "111122223333"},
	})
	if err != nil {
		t.Fatalf("list case records: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected one ledger record, got %d", page.Total)
	}
}

func TestFacade_OpenCaseDirectPath(t *testing.T) {
	creator := &facadeCaseCreator{}
	service := newFacadeService(t, creator, nil)
	facade, err := NewFacade(service)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.InvocationResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().OpenCase.Execute(ctx, supportcommand.OpenCaseMessage{
		AccountID: "444455556666",
	}); err != nil {
		t.Fatalf("open case: %v", err)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected collected result")
	}
	if result.Outcome != core.OutcomeSuccess || result.AccountID != "444455556666" {
		t.Fatalf("expected direct open case success, got %+v", result)
	}
}

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-account-support/core"
	"github.com/goliatone/go-account-support/inbound"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultListPerPage = 25

// CaseLedgerStore is the bun-backed core.CaseLedger. The unique index on
// (source, delivery_id) is what makes Claim safe across instances: the first
// insert wins and every concurrent claim falls into the reclaim path.
type CaseLedgerStore struct {
	db   *bun.DB
	repo repository.Repository[*caseLedgerRecord]
	now  func() time.Time
}

func NewCaseLedgerStore(db *bun.DB) (*CaseLedgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*caseLedgerRecord](db, caseLedgerHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid case ledger repository wiring: %w", err)
		}
	}
	return &CaseLedgerStore{
		db:   db,
		repo: repo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *CaseLedgerStore) Claim(
	ctx context.Context,
	claim core.CaseClaim,
	lease time.Duration,
) (core.CaseRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.CaseRecord{}, false, fmt.Errorf("sqlstore: case ledger store is not configured")
	}
	source := normalizedSource(claim.Source)
	deliveryID := strings.TrimSpace(claim.DeliveryID)
	if deliveryID == "" {
		return core.CaseRecord{}, false, fmt.Errorf("sqlstore: delivery id is required")
	}
	if lease <= 0 {
		lease = inbound.DefaultClaimLease
	}
	now := s.clock()
	leaseExpiry := now.Add(lease)

	record := &caseLedgerRecord{
		ID:            uuid.NewString(),
		ClaimID:       uuid.NewString(),
		Source:        source,
		DeliveryID:    deliveryID,
		EventName:     strings.TrimSpace(claim.EventName),
		AccountID:     strings.TrimSpace(claim.AccountID),
		RequestID:     strings.TrimSpace(claim.RequestID),
		Status:        string(core.CaseRecordStatusProcessing),
		Attempts:      1,
		Payload:       append([]byte(nil), claim.Payload...),
		NextAttemptAt: &leaseExpiry,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return s.reclaim(ctx, source, deliveryID, lease)
		}
		return core.CaseRecord{}, false, err
	}
	return caseLedgerToDomain(record), true, nil
}

// reclaim handles a delivery that already holds a ledger row. Settled rows
// never reopen; an expired lease or an elapsed retry window is taken over
// under a fresh claim id. The UPDATE is guarded by the previous claim id so
// two racing instances cannot both win.
func (s *CaseLedgerStore) reclaim(
	ctx context.Context,
	source string,
	deliveryID string,
	lease time.Duration,
) (core.CaseRecord, bool, error) {
	existing, err := s.load(ctx, source, deliveryID)
	if err != nil {
		return core.CaseRecord{}, false, err
	}

	switch core.CaseRecordStatus(existing.Status) {
	case core.CaseRecordStatusOpened, core.CaseRecordStatusDead:
		return caseLedgerToDomain(existing), false, nil
	}

	now := s.clock()
	if existing.NextAttemptAt != nil && now.Before(*existing.NextAttemptAt) {
		return caseLedgerToDomain(existing), false, nil
	}

	claimID := uuid.NewString()
	leaseExpiry := now.Add(lease)
	res, err := s.db.NewUpdate().
		Model((*caseLedgerRecord)(nil)).
		Set("claim_id = ?", claimID).
		Set("status = ?", string(core.CaseRecordStatusProcessing)).
		Set("attempts = ?", existing.Attempts+1).
		Set("next_attempt_at = ?", leaseExpiry).
		Set("updated_at = ?", now).
		Where("source = ?", source).
		Where("delivery_id = ?", deliveryID).
		Where("claim_id = ?", existing.ClaimID).
		Where("status IN (?)", bun.In([]string{
			string(core.CaseRecordStatusProcessing),
			string(core.CaseRecordStatusRetryReady),
		})).
		Exec(ctx)
	if err != nil {
		return core.CaseRecord{}, false, err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		// Another instance took the claim between our read and update.
		current, getErr := s.Get(ctx, source, deliveryID)
		if getErr != nil {
			return core.CaseRecord{}, false, getErr
		}
		return current, false, nil
	}

	existing.ClaimID = claimID
	existing.Status = string(core.CaseRecordStatusProcessing)
	existing.Attempts++
	existing.NextAttemptAt = &leaseExpiry
	existing.UpdatedAt = now
	return caseLedgerToDomain(existing), true, nil
}

func (s *CaseLedgerStore) Complete(
	ctx context.Context,
	claimID string,
	caseID string,
	displayID string,
) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: case ledger store is not configured")
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return fmt.Errorf("sqlstore: claim id is required")
	}
	now := s.clock()
	// Stale claims no-op: only the row still held under this claim settles.
	_, err := s.db.NewUpdate().
		Model((*caseLedgerRecord)(nil)).
		Set("status = ?", string(core.CaseRecordStatusOpened)).
		Set("case_id = ?", strings.TrimSpace(caseID)).
		Set("display_id = ?", strings.TrimSpace(displayID)).
		Set("next_attempt_at = NULL").
		Set("updated_at = ?", now).
		Where("claim_id = ?", claimID).
		Where("status = ?", string(core.CaseRecordStatusProcessing)).
		Exec(ctx)
	return err
}

// Fail settles a claimed delivery. A zero nextAttemptAt or exhausted attempts
// marks the record dead; otherwise it re-arms for the retry window.
func (s *CaseLedgerStore) Fail(
	ctx context.Context,
	claimID string,
	cause error,
	nextAttemptAt time.Time,
	maxAttempts int,
) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: case ledger store is not configured")
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return fmt.Errorf("sqlstore: claim id is required")
	}

	record := &caseLedgerRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.claim_id = ?", claimID).
		Where("?TableAlias.status = ?", string(core.CaseRecordStatusProcessing)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}

	now := s.clock()
	lastError := record.LastError
	if cause != nil {
		lastError = cause.Error()
	}
	exhausted := maxAttempts > 0 && record.Attempts >= maxAttempts

	update := s.db.NewUpdate().
		Model((*caseLedgerRecord)(nil)).
		Set("last_error = ?", lastError).
		Set("updated_at = ?", now).
		Where("claim_id = ?", claimID).
		Where("status = ?", string(core.CaseRecordStatusProcessing))
	if nextAttemptAt.IsZero() || exhausted {
		update = update.
			Set("status = ?", string(core.CaseRecordStatusDead)).
			Set("next_attempt_at = NULL")
	} else {
		update = update.
			Set("status = ?", string(core.CaseRecordStatusRetryReady)).
			Set("next_attempt_at = ?", nextAttemptAt.UTC())
	}
	_, err = update.Exec(ctx)
	return err
}

func (s *CaseLedgerStore) Get(
	ctx context.Context,
	source string,
	deliveryID string,
) (core.CaseRecord, error) {
	if s == nil || s.db == nil {
		return core.CaseRecord{}, fmt.Errorf("sqlstore: case ledger store is not configured")
	}
	record, err := s.load(ctx, normalizedSource(source), strings.TrimSpace(deliveryID))
	if err != nil {
		return core.CaseRecord{}, err
	}
	return caseLedgerToDomain(record), nil
}

func (s *CaseLedgerStore) List(
	ctx context.Context,
	filter core.CaseRecordFilter,
) (core.CaseRecordPage, error) {
	if s == nil || s.db == nil {
		return core.CaseRecordPage{}, fmt.Errorf("sqlstore: case ledger store is not configured")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = defaultListPerPage
	}
	offset := (page - 1) * perPage

	query := s.db.NewSelect().Model((*caseLedgerRecord)(nil))
	query = applyCaseLedgerFilter(query, filter)
	total, err := query.Count(ctx)
	if err != nil {
		return core.CaseRecordPage{}, err
	}

	records := []*caseLedgerRecord{}
	query = s.db.NewSelect().Model(&records)
	query = applyCaseLedgerFilter(query, filter)
	err = query.
		Order("created_at DESC").
		Limit(perPage).
		Offset(offset).
		Scan(ctx)
	if err != nil && err != sql.ErrNoRows {
		return core.CaseRecordPage{}, err
	}

	items := make([]core.CaseRecord, 0, len(records))
	for _, record := range records {
		items = append(items, caseLedgerToDomain(record))
	}
	return core.CaseRecordPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func (s *CaseLedgerStore) load(
	ctx context.Context,
	source string,
	deliveryID string,
) (*caseLedgerRecord, error) {
	if deliveryID == "" {
		return nil, fmt.Errorf("sqlstore: delivery id is required")
	}
	record := &caseLedgerRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.source = ?", source).
		Where("?TableAlias.delivery_id = ?", deliveryID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrCaseRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *CaseLedgerStore) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func applyCaseLedgerFilter(query *bun.SelectQuery, filter core.CaseRecordFilter) *bun.SelectQuery {
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("?TableAlias.source = ?", source)
	}
	if eventName := strings.TrimSpace(filter.EventName); eventName != "" {
		query = query.Where("?TableAlias.event_name = ?", eventName)
	}
	if accountID := strings.TrimSpace(filter.AccountID); accountID != "" {
		query = query.Where("?TableAlias.account_id = ?", accountID)
	}
	if filter.Status != "" {
		query = query.Where("?TableAlias.status = ?", string(filter.Status))
	}
	if filter.From != nil {
		query = query.Where("?TableAlias.created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("?TableAlias.created_at <= ?", filter.To.UTC())
	}
	return query
}

func caseLedgerToDomain(record *caseLedgerRecord) core.CaseRecord {
	if record == nil {
		return core.CaseRecord{}
	}
	result := core.CaseRecord{
		ID:         record.ID,
		ClaimID:    record.ClaimID,
		Source:     record.Source,
		DeliveryID: record.DeliveryID,
		EventName:  record.EventName,
		AccountID:  record.AccountID,
		RequestID:  record.RequestID,
		CaseID:     record.CaseID,
		DisplayID:  record.DisplayID,
		Status:     core.CaseRecordStatus(record.Status),
		Attempts:   record.Attempts,
		LastError:  record.LastError,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
	if record.NextAttemptAt != nil {
		value := *record.NextAttemptAt
		result.NextAttemptAt = &value
	}
	return result
}

func normalizedSource(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return inbound.DefaultSource
	}
	return source
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var (
	_ core.CaseLedger       = (*CaseLedgerStore)(nil)
	_ core.CaseRecordReader = (*CaseLedgerStore)(nil)
)

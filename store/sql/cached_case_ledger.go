package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-account-support/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const caseRecordCacheKeyPrefix = "go-account-support::case_ledger::v1"

// CachedCaseLedger layers a read cache over a ledger for the query side.
// Writes always go to the base ledger and invalidate the affected record so
// claim correctness never depends on cache freshness.
type CachedCaseLedger struct {
	base   CaseLedgerBackend
	cache  repositorycache.CacheService
	mu     sync.Mutex
	claims map[string]string
}

// CaseLedgerBackend is what the cached ledger wraps: the write-side ledger
// plus the query-side reader, which CaseLedgerStore satisfies on its own.
type CaseLedgerBackend interface {
	core.CaseLedger
	core.CaseRecordReader
}

func NewCachedCaseLedger(
	base CaseLedgerBackend,
	cacheService repositorycache.CacheService,
) (*CachedCaseLedger, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base case ledger is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: case ledger cache service is required")
	}
	return &CachedCaseLedger{
		base:   base,
		cache:  cacheService,
		claims: map[string]string{},
	}, nil
}

// CaseRecordCacheKey returns the deterministic cache key contract for ledger
// reads: go-account-support::case_ledger::v1::<source>::<delivery_id> with
// each segment URL-path escaped.
func CaseRecordCacheKey(source string, deliveryID string) (string, error) {
	source = normalizedSource(source)
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return "", fmt.Errorf("sqlstore: delivery id is required")
	}
	segments := []string{url.PathEscape(source), url.PathEscape(deliveryID)}
	return strings.Join(append([]string{caseRecordCacheKeyPrefix}, segments...), "::"), nil
}

func (l *CachedCaseLedger) Claim(
	ctx context.Context,
	claim core.CaseClaim,
	lease time.Duration,
) (core.CaseRecord, bool, error) {
	if l == nil || l.base == nil || l.cache == nil {
		return core.CaseRecord{}, false, fmt.Errorf("sqlstore: cached case ledger is not configured")
	}
	cacheKey, err := CaseRecordCacheKey(claim.Source, claim.DeliveryID)
	if err != nil {
		return core.CaseRecord{}, false, err
	}

	record, claimed, err := l.base.Claim(ctx, claim, lease)
	if err != nil {
		return core.CaseRecord{}, false, err
	}
	if claimed {
		l.mu.Lock()
		l.claims[record.ClaimID] = cacheKey
		l.mu.Unlock()
	}
	if err := l.cache.Delete(ctx, cacheKey); err != nil {
		return core.CaseRecord{}, false, err
	}
	return record, claimed, nil
}

func (l *CachedCaseLedger) Complete(
	ctx context.Context,
	claimID string,
	caseID string,
	displayID string,
) error {
	if l == nil || l.base == nil || l.cache == nil {
		return fmt.Errorf("sqlstore: cached case ledger is not configured")
	}
	if err := l.base.Complete(ctx, claimID, caseID, displayID); err != nil {
		return err
	}
	return l.invalidateClaim(ctx, claimID)
}

func (l *CachedCaseLedger) Fail(
	ctx context.Context,
	claimID string,
	cause error,
	nextAttemptAt time.Time,
	maxAttempts int,
) error {
	if l == nil || l.base == nil || l.cache == nil {
		return fmt.Errorf("sqlstore: cached case ledger is not configured")
	}
	if err := l.base.Fail(ctx, claimID, cause, nextAttemptAt, maxAttempts); err != nil {
		return err
	}
	return l.invalidateClaim(ctx, claimID)
}

func (l *CachedCaseLedger) Get(
	ctx context.Context,
	source string,
	deliveryID string,
) (core.CaseRecord, error) {
	if l == nil || l.base == nil || l.cache == nil {
		return core.CaseRecord{}, fmt.Errorf("sqlstore: cached case ledger is not configured")
	}
	cacheKey, err := CaseRecordCacheKey(source, deliveryID)
	if err != nil {
		return core.CaseRecord{}, err
	}
	return repositorycache.GetOrFetch(ctx, l.cache, cacheKey, func(ctx context.Context) (core.CaseRecord, error) {
		return l.base.Get(ctx, source, deliveryID)
	})
}

// List always reads through: paginated queries have no stable cache key.
func (l *CachedCaseLedger) List(
	ctx context.Context,
	filter core.CaseRecordFilter,
) (core.CaseRecordPage, error) {
	if l == nil || l.base == nil {
		return core.CaseRecordPage{}, fmt.Errorf("sqlstore: cached case ledger is not configured")
	}
	return l.base.List(ctx, filter)
}

func (l *CachedCaseLedger) invalidateClaim(ctx context.Context, claimID string) error {
	claimID = strings.TrimSpace(claimID)
	l.mu.Lock()
	cacheKey, ok := l.claims[claimID]
	if ok {
		delete(l.claims, claimID)
	}
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return l.cache.Delete(ctx, cacheKey)
}

var (
	_ core.CaseLedger       = (*CachedCaseLedger)(nil)
	_ core.CaseRecordReader = (*CachedCaseLedger)(nil)
)

package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type caseLedgerRecord struct {
	bun.BaseModel `bun:"table:account_support_case_ledger,alias:ascl"`

	ID            string     `bun:"id,pk"`
	ClaimID       string     `bun:"claim_id,notnull"`
	Source        string     `bun:"source,notnull"`
	DeliveryID    string     `bun:"delivery_id,notnull"`
	EventName     string     `bun:"event_name,notnull"`
	AccountID     string     `bun:"account_id"`
	RequestID     string     `bun:"request_id"`
	CaseID        string     `bun:"case_id"`
	DisplayID     string     `bun:"display_id"`
	Status        string     `bun:"status,notnull"`
	Attempts      int        `bun:"attempts,notnull"`
	LastError     string     `bun:"last_error"`
	Payload       []byte     `bun:"payload"`
	NextAttemptAt *time.Time `bun:"next_attempt_at,nullzero"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-account-support/core"
)

const (
	TypeGetCaseRecord   = "account_support.query.case_record.get"
	TypeListCaseRecords = "account_support.query.case_record.list"
)

type GetCaseRecordMessage struct {
	Source     string
	DeliveryID string
}

func (GetCaseRecordMessage) Type() string { return TypeGetCaseRecord }

func (m GetCaseRecordMessage) Validate() error {
	if strings.TrimSpace(m.DeliveryID) == "" {
		return fmt.Errorf("query: delivery id is required")
	}
	return nil
}

type ListCaseRecordsMessage struct {
	Filter core.CaseRecordFilter
}

func (ListCaseRecordsMessage) Type() string { return TypeListCaseRecords }

func (m ListCaseRecordsMessage) Validate() error {
	if m.Filter.Page < 0 {
		return fmt.Errorf("query: page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return fmt.Errorf("query: per_page must be >= 0")
	}
	return nil
}

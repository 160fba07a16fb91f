package query

import (
	"github.com/goliatone/go-account-support/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[GetCaseRecordMessage, core.CaseRecord]       = (*GetCaseRecordQuery)(nil)
	_ gocmd.Querier[ListCaseRecordsMessage, core.CaseRecordPage] = (*ListCaseRecordsQuery)(nil)
)

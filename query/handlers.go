package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-account-support/core"
)

type GetCaseRecordQuery struct {
	reader core.CaseRecordReader
}

func NewGetCaseRecordQuery(reader core.CaseRecordReader) *GetCaseRecordQuery {
	return &GetCaseRecordQuery{reader: reader}
}

func (q *GetCaseRecordQuery) Query(ctx context.Context, msg GetCaseRecordMessage) (core.CaseRecord, error) {
	if q == nil || q.reader == nil {
		return core.CaseRecord{}, queryDependencyError("query: case record reader is required")
	}
	if strings.TrimSpace(msg.DeliveryID) == "" {
		return core.CaseRecord{}, queryInvalidInputError("query: delivery id is required")
	}
	return q.reader.Get(ctx, msg.Source, msg.DeliveryID)
}

type ListCaseRecordsQuery struct {
	reader core.CaseRecordReader
}

func NewListCaseRecordsQuery(reader core.CaseRecordReader) *ListCaseRecordsQuery {
	return &ListCaseRecordsQuery{reader: reader}
}

func (q *ListCaseRecordsQuery) Query(ctx context.Context, msg ListCaseRecordsMessage) (core.CaseRecordPage, error) {
	if q == nil || q.reader == nil {
		return core.CaseRecordPage{}, queryDependencyError("query: case record reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}

package core

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// SubmitCase hands a rendered request to the support backend and, when the
// backend supports it, enriches the result with the human facing display id.
// A describe failure after a successful create is logged but never fails the
// invocation: the case already exists and redelivery would duplicate it.
func (s *Service) SubmitCase(ctx context.Context, request CaseRequest) (SupportCase, error) {
	if s == nil || s.caseCreator == nil {
		return SupportCase{}, ErrCaseCreatorNotConfigured
	}

	caseID, err := s.caseCreator.CreateCase(ctx, request)
	if err != nil {
		return SupportCase{}, classifySubmitError(err)
	}
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return SupportCase{}, PermanentSubmitError(nil, "core: support backend returned an empty case id")
	}

	supportCase := SupportCase{CaseID: caseID, Subject: request.Subject}
	if describer, ok := s.caseCreator.(SupportCaseDescriber); ok {
		described, describeErr := describer.DescribeCase(ctx, caseID)
		if describeErr != nil {
			s.logWarn(ctx, "case opened but describe failed", map[string]any{
				"case_id": caseID,
				"error":   describeErr.Error(),
			})
		} else {
			if described.DisplayID != "" {
				supportCase.DisplayID = described.DisplayID
			}
			if described.Status != "" {
				supportCase.Status = described.Status
			}
		}
	}
	return supportCase, nil
}

// classifySubmitError splits backend failures into the two classes the
// redelivery contract cares about. Throttling and availability problems are
// retryable; everything the backend rejects outright is permanent.
func classifySubmitError(err error) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryRateLimit, goerrors.CategoryExternal, goerrors.CategoryOperation:
			return TransientSubmitError(err, "core: support case submission throttled")
		case goerrors.CategoryBadInput, goerrors.CategoryValidation,
			goerrors.CategoryAuth, goerrors.CategoryAuthz:
			return PermanentSubmitError(err, "core: support case submission rejected")
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "throttl"),
		strings.Contains(msg, "rate"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline"),
		strings.Contains(msg, "connection"):
		return TransientSubmitError(err, "core: support case submission failed transiently")
	case strings.Contains(msg, "access denied"),
		strings.Contains(msg, "subscription"),
		strings.Contains(msg, "invalid"),
		strings.Contains(msg, "validation"):
		return PermanentSubmitError(err, "core: support case submission rejected")
	}

	// Unknown failures stay retryable so a flaky backend never strands an
	// account without a case.
	return TransientSubmitError(err, "core: support case submission failed")
}

package core

import "strings"

// RenderTemplate substitutes every occurrence of the ${account_id} token.
// Text without the token passes through unchanged.
func RenderTemplate(text, accountID string) string {
	return strings.ReplaceAll(text, AccountIDToken, strings.TrimSpace(accountID))
}

// ComposeCase renders the configured case template for one account. A
// template with a missing subject, body, or CC list is a permanent failure:
// retrying the same configuration cannot succeed.
func (s *Service) ComposeCase(accountID string) (CaseRequest, error) {
	if s == nil {
		return CaseRequest{}, ErrCaseCreatorNotConfigured
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return CaseRequest{}, MalformedEventError("account id is required", nil)
	}

	template := s.config.Case.Template()
	if err := template.Validate(); err != nil {
		return CaseRequest{}, PermanentSubmitError(err, "core: case template is incomplete")
	}

	return CaseRequest{
		Subject:     RenderTemplate(template.Subject, accountID),
		Body:        RenderTemplate(template.Body, accountID),
		CCList:      normalizeCCList(template.CCList),
		Severity:    valueOrDefault(s.config.Case.Severity, DefaultCaseSeverity),
		Category:    valueOrDefault(s.config.Case.Category, DefaultCaseCategory),
		ServiceCode: valueOrDefault(s.config.Case.ServiceCode, DefaultCaseServiceCode),
		IssueType:   valueOrDefault(s.config.Case.IssueType, DefaultCaseIssueType),
		Language:    valueOrDefault(s.config.Case.Language, DefaultCaseLanguage),
	}, nil
}

func valueOrDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

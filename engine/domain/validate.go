package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const minIngestTextLength = 2

// Injection patterns — SQL/NoSQL fragments that should never appear in a
// query or summary text reaching a storage layer by accident.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(DROP|DELETE|INSERT|UPDATE|ALTER|EXEC|UNION)\b.*\b(TABLE|FROM|INTO|SELECT|SET)\b`),
	regexp.MustCompile(`(?i)(--|;)\s*(DROP|DELETE|SELECT)`),
	regexp.MustCompile(`(?i)\{\s*"\$[a-z]+"\s*:`), // NoSQL operator injection
}

// ValidateIngestRequest checks an IngestRequest before it enters the
// coordinator's ingest pipeline.
func ValidateIngestRequest(req IngestRequest) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return NewValidationError("text", text, ErrEmptyText)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return NewValidationError("user_id", req.UserID, ErrEmptyUserID)
	}
	for _, pat := range injectionPatterns {
		if pat.MatchString(text) {
			return NewValidationError("text", text, ErrQueryInjection)
		}
	}
	return nil
}

// ValidateSearchRequest checks a SearchRequest before it enters the
// coordinator's retrieve pipeline.
func ValidateSearchRequest(req SearchRequest) error {
	query := strings.TrimSpace(req.Query)
	if query == SentinelNone || query == SentinelHold {
		// Sentinel queries bypass the length check — the coordinator
		// interprets them specially rather than searching with them.
		return nil
	}
	if utf8.RuneCountInString(query) < minIngestTextLength {
		return NewValidationError("query", query, ErrQueryTooShort)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return NewValidationError("user_id", req.UserID, ErrEmptyUserID)
	}
	return nil
}

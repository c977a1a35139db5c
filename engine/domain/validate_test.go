package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIngestRequest_Valid(t *testing.T) {
	req := IngestRequest{Text: "User said they adopted a cat named Luna.", UserID: "u1"}
	assert.NoError(t, ValidateIngestRequest(req))
}

func TestValidateIngestRequest_EmptyText(t *testing.T) {
	err := ValidateIngestRequest(IngestRequest{Text: "   ", UserID: "u1"})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestValidateIngestRequest_EmptyUserID(t *testing.T) {
	err := ValidateIngestRequest(IngestRequest{Text: "hello there", UserID: ""})
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestValidateIngestRequest_Injection(t *testing.T) {
	cases := []string{
		"note; DROP TABLE users",
		`fact {"$gt": 1}`,
	}
	for _, text := range cases {
		err := ValidateIngestRequest(IngestRequest{Text: text, UserID: "u1"})
		assert.ErrorIsf(t, err, ErrQueryInjection, "text: %q", text)
	}
}

func TestValidateSearchRequest_Valid(t *testing.T) {
	req := SearchRequest{Query: "does the user own any pets", UserID: "u1"}
	assert.NoError(t, ValidateSearchRequest(req))
}

func TestValidateSearchRequest_Sentinels(t *testing.T) {
	for _, s := range []string{SentinelNone, SentinelHold} {
		req := SearchRequest{Query: s, UserID: "u1"}
		assert.NoErrorf(t, ValidateSearchRequest(req), "sentinel %q should bypass validation", s)
	}
}

func TestValidateSearchRequest_TooShort(t *testing.T) {
	err := ValidateSearchRequest(SearchRequest{Query: "a", UserID: "u1"})
	assert.ErrorIs(t, err, ErrQueryTooShort)
}

func TestValidationError_Unwrap(t *testing.T) {
	ve := NewValidationError("user_id", "", ErrEmptyUserID)
	require.ErrorIs(t, ve, ErrEmptyUserID)

	var target *ValidationError
	require.True(t, errors.As(ve, &target))
	assert.Equal(t, "user_id", target.Field)
}

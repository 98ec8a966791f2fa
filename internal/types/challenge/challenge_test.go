package challenge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusJSON(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		wire   string
	}{
		{"pending", Status{Kind: StatusPending}, `{"pending":null}`},
		{"verified", Status{Kind: StatusVerified}, `{"verified":null}`},
		{"failed", Status{Kind: StatusFailed, Reason: "not following @poi"}, `{"failed":"not following @poi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.status)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wire, string(raw))

			var got Status
			require.NoError(t, json.Unmarshal([]byte(tt.wire), &got))
			assert.Equal(t, tt.status, got)
		})
	}
}

func TestStatusJSON_Invalid(t *testing.T) {
	var s Status
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"expired":null}`), &s), ErrUnknownStatus)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{}`), &s), ErrUnknownStatus)
	assert.Error(t, json.Unmarshal([]byte(`"pending"`), &s))

	_, err := json.Marshal(Status{Kind: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestOptionalStatusIsNull(t *testing.T) {
	raw, err := json.Marshal(WithStatus{Challenge: Challenge{ID: 1, ChallengeType: Follows("poi")}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded["status"])
	assert.Equal(t, map[string]any{"follows": map[string]any{"user": "poi"}}, decoded["challengeType"])
}

func TestIsRateLimitError(t *testing.T) {
	limited := []string{
		"Account temporarily locked for 1 hour",
		"Too many verification attempts. Please wait.",
		"Verification delayed: retry in 30s",
		"You are currently verifying another challenge",
		"This account is permanently blocked",
	}
	for _, msg := range limited {
		assert.True(t, IsRateLimitError(msg), msg)
	}

	assert.False(t, IsRateLimitError(""))
	assert.False(t, IsRateLimitError("User does not follow @poi"))
}

func TestUpsertChallengeRequestNormalize(t *testing.T) {
	req := UpsertChallengeRequest{
		Description:     "  Follow us  ",
		UserToFollow:    " @poi_app ",
		Points:          50,
		MarkdownMessage: "\n**Thanks!**\n",
	}
	req.Normalize()

	assert.Equal(t, "Follow us", req.Description)
	assert.Equal(t, "poi_app", req.UserToFollow)
	assert.Equal(t, "**Thanks!**", req.MarkdownMessage)
}

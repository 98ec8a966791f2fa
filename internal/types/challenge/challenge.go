package challenge

import (
	"encoding/json"
	"errors"
	"strings"
)

// ChallengeType is a tagged variant. Only "follows" exists today.
type ChallengeType struct {
	Follows *FollowUser `json:"follows,omitempty"`
}

type FollowUser struct {
	User string `json:"user" validate:"required"`
}

func Follows(user string) ChallengeType {
	return ChallengeType{Follows: &FollowUser{User: user}}
}

type Challenge struct {
	ID              uint64        `json:"id"`
	Description     string        `json:"description"`
	ChallengeType   ChallengeType `json:"challengeType"`
	Points          uint64        `json:"points"`
	MarkdownMessage string        `json:"markdownMessage"`
	Disabled        bool          `json:"disabled"`
}

type StatusKind string

const (
	StatusPending  StatusKind = "pending"
	StatusVerified StatusKind = "verified"
	StatusFailed   StatusKind = "failed"
)

// Status is encoded as {"pending":null}, {"verified":null} or {"failed":"reason"}.
type Status struct {
	Kind   StatusKind
	Reason string
}

var ErrUnknownStatus = errors.New("unknown challenge status variant")

func (s Status) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case "":
		return []byte("null"), nil
	case StatusPending, StatusVerified:
		return json.Marshal(map[string]any{string(s.Kind): nil})
	case StatusFailed:
		return json.Marshal(map[string]string{string(s.Kind): s.Reason})
	}
	return nil, ErrUnknownStatus
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return ErrUnknownStatus
	}
	for k, v := range raw {
		switch StatusKind(k) {
		case StatusPending, StatusVerified:
			*s = Status{Kind: StatusKind(k)}
			return nil
		case StatusFailed:
			var reason string
			if err := json.Unmarshal(v, &reason); err != nil {
				return err
			}
			*s = Status{Kind: StatusFailed, Reason: reason}
			return nil
		}
	}
	return ErrUnknownStatus
}

// VerifyResult is the backend's answer to a verification request. A rejection
// is a value, not an error.
type VerifyResult struct {
	Success     bool   `json:"success,omitempty"`
	Error       string `json:"error,omitempty"`
	RateLimited bool   `json:"rateLimited,omitempty"`
}

var rateLimitMarkers = []string{
	"temporarily locked",
	"Too many verification attempts",
	"Verification delayed",
	"currently verifying another challenge",
	"permanently blocked",
}

// IsRateLimitError reports whether a verification error message comes from the
// backend's attempt throttling.
func IsRateLimitError(message string) bool {
	if message == "" {
		return false
	}
	for _, m := range rateLimitMarkers {
		if strings.Contains(message, m) {
			return true
		}
	}
	return false
}

type WithStatus struct {
	Challenge
	Status *Status `json:"status"`
}

type UpsertChallengeRequest struct {
	Description     string `json:"description" validate:"required,max=500"`
	UserToFollow    string `json:"userToFollow" validate:"required,max=64"`
	Points          uint64 `json:"points" validate:"required,gt=0"`
	MarkdownMessage string `json:"markdownMessage" validate:"required"`
}

func (r *UpsertChallengeRequest) Normalize() {
	r.Description = strings.TrimSpace(r.Description)
	r.UserToFollow = strings.TrimPrefix(strings.TrimSpace(r.UserToFollow), "@")
	r.MarkdownMessage = strings.TrimSpace(r.MarkdownMessage)
}

type CreateResponse struct {
	ID uint64 `json:"id"`
}

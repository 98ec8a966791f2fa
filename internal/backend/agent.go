package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"poiAPI/internal/logger"
	"poiAPI/internal/metrics"
)

// Caller issues one remote procedure call. out may be nil when the result is
// not needed; a JSON null result leaves out untouched.
type Caller interface {
	Call(ctx context.Context, method string, out any, args ...any) error
}

// ActorFactory builds a Caller bound to one canister and an optional identity.
type ActorFactory interface {
	CreateActor(canisterID string, identity *Identity) (Caller, error)
}

type AgentConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

// Agent holds what every actor shares: the HTTP client and the outbound limiter.
type Agent struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewAgent(cfg AgentConfig) *Agent {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	l := cfg.Logger
	if l == nil {
		l = logger.Discard()
	}

	return &Agent{
		baseURL: cfg.BaseURL,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		metrics: m,
		log:     l,
	}
}

// CreateActor fails eagerly with ErrNotConfigured when the agent has no base URL
// or canisterID is empty.
func (a *Agent) CreateActor(canisterID string, identity *Identity) (Caller, error) {
	if a == nil || a.baseURL == "" || canisterID == "" {
		return nil, ErrNotConfigured
	}
	return &Actor{agent: a, canisterID: canisterID, identity: identity}, nil
}

// Actor calls methods of one canister as one identity.
type Actor struct {
	agent      *Agent
	canisterID string
	identity   *Identity
}

type callRequest struct {
	Args []any `json:"args"`
}

type callResponse struct {
	Ok    json.RawMessage `json:"ok"`
	Error string          `json:"error"`
}

func (a *Actor) Call(ctx context.Context, method string, out any, args ...any) (err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		a.agent.metrics.BackendCalls.WithLabelValues(method, result).Inc()
		a.agent.metrics.BackendDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	if err := a.agent.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("backend %s: rate limit wait: %w", method, err)
	}

	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(callRequest{Args: args})
	if err != nil {
		return fmt.Errorf("backend %s: encoding args: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/canisters/%s/call/%s",
		a.agent.baseURL, url.PathEscape(a.canisterID), url.PathEscape(method))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("backend %s: building request: %w", method, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("X-Caller-Principal", a.identity.PrincipalOrAnonymous())
	if a.identity != nil && a.identity.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.identity.Token)
	}

	resp, err := a.agent.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("backend %s: reading response: %w", method, err)
	}

	var decoded callResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := decoded.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		a.agent.log.Entry().WithFields(logrus.Fields{
			"method":     method,
			"canister":   a.canisterID,
			"status":     resp.StatusCode,
			"request_id": requestID,
		}).Warn("backend call rejected")
		return &RemoteError{Method: method, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("backend %s: decoding response: %w", method, decodeErr)
	}
	if decoded.Error != "" {
		return &RemoteError{Method: method, StatusCode: resp.StatusCode, Message: decoded.Error}
	}

	if out == nil || len(decoded.Ok) == 0 || bytes.Equal(decoded.Ok, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(decoded.Ok, out); err != nil {
		return fmt.Errorf("backend %s: decoding result: %w", method, err)
	}
	return nil
}

// IsNotConfigured reports whether err is a configuration error.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// Package testhelpers provides a fake canister HTTP backend and token minting
// for handler and end-to-end tests.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

// TestJWTSecret signs tokens accepted by middleware.LocalVerifier in tests.
const TestJWTSecret = "test-secret-key-for-testing-only"

// GenerateLocalJWT signs an HS256 token for principal that expires after ttl.
func GenerateLocalJWT(principal string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": principal,
		"iss": "poi-local",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
}

// MustLocalJWT is GenerateLocalJWT for a one-hour token, failing t on error.
func MustLocalJWT(t *testing.T, principal string) string {
	t.Helper()
	token, err := GenerateLocalJWT(principal, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// Call is one request received by the fake canister.
type Call struct {
	Canister  string
	Method    string
	Principal string
	Args      []json.RawMessage
}

// Reply is what a fake method answers. A non-empty Error becomes {"error":...}
// with Status (200 when zero).
type Reply struct {
	Ok     any
	Error  string
	Status int
}

type MethodFunc func(call Call) Reply

// FakeCanister serves the canister call protocol over HTTP.
type FakeCanister struct {
	Server *httptest.Server

	mu      sync.Mutex
	methods map[string]MethodFunc
	calls   []Call
}

func NewFakeCanister(t *testing.T) *FakeCanister {
	t.Helper()
	fc := &FakeCanister{methods: make(map[string]MethodFunc)}

	r := mux.NewRouter()
	r.HandleFunc("/canisters/{canister}/call/{method}", fc.serve).Methods("POST")
	fc.Server = httptest.NewServer(r)
	t.Cleanup(fc.Server.Close)
	return fc
}

func (fc *FakeCanister) URL() string { return fc.Server.URL }

// On registers fn for method on any canister.
func (fc *FakeCanister) On(method string, fn MethodFunc) *FakeCanister {
	fc.mu.Lock()
	fc.methods[method] = fn
	fc.mu.Unlock()
	return fc
}

// Returns registers a method that always answers v.
func (fc *FakeCanister) Returns(method string, v any) *FakeCanister {
	return fc.On(method, func(Call) Reply { return Reply{Ok: v} })
}

// Fails registers a method that always answers with an error status.
func (fc *FakeCanister) Fails(method string, status int, message string) *FakeCanister {
	return fc.On(method, func(Call) Reply { return Reply{Error: message, Status: status} })
}

// Calls returns how many times method was called.
func (fc *FakeCanister) Calls(method string) int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	n := 0
	for _, c := range fc.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (fc *FakeCanister) serve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Args []json.RawMessage `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request body"})
		return
	}
	call := Call{
		Canister:  vars["canister"],
		Method:    vars["method"],
		Principal: r.Header.Get("X-Caller-Principal"),
		Args:      body.Args,
	}

	fc.mu.Lock()
	fc.calls = append(fc.calls, call)
	fn, ok := fc.methods[call.Method]
	fc.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "method not found: " + call.Method})
		return
	}

	reply := fn(call)
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	if reply.Error != "" {
		writeJSON(w, status, map[string]string{"error": reply.Error})
		return
	}
	writeJSON(w, status, map[string]any{"ok": reply.Ok})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

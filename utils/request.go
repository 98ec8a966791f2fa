package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// RequestOrigin is the browser origin the profile belongs to: the "origin"
// query parameter, else the Origin header, else the request's own scheme and host.
func RequestOrigin(r *http.Request) string {
	if o := strings.TrimSpace(r.URL.Query().Get("origin")); o != "" {
		return strings.TrimSuffix(o, "/")
	}
	if o := r.Header.Get("Origin"); o != "" && o != "null" {
		return strings.TrimSuffix(o, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}

// ParseID parses a challenge id path parameter.
func ParseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// ParseBool treats "1", "true" and "yes" as true.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

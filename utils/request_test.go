package utils

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.poi.example/api/v1/profile?origin=https://app.poi.example/", nil)
	req.Header.Set("Origin", "https://other.example")
	assert.Equal(t, "https://app.poi.example", RequestOrigin(req))

	req = httptest.NewRequest(http.MethodGet, "http://api.poi.example/api/v1/profile", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", RequestOrigin(req))

	req = httptest.NewRequest(http.MethodGet, "http://api.poi.example/api/v1/profile", nil)
	req.Header.Set("Origin", "null")
	assert.Equal(t, "http://api.poi.example", RequestOrigin(req))

	req = httptest.NewRequest(http.MethodGet, "http://internal:3333/api/v1/profile", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "poi.example")
	assert.Equal(t, "https://poi.example", RequestOrigin(req))

	req = httptest.NewRequest(http.MethodGet, "https://poi.example/api/v1/profile", nil)
	req.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://poi.example", RequestOrigin(req))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	for _, bad := range []string{"", "-1", "abc", "1.5"} {
		_, err := ParseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes "} {
		assert.True(t, ParseBool(v), v)
	}
	for _, v := range []string{"", "0", "false", "no", "y"} {
		assert.False(t, ParseBool(v), v)
	}
}

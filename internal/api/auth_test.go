package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"trustmeet/internal/config"

	"github.com/stretchr/testify/assert"
)

func authConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			HeaderExtra:  "x-api-extra",
			APIKeys: []config.APIClientKey{
				{Key: "reader", Extra: "r-extra", Name: "reader", Permissions: []string{"read:tiers", "read:accounts"}},
				{Key: "admin", Extra: "a-extra", Name: "admin"},
			},
		},
	}
}

func TestAuth(t *testing.T) {
	ts, _ := newTestServer(t, authConfig())

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		extra  string
		want   int
	}{
		{"missing headers", http.MethodGet, "/api/v1/tiers", "", "", http.StatusUnauthorized},
		{"unknown key", http.MethodGet, "/api/v1/tiers", "nope", "r-extra", http.StatusUnauthorized},
		{"wrong extra", http.MethodGet, "/api/v1/tiers", "reader", "bad", http.StatusUnauthorized},
		{"read allowed", http.MethodGet, "/api/v1/tiers", "reader", "r-extra", http.StatusOK},
		{"write denied", http.MethodPost, "/api/v1/accounts", "reader", "r-extra", http.StatusForbidden},
		{"no permissions means all", http.MethodGet, "/api/v1/tiers", "admin", "a-extra", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			if tt.key != "" {
				req.Header.Set("x-api-key", tt.key)
			}
			if tt.extra != "" {
				req.Header.Set("x-api-extra", tt.extra)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuth_HealthzIsPublic(t *testing.T) {
	ts, _ := newTestServer(t, authConfig())

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	cfg := config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 1}}
	ts, _ := newTestServer(t, cfg)

	first, err := http.Get(ts.URL + "/api/v1/tiers")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(ts.URL + "/api/v1/tiers")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestRequiredPermission(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/v1/tiers", "read:tiers"},
		{http.MethodGet, "/api/v1/accounts/1/ledger", "read:accounts"},
		{http.MethodPost, "/api/v1/unlocks/bundle", "write:unlocks"},
		{http.MethodPost, "/api/v1/bookings/4/confirm", "write:bookings"},
		{http.MethodPut, "/api/v1/creators/2", "write:creators"},
		{http.MethodGet, "/healthz", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		assert.Equal(t, tt.want, requiredPermission(req), tt.method+" "+tt.path)
	}
}

func TestGetLimiter_SameKey(t *testing.T) {
	a := NewHTTPAuth(config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 2}})
	assert.Same(t, a.getLimiter("k"), a.getLimiter("k"))
	assert.NotSame(t, a.getLimiter("k"), a.getLimiter("other"))
}

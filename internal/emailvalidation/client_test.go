package emailvalidation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/aquaalerts/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var cfg config.Config
	cfg.Validator = config.EmailValidationConfig{
		APIKey:   "key",
		URL:      srv.URL + "/v1/info",
		Timeout:  2 * time.Second,
		MinScore: 0.70,
	}
	return NewClient(cfg, zap.NewNop())
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestValidateStrictResponse(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		valid  bool
		reason string
	}{
		{"deliverable", `{"valid":true,"deliverable":true,"disposable":false,"score":0.92}`, true, ""},
		{"score at bound", `{"valid":true,"deliverable":true,"disposable":false,"score":0.70}`, false, ReasonLowScore},
		{"disposable", `{"valid":true,"deliverable":true,"disposable":true,"score":0.9}`, false, ReasonDisposable},
		{"undeliverable", `{"valid":true,"deliverable":false,"disposable":false,"score":0.9}`, false, ReasonUndeliverable},
		{"invalid", `{"valid":false,"deliverable":false,"disposable":false,"score":0.1}`, false, ReasonMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, respond(tc.body))
			res := c.Validate(context.Background(), "ayu@example.com")
			assert.Equal(t, tc.valid, res.Valid)
			assert.Equal(t, tc.reason, res.Reason)
			assert.Equal(t, SourceAPI, res.Source)
		})
	}
}

func TestValidateLenientWhenFieldsMissing(t *testing.T) {
	c := newTestClient(t, respond(`{"disposable":false}`))
	assert.True(t, c.Validate(context.Background(), "ayu@example.com").Valid)

	c = newTestClient(t, respond(`{"valid":true}`))
	res := c.Validate(context.Background(), "ayu@example.com")
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonDisposable, res.Reason)
}

func TestValidateSendsQuery(t *testing.T) {
	var gotKey, gotEmail string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		gotEmail = r.URL.Query().Get("email")
		_, _ = w.Write([]byte(`{"valid":true,"deliverable":true,"disposable":false,"score":1}`))
	})
	c.Validate(context.Background(), " Ayu@Example.com ")
	assert.Equal(t, "key", gotKey)
	assert.Equal(t, "ayu@example.com", gotEmail)
}

func TestValidateFallsBackOnFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	res := c.Validate(context.Background(), "ayu@example.com")
	assert.True(t, res.Valid)
	assert.Equal(t, SourceHeuristic, res.Source)

	c = newTestClient(t, respond(`not json`))
	res = c.Validate(context.Background(), "someone@mailinator.com")
	assert.False(t, res.Valid)
	assert.Equal(t, SourceHeuristic, res.Source)
}

func TestValidateWithoutAPIKeyUsesHeuristic(t *testing.T) {
	c := NewClient(config.Config{}, zap.NewNop())
	res := c.Validate(context.Background(), "ayu@example.com")
	require.True(t, res.Valid)
	assert.Equal(t, SourceHeuristic, res.Source)
}

func TestHeuristic(t *testing.T) {
	cases := map[string]bool{
		"ayu@example.com":        true,
		"student@nitk.edu.in":    true,
		"no-at-sign.example.com": false,
		"spaces in@example.com":  false,
		"x@mail.yopmail.com":     false,
		"x@guerrillamail.com":    false,
		"x@not-tempmail.com.au":  false,
		"missing@tld":            false,
	}
	for email, want := range cases {
		assert.Equal(t, want, Heuristic(email).Valid, email)
	}
}

func TestValidateCachesProviderVerdicts(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"valid":true,"deliverable":true,"disposable":false,"score":0.95}`))
	})

	assert.True(t, c.Validate(context.Background(), "ayu@example.com").Valid)
	assert.True(t, c.Validate(context.Background(), "AYU@example.com ").Valid)
	assert.Equal(t, 1, calls)
}

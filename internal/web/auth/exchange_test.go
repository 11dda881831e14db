package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSecret(t *testing.T) {
	hash, err := HashSecret("s3cret-value")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-value", hash)
	assert.True(t, CheckSecret("s3cret-value", hash))
	assert.False(t, CheckSecret("wrong", hash))
	assert.False(t, CheckSecret("s3cret-value", "not-a-hash"))

	_, err = HashSecret("")
	assert.Error(t, err)
	_, err = HashSecret(strings.Repeat("x", MaxSecretLength+1))
	assert.ErrorContains(t, err, "72 bytes")
}

func TestNewExchangeHandler_Validates(t *testing.T) {
	_, err := NewExchangeHandler(nil, nil, nil)
	assert.Error(t, err)

	tokens := newTokens(t, time.Hour)
	_, err = NewExchangeHandler(tokens, []Client{{ID: "a"}}, nil)
	assert.ErrorContains(t, err, "secret hash")

	_, err = NewExchangeHandler(tokens, []Client{{ID: "a", SecretHash: "x"}, {ID: "a", SecretHash: "y"}}, nil)
	assert.ErrorContains(t, err, `duplicate client "a"`)
}

func TestExchangeHandler(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	hash, err := HashSecret("ci-secret")
	require.NoError(t, err)

	h, err := NewExchangeHandler(tokens, []Client{{ID: "ci-bot", SecretHash: hash, Modules: []string{"contacts"}}}, nil)
	require.NoError(t, err)

	form := func(id, secret string) *http.Request {
		body := url.Values{"client_id": {id}, "client_secret": {secret}}.Encode()
		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}

	t.Run("form credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, form("ci-bot", "ci-secret"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Bearer", body.TokenType)
		assert.Equal(t, "ci-bot", body.Subject)
		require.NotNil(t, body.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(time.Hour), *body.ExpiresAt, time.Minute)

		claims, err := tokens.Validate(body.Token)
		require.NoError(t, err)
		assert.Equal(t, "ci-bot", claims.Subject)
		assert.True(t, claims.Allows("contacts"))
		assert.False(t, claims.Allows("billing"))
	})

	t.Run("basic auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
		req.SetBasicAuth("ci-bot", "ci-secret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	for name, req := range map[string]*http.Request{
		"wrong secret":   form("ci-bot", "nope"),
		"unknown client": form("someone", "ci-secret"),
		"no credentials": httptest.NewRequest(http.MethodPost, "/auth/token", nil),
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
			assert.Contains(t, rec.Body.String(), "Invalid client credentials")
		})
	}
}

func TestExchangeHandler_NoExpiry(t *testing.T) {
	hash, err := HashSecret("forever")
	require.NoError(t, err)
	h, err := NewExchangeHandler(newTokens(t, 0), []Client{{ID: "cron", SecretHash: hash}}, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.SetBasicAuth("cron", "forever")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "expires_at")
}

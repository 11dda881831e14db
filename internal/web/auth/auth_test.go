package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webcontext "github.com/conduit-lang/dispatch/internal/web/context"
	"github.com/conduit-lang/dispatch/internal/web/response"
)

func newTokens(t *testing.T, ttl time.Duration) *TokenService {
	t.Helper()
	tokens, err := NewTokenService("test-secret", "", ttl)
	require.NoError(t, err)
	return tokens
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService("", "", time.Hour)
	assert.Error(t, err)
}

func TestIssueAndValidate(t *testing.T) {
	tokens := newTokens(t, time.Hour)

	token, err := tokens.Issue("ci-bot", "contacts", "system")
	require.NoError(t, err)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ci-bot", claims.Subject)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.Equal(t, []string{"contacts", "system"}, claims.Modules)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestIssue_RequiresSubject(t *testing.T) {
	_, err := newTokens(t, time.Hour).Issue("")
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	valid, err := tokens.Issue("ci-bot")
	require.NoError(t, err)

	expired := newTokens(t, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredToken, err := expired.Issue("ci-bot")
	require.NoError(t, err)

	otherSecret, err := NewTokenService("other-secret", "", time.Hour)
	require.NoError(t, err)
	forged, err := otherSecret.Issue("ci-bot")
	require.NoError(t, err)

	otherIssuer, err := NewTokenService("test-secret", "someone-else", time.Hour)
	require.NoError(t, err)
	foreign, err := otherIssuer.Issue("ci-bot")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "ci-bot", "iss": DefaultIssuer})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"expired":      expiredToken,
		"wrong secret": forged,
		"wrong issuer": foreign,
		"alg none":     unsigned,
		"truncated":    valid[:len(valid)-4],
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Validate(token)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestClaimsAllows(t *testing.T) {
	assert.True(t, (&Claims{}).Allows("contacts"))
	assert.True(t, (&Claims{Modules: []string{"*"}}).Allows("contacts"))
	assert.True(t, (&Claims{Modules: []string{"contacts"}}).Allows("contacts"))
	assert.False(t, (&Claims{Modules: []string{"system"}}).Allows("contacts"))
	assert.False(t, (*Claims)(nil).Allows("contacts"))
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		query   string
		want    string
		wantErr bool
	}{
		{name: "bearer header", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "query param", query: "?token=xyz", want: "xyz"},
		{name: "header wins", header: "Bearer abc", query: "?token=xyz", want: "abc"},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "empty bearer", header: "Bearer ", wantErr: true},
		{name: "missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ajax/contacts"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, err := ExtractToken(req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	contactsOnly, err := tokens.Issue("ci-bot", "contacts")
	require.NoError(t, err)

	var seenSubject string
	handler := Middleware(Config{
		Tokens:        tokens,
		PublicModules: []string{"system"},
		Module: func(r *http.Request) string {
			return r.URL.Query().Get("module")
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSubject = webcontext.GetSubject(r.Context())
		_, hasClaims := ClaimsFrom(r.Context())
		if hasClaims {
			w.Header().Set("X-Claims", "yes")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name        string
		target      string
		token       string
		wantStatus  int
		wantSubject string
	}{
		{name: "public module", target: "/?module=system", wantStatus: http.StatusNoContent},
		{name: "granted module", target: "/?module=contacts", token: contactsOnly, wantStatus: http.StatusNoContent, wantSubject: "ci-bot"},
		{name: "missing token", target: "/?module=contacts", wantStatus: http.StatusUnauthorized},
		{name: "bad token", target: "/?module=contacts", token: "nope", wantStatus: http.StatusUnauthorized},
		{name: "module not granted", target: "/?module=billing", token: contactsOnly, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenSubject = ""
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSubject, seenSubject)

			switch tt.wantStatus {
			case http.StatusUnauthorized:
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
				var body response.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "unauthorized", body.Code)
			case http.StatusForbidden:
				var body response.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "forbidden", body.Code)
			}
		})
	}
}

func TestWithClaims(t *testing.T) {
	ctx := WithClaims(context.Background(), &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ada"}})
	claims, ok := ClaimsFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "ada", claims.Subject)
	assert.Equal(t, "ada", webcontext.GetSubject(ctx))

	_, ok = ClaimsFrom(context.Background())
	assert.False(t, ok)
}

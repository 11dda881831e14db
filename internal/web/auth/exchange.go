package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	webcontext "github.com/conduit-lang/dispatch/internal/web/context"
	"github.com/conduit-lang/dispatch/internal/web/response"
)

// Client is a registered API client allowed to exchange its secret for a
// token limited to Modules.
type Client struct {
	ID         string
	SecretHash string
	Modules    []string
}

// TokenResponse is the body returned by the token endpoint
type TokenResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	Subject   string     `json:"subject"`
	Modules   []string   `json:"modules,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ExchangeHandler answers POST requests carrying client credentials,
// as HTTP basic auth or client_id and client_secret form fields, with a
// freshly issued token.
type ExchangeHandler struct {
	tokens  *TokenService
	clients map[string]Client
	logger  *zap.Logger
}

// NewExchangeHandler creates an ExchangeHandler for clients
func NewExchangeHandler(tokens *TokenService, clients []Client, logger *zap.Logger) (*ExchangeHandler, error) {
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	byID := make(map[string]Client, len(clients))
	for _, c := range clients {
		if c.ID == "" || c.SecretHash == "" {
			return nil, errors.New("client id and secret hash are required")
		}
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate client %q", c.ID)
		}
		byID[c.ID] = c
	}
	return &ExchangeHandler{tokens: tokens, clients: byID, logger: logger}, nil
}

func credentials(r *http.Request) (string, string) {
	if id, secret, ok := r.BasicAuth(); ok {
		return id, secret
	}
	return r.PostFormValue("client_id"), r.PostFormValue("client_secret")
}

// ServeHTTP implements http.Handler
func (h *ExchangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, secret := credentials(r)
	client, ok := h.clients[id]
	if !ok || !CheckSecret(secret, client.SecretHash) {
		h.logger.Info("token exchange rejected",
			zap.String("request_id", webcontext.GetRequestID(r.Context())),
			zap.String("client_id", id),
		)
		w.Header().Set("WWW-Authenticate", `Basic realm="dispatch"`)
		response.RenderError(w, http.StatusUnauthorized, errors.New("Invalid client credentials"))
		return
	}

	token, err := h.tokens.Issue(client.ID, client.Modules...)
	if err != nil {
		h.logger.Error("failed to issue token", zap.String("client_id", id), zap.Error(err))
		response.RenderError(w, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	body := TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		Subject:   client.ID,
		Modules:   client.Modules,
	}
	if ttl := h.tokens.TTL(); ttl > 0 {
		expires := h.tokens.now().Add(ttl).UTC().Truncate(time.Second)
		body.ExpiresAt = &expires
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(body)
}

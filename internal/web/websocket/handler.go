// Package websocket serves AJAX actions over a WebSocket connection. Each
// text frame carries one Request; the reply frame carries the action's
// result converted to the requested wire format, exactly as the HTTP
// endpoint would render it.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/conduit-lang/dispatch/internal/conversion"
	"github.com/conduit-lang/dispatch/internal/conversion/converters"
	"github.com/conduit-lang/dispatch/internal/dispatch"
	"github.com/conduit-lang/dispatch/internal/web/auth"
	webcontext "github.com/conduit-lang/dispatch/internal/web/context"
	"github.com/conduit-lang/dispatch/internal/web/response"
)

// Config holds WebSocket configuration
type Config struct {
	Dispatcher *dispatch.Dispatcher
	Hub        *Hub
	Logger     *zap.Logger

	ReadBufferSize  int
	WriteBufferSize int
	// MaxMessageSize caps incoming frames (default 512 KiB)
	MaxMessageSize int64
	// CheckOrigin validates the Origin header; nil allows same-origin only
	CheckOrigin func(r *http.Request) bool
}

// Handler upgrades HTTP requests and dispatches the frames that follow
type Handler struct {
	dispatcher     *dispatch.Dispatcher
	hub            *Hub
	logger         *zap.Logger
	upgrader       *websocket.Upgrader
	maxMessageSize int64
	baseCtx        context.Context
}

// New creates a Handler. The hub defaults to a fresh one.
func New(config Config) *Handler {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Hub == nil {
		config.Hub = NewHub(config.Logger)
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 1024
	}
	if config.WriteBufferSize <= 0 {
		config.WriteBufferSize = 1024
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = 512 * 1024
	}

	return &Handler{
		dispatcher: config.Dispatcher,
		hub:        config.Hub,
		logger:     config.Logger,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		maxMessageSize: config.MaxMessageSize,
		baseCtx:        context.Background(),
	}
}

// Hub returns the hub tracking this handler's connections
func (h *Handler) Hub() *Hub {
	return h.hub
}

// ServeHTTP upgrades the connection and starts its pumps
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written an error response
		h.logger.Info("websocket upgrade failed",
			zap.String("request_id", webcontext.GetRequestID(r.Context())),
			zap.Error(err),
		)
		return
	}

	claims, _ := auth.ClaimsFrom(r.Context())
	client := newClient(h.baseCtx, uuid.NewString(), conn, h, claims)
	if err := h.hub.add(client); err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	h.logger.Info("websocket connected",
		zap.String("client_id", client.ID),
		zap.String("request_id", webcontext.GetRequestID(r.Context())),
		zap.String("subject", webcontext.GetSubject(r.Context())),
	)

	go client.WritePump()
	go client.ReadPump()
}

// handle runs one frame through the dispatcher and builds its reply
func (h *Handler) handle(ctx context.Context, c *Client, data []byte) *Reply {
	start := time.Now()

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorReply("", &dispatch.BadRequestError{Message: "malformed request frame", Cause: err})
	}

	reply := h.dispatch(ctx, c, &req)
	h.logger.Debug("websocket request handled",
		zap.String("client_id", c.ID),
		zap.String("id", req.ID),
		zap.String("operation", req.Module+"."+req.Action),
		zap.String("format", req.Format),
		zap.Int("status", reply.Status),
		zap.Duration("duration", time.Since(start)),
	)
	return reply
}

func (h *Handler) dispatch(ctx context.Context, c *Client, req *Request) *Reply {
	switch {
	case req.Module == "":
		return errorReply(req.ID, &dispatch.BadRequestError{Param: "module", Message: "missing required field"})
	case req.Action == "":
		return errorReply(req.ID, &dispatch.BadRequestError{Param: "action", Message: "missing required field"})
	}

	if req.Format == "" {
		req.Format = h.dispatcher.DefaultFormat()
	}
	if !response.IsWireFormat(req.Format) {
		err := fmt.Errorf("format %q cannot be sent over the wire", req.Format)
		return &Reply{
			ID:     req.ID,
			Status: http.StatusNotAcceptable,
			Error: response.NewErrorResponse(http.StatusNotAcceptable, err,
				map[string]any{"format": req.Format, "available": converters.WireFormats}),
		}
	}

	if c.claims != nil && !c.claims.Allows(req.Module) {
		err := errors.New("Module not granted")
		return &Reply{
			ID:     req.ID,
			Status: http.StatusForbidden,
			Error:  response.NewErrorResponse(http.StatusForbidden, err, map[string]any{"module": req.Module}),
		}
	}

	ctx = webcontext.SetRequestID(ctx, c.ID+"/"+req.ID)
	ctx = webcontext.SetFormat(ctx, req.Format)
	if c.claims != nil {
		ctx = auth.WithClaims(ctx, c.claims)
	}

	dreq := &dispatch.Request{
		Module: req.Module,
		Action: req.Action,
		Params: req.values(),
		Format: req.Format,
	}
	result, err := h.dispatcher.Dispatch(ctx, dreq)
	if err != nil {
		if response.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.Error("action failed",
				zap.String("client_id", c.ID),
				zap.String("operation", dreq.Operation()),
				zap.Error(err),
			)
		}
		return errorReply(req.ID, err)
	}

	if conversion.IsEmpty(result) {
		return &Reply{ID: req.ID, Status: http.StatusNoContent}
	}
	body, ok := result.Bytes()
	if !ok {
		h.logger.Error("action result not serialized",
			zap.String("operation", dreq.Operation()),
			zap.String("format", result.Format),
		)
		return errorReply(req.ID, fmt.Errorf("result in format %q is not serialized", result.Format))
	}
	return &Reply{
		ID:     req.ID,
		Status: http.StatusOK,
		Format: result.Format,
		Body:   string(body),
	}
}

func errorReply(id string, err error) *Reply {
	status, body := response.DispatchError(err)
	return &Reply{ID: id, Status: status, Error: body}
}

func encodeReply(reply *Reply) ([]byte, error) {
	data, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reply: %w", err)
	}
	return data, nil
}

// AllowOrigins returns a CheckOrigin accepting requests without an Origin
// header and those whose Origin is in origins. "*" accepts any origin.
func AllowOrigins(origins ...string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

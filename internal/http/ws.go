package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/net/websocket"

	domainauth "github.com/target/fuzzysearch/internal/domain/auth"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/observability/metrics"
	"github.com/target/fuzzysearch/internal/ports"
	"github.com/target/fuzzysearch/internal/service"
)

// Close codes sent on the push channel.
const (
	CloseNormal          = 1000
	ClosePolicyViolation = 1008
	CloseInternalError   = 1011
)

// Error replies for messages the push channel cannot act on.
const (
	ErrMsgInvalidJSON      = "Invalid JSON format"
	ErrMsgInvalidStructure = "Invalid message structure. Expected 'task_id' or {word, algorithm, corpus_id}."
	ErrMsgTooLarge         = "Message too large"
)

const maxPushMessageBytes = 64 << 10

const pushMessageSchema = `{
  "oneOf": [
    {
      "type": "object",
      "properties": {"task_id": {"type": "string", "minLength": 1}},
      "required": ["task_id"],
      "additionalProperties": false
    },
    {
      "type": "object",
      "properties": {
        "word": {"type": "string"},
        "algorithm": {"type": "string"},
        "corpus_id": {"type": ["string", "integer"]}
      },
      "required": ["word", "algorithm", "corpus_id"],
      "additionalProperties": false
    }
  ]
}`

var pushSchema = jsonschema.MustCompileString("push_message.json", pushMessageSchema) //nolint:gochecknoglobals // compiled once

// PushHandler serves the push status channel over a websocket.
type PushHandler struct {
	Jobs     *service.JobService
	Verifier ports.IdentityVerifier
	Metrics  metrics.Sink
	Logger   *slog.Logger
	// AllowedOrigins restricts browser handshakes; empty accepts any origin.
	AllowedOrigins []string
}

// pushRequest is a validated inbound push message.
type pushRequest struct {
	TaskID    string   `json:"task_id"`
	Word      string   `json:"word"`
	Algorithm string   `json:"algorithm"`
	CorpusID  corpusID `json:"corpus_id"`
}

type errorReply struct {
	Error string `json:"error"`
}

// ServeHTTP upgrades the connection and runs one push session.
func (h *PushHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv := websocket.Server{
		Handshake: h.checkOrigin,
		Handler:   h.session,
	}
	srv.ServeHTTP(w, r)
}

func (h *PushHandler) checkOrigin(_ *websocket.Config, r *http.Request) error {
	if len(h.AllowedOrigins) == 0 {
		return nil
	}
	origin := r.Header.Get("Origin")
	if origin == "" || slices.ContainsFunc(h.AllowedOrigins, func(o string) bool { return strings.EqualFold(o, origin) }) {
		return nil
	}
	return fmt.Errorf("origin %q not allowed", origin)
}

func (h *PushHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *PushHandler) sink() metrics.Sink {
	if h.Metrics != nil {
		return h.Metrics
	}
	return metrics.Nop{}
}

func (h *PushHandler) session(ws *websocket.Conn) {
	r := ws.Request()
	ctx := r.Context()
	log := h.logger().With("component", "push_session", "remote", r.RemoteAddr)

	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	who, err := h.verify(ctx, token)
	if err != nil {
		log.InfoContext(ctx, "push session rejected", "error", err)
		_ = ws.WriteClose(ClosePolicyViolation)
		return
	}

	h.sink().PushSessions(1)
	defer h.sink().PushSessions(-1)
	log = log.With("user_id", who.UserID)
	log.DebugContext(ctx, "push session opened")

	ws.MaxPayloadBytes = maxPushMessageBytes
	for {
		var raw []byte
		if err := websocket.Message.Receive(ws, &raw); err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				if sendErr := websocket.JSON.Send(ws, errorReply{Error: ErrMsgTooLarge}); sendErr != nil {
					return
				}
				continue
			}
			if !errors.Is(err, io.EOF) {
				log.DebugContext(ctx, "push session ended", "error", err)
			}
			return
		}

		reply, err := h.handleMessage(ctx, who, raw)
		if err != nil {
			log.ErrorContext(ctx, "push session fault", "error", err)
			_ = ws.WriteClose(CloseInternalError)
			return
		}
		if err := websocket.JSON.Send(ws, reply); err != nil {
			return
		}
	}
}

func (h *PushHandler) verify(ctx context.Context, token string) (domainauth.Identity, error) {
	if token == "" {
		return domainauth.Identity{}, model.ErrAuthenticationFailed
	}
	return h.Verifier.Verify(ctx, token)
}

// handleMessage produces exactly one reply for raw. A non-nil error is an
// internal fault that ends the session.
func (h *PushHandler) handleMessage(ctx context.Context, who domainauth.Identity, raw []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errorReply{Error: ErrMsgInvalidJSON}, nil
	}
	if err := pushSchema.Validate(doc); err != nil {
		return errorReply{Error: ErrMsgInvalidStructure}, nil
	}
	var req pushRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorReply{Error: ErrMsgInvalidStructure}, nil
	}

	if req.TaskID != "" {
		st, err := h.Jobs.Status(ctx, req.TaskID)
		if errors.Is(err, model.ErrJobNotFound) {
			return service.PushNotFoundMessage(req.TaskID), nil
		}
		if err != nil {
			return nil, err
		}
		return service.PushStatus(st), nil
	}

	rec, err := h.Jobs.Submit(ctx, who, model.JobParameters{
		Word:      req.Word,
		Algorithm: req.Algorithm,
		CorpusID:  string(req.CorpusID),
	})
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			return errorReply{Error: vErr.Error()}, nil
		}
		return nil, err
	}
	return service.PushStartedMessage(rec), nil
}

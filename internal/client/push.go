package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/service"
)

// PushReply is one message received on the push channel. Error holds the
// failure code of a FAILED task or the reason a message was rejected.
type PushReply struct {
	Status        string              `json:"status,omitempty"`
	TaskID        string              `json:"task_id,omitempty"`
	Progress      *int                `json:"progress,omitempty"`
	CurrentWord   string              `json:"current_word,omitempty"`
	ExecutionTime *float64            `json:"execution_time,omitempty"`
	Results       []model.ResultEntry `json:"results,omitempty"`
	Error         string              `json:"error,omitempty"`
	Word          string              `json:"word,omitempty"`
	Algorithm     string              `json:"algorithm,omitempty"`
}

// Rejected reports whether the server refused the message that produced r.
func (r PushReply) Rejected() bool { return r.Status == "" && r.Error != "" }

// Terminal reports whether no further status change can follow r.
func (r PushReply) Terminal() bool {
	switch r.Status {
	case service.PushCompleted, service.PushFailed, service.PushNotFound:
		return true
	default:
		return false
	}
}

// PushSession is an open push channel. It is not safe for concurrent use.
type PushSession struct {
	ws *websocket.Conn
}

// DialPush opens a push channel authenticated with the client's credential.
func (c *Client) DialPush(ctx context.Context) (*PushSession, error) {
	token, err := c.credential()
	if err != nil {
		return nil, err
	}

	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := url.Values{}
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()

	origin := url.URL{Scheme: c.base.Scheme, Host: c.base.Host}
	cfg, err := websocket.NewConfig(u.String(), origin.String())
	if err != nil {
		return nil, fmt.Errorf("push config: %w", err)
	}
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}
	return &PushSession{ws: ws}, nil
}

// Submit starts a search over the push channel. The reply is STARTED on
// success or a rejection.
func (s *PushSession) Submit(ctx context.Context, params model.JobParameters) (PushReply, error) {
	return s.roundTrip(ctx, params)
}

// Status asks for the current status of a task.
func (s *PushSession) Status(ctx context.Context, taskID string) (PushReply, error) {
	return s.roundTrip(ctx, map[string]string{"task_id": taskID})
}

// Watch polls a task over the push channel until it is terminal, calling fn
// for every reply.
func (s *PushSession) Watch(ctx context.Context, taskID string, interval time.Duration, fn func(PushReply)) (PushReply, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		r, err := s.Status(ctx, taskID)
		if err != nil {
			return PushReply{}, err
		}
		if fn != nil {
			fn(r)
		}
		if r.Terminal() || r.Rejected() {
			return r, nil
		}
		select {
		case <-ctx.Done():
			return r, ctx.Err()
		case <-t.C:
		}
	}
}

func (s *PushSession) roundTrip(ctx context.Context, msg any) (PushReply, error) {
	if dl, ok := ctx.Deadline(); ok {
		if err := s.ws.SetDeadline(dl); err != nil {
			return PushReply{}, err
		}
		defer func() { _ = s.ws.SetDeadline(time.Time{}) }()
	}
	if err := websocket.JSON.Send(s.ws, msg); err != nil {
		return PushReply{}, fmt.Errorf("send: %w", err)
	}
	var r PushReply
	if err := websocket.JSON.Receive(s.ws, &r); err != nil {
		return PushReply{}, fmt.Errorf("receive: %w", err)
	}
	return r, nil
}

// Close ends the session.
func (s *PushSession) Close() error {
	return s.ws.Close()
}

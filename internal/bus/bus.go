// Package bus carries typed requests from the popup to the agent and
// responses back. One server drains requests serially; any number of
// clients may call concurrently. Requests and responses are correlated
// by generated IDs.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zarlcorp/zghost/internal/identity"
)

// Actions the agent understands.
const (
	ActionGetCurrentEmail = "GET_CURRENT_EMAIL"
	ActionGenerateEmail   = "GENERATE_EMAIL"
	ActionGetSettings     = "GET_SETTINGS"
	ActionUpdateSettings  = "UPDATE_SETTINGS"
)

// ErrClosed is returned for calls made against a closed bus.
var ErrClosed = errors.New("bus: closed")

// Request asks the agent to do one thing. Payload is action-specific
// and may be empty.
type Request struct {
	ID      string          `json:"id"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response answers one request. Email is set by the identity actions
// and stays null when no identity exists. Error is non-empty when the
// action failed.
type Response struct {
	ID    string           `json:"id"`
	Email *identity.Record `json:"email"`
	Data  json.RawMessage  `json:"data,omitempty"`
	Error string           `json:"error,omitempty"`
}

// Err converts the response's error field back into an error.
func (r Response) Err() error {
	if r.Error == "" {
		return nil
	}
	return errors.New(r.Error)
}

// Errorf builds an error response.
func Errorf(format string, args ...any) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}

// DecodePayload unmarshals a request payload into dst.
func DecodePayload(req Request, dst any) error {
	if len(req.Payload) == 0 {
		return errors.New("bus: empty payload")
	}
	if err := json.Unmarshal(req.Payload, dst); err != nil {
		return fmt.Errorf("bus: decode payload: %w", err)
	}
	return nil
}

// Handler computes the response for one request.
type Handler func(ctx context.Context, req Request) Response

type call struct {
	req  Request
	resp chan Response
}

// Bus is an in-process request channel.
type Bus struct {
	calls chan call
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// New returns a bus ready for one Serve loop and many callers.
func New() *Bus {
	return &Bus{
		calls: make(chan call),
		done:  make(chan struct{}),
	}
}

// Call sends one request and waits for its response. The context
// bounds the wait; a closed bus fails fast with ErrClosed. payload
// may be nil for actions that take none.
func (b *Bus) Call(ctx context.Context, action string, payload any) (Response, error) {
	req := Request{ID: uuid.NewString(), Action: action}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Response{}, fmt.Errorf("bus: encode payload: %w", err)
		}
		req.Payload = data
	}

	c := call{req: req, resp: make(chan Response, 1)}

	select {
	case b.calls <- c:
	case <-b.done:
		return Response{}, ErrClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-c.resp:
		return resp, nil
	case <-b.done:
		return Response{}, ErrClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Serve drains requests one at a time until the context ends or the
// bus closes. The response ID is stamped from the request, so handlers
// never set it.
func (b *Bus) Serve(ctx context.Context, h Handler) {
	for {
		select {
		case c := <-b.calls:
			resp := h(ctx, c.req)
			resp.ID = c.req.ID
			c.resp <- resp
		case <-b.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close fails in-flight and future calls with ErrClosed. Safe to call
// more than once.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}

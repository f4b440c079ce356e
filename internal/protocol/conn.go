/**
 * Cross-context request/response connection
 *
 * A Conn binds one named context to a transport: outgoing requests are
 * timeout-bounded and correlated by ID; incoming requests are dispatched to
 * per-action handlers. No reply within the timeout is a definitive failure -
 * there are no implicit retries.
 */

package protocol

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	xerrors "github.com/extractext/extractext/internal/errors"
	"github.com/extractext/extractext/internal/logging"
)

// Transport moves opaque frames between named channels. Publish must report
// ErrNoListener when no subscriber is attached to the channel.
type Transport interface {
	Publish(ctx context.Context, channel string, data []byte) error
	Subscribe(ctx context.Context, channel string, fn func(data []byte)) (unsubscribe func(), err error)
}

// Responder delivers a handler's response payload. It must be called exactly
// once per request, synchronously or later.
type Responder func(payload interface{})

// Disposition is the handler's explicit completion marker.
type Disposition int

const (
	// Answered means the responder has already been called.
	Answered Disposition = iota
	// WillAnswer means the handler keeps the responder and calls it later;
	// the dispatcher must not finalize the exchange.
	WillAnswer
)

// Handler processes one decoded request.
type Handler func(ctx context.Context, payload json.RawMessage, respond Responder) Disposition

// Conn is one context's endpoint on the protocol.
type Conn struct {
	name      string
	transport Transport
	log       *logging.Logger

	mu       sync.Mutex
	pending  map[string]chan json.RawMessage
	handlers map[Action]Handler
	unsub    func()
}

// NewConn creates an endpoint named by its own channel. Handlers registered
// before Listen are served from the first delivered frame.
func NewConn(name string, transport Transport) *Conn {
	return &Conn{
		name:      name,
		transport: transport,
		log:       logging.NewLogger("protocol:" + name),
		pending:   make(map[string]chan json.RawMessage),
		handlers:  make(map[Action]Handler),
	}
}

// Handle registers the handler for one action. Last registration wins.
func (c *Conn) Handle(action Action, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[action] = h
}

// Listen subscribes the connection to its own channel.
func (c *Conn) Listen(ctx context.Context) error {
	unsub, err := c.transport.Subscribe(ctx, c.name, func(data []byte) {
		c.deliver(ctx, data)
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.unsub = unsub
	c.mu.Unlock()
	return nil
}

// Close unsubscribes and fails all in-flight waiters.
func (c *Conn) Close() {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	pending := c.pending
	c.pending = make(map[string]chan json.RawMessage)
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	for _, ch := range pending {
		close(ch)
	}
}

// Send issues one request and waits for its reply. Fails with TIMEOUT after
// exactly timeout with no reply, TRANSPORT if the target has no listener.
// The reply payload is returned raw for the caller to decode.
func (c *Conn) Send(ctx context.Context, target string, action Action, payload interface{}, timeout time.Duration) (json.RawMessage, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, xerrors.NewTransportError(target, err)
		}
		raw = data
	}

	id := uuid.New().String()
	env := Envelope{
		Kind:    kindRequest,
		ID:      id,
		ReplyTo: c.name,
		Action:  action,
		Payload: raw,
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return nil, xerrors.NewTransportError(target, err)
	}

	replyCh := make(chan json.RawMessage, 1)
	c.mu.Lock()
	c.pending[id] = replyCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.transport.Publish(ctx, target, frame); err != nil {
		return nil, xerrors.NewTransportError(target, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply, ok := <-replyCh:
		if !ok {
			return nil, xerrors.NewTransportError(target, nil)
		}
		return reply, nil
	case <-timer.C:
		return nil, xerrors.NewTimeoutError(id, timeout)
	case <-ctx.Done():
		return nil, xerrors.NewTransportError(target, ctx.Err())
	}
}

// Ping probes the target for liveness. No side effects; used opportunistically
// before expensive requests, never required.
func (c *Conn) Ping(ctx context.Context, target string, timeout time.Duration) error {
	raw, err := c.Send(ctx, target, ActionPing, nil, timeout)
	if err != nil {
		return err
	}
	var resp PingResponse
	if err := DecodePayload(raw, &resp); err != nil {
		return xerrors.NewTransportError(target, err)
	}
	if !resp.Ready {
		return xerrors.NewTransportError(target, nil)
	}
	return nil
}

func (c *Conn) deliver(ctx context.Context, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.Warn("dropping undecodable frame", "error", err)
		return
	}

	switch env.Kind {
	case kindReply:
		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		c.mu.Unlock()
		if ok {
			select {
			case ch <- env.Payload:
			default:
			}
		}
	case kindRequest:
		c.dispatch(ctx, env)
	default:
		c.log.Warn("dropping frame with unknown kind", "kind", env.Kind)
	}
}

func (c *Conn) dispatch(ctx context.Context, env Envelope) {
	c.mu.Lock()
	handler, ok := c.handlers[env.Action]
	c.mu.Unlock()

	var once sync.Once
	respond := Responder(func(payload interface{}) {
		once.Do(func() {
			if err := c.reply(ctx, env, payload); err != nil {
				c.log.Warn("failed to deliver reply", "action", env.Action, "id", env.ID, "error", err)
			}
		})
	})

	if !ok {
		respond(map[string]interface{}{
			"success": false,
			"error":   "unrecognized action: " + string(env.Action),
		})
		return
	}

	responded := false
	tracked := Responder(func(payload interface{}) {
		responded = true
		respond(payload)
	})

	if handler(ctx, env.Payload, tracked) == WillAnswer {
		// Handler keeps the responder; the exchange stays open until it calls
		// it or the caller's timeout fires.
		return
	}

	if !responded {
		// Synchronous disposition without a response would leave the caller
		// waiting out its full timeout; close the exchange explicitly.
		respond(map[string]interface{}{
			"success": false,
			"error":   "handler completed without a response",
		})
	}
}

func (c *Conn) reply(ctx context.Context, req Envelope, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{
		Kind:    kindReply,
		ID:      req.ID,
		Payload: raw,
	})
	if err != nil {
		return err
	}
	return c.transport.Publish(ctx, req.ReplyTo, frame)
}

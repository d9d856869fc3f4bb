// Package transport defines the envelope and endpoint contracts that carry
// bus traffic between the coordinator and its satellites. Implementations
// must deliver messages reliably and in order per link.
package transport

import (
	"context"
	"encoding/json"

	"github.com/philly/ipcbus/internal/platform/apperror"
)

var (
	ErrNotConnected = apperror.New(apperror.CodeUnavailable, apperror.ReasonNotConnected,
		"satellite is not connected")
	ErrClosed = apperror.New(apperror.CodeUnavailable, apperror.ReasonTransportClosed,
		"transport is closed")
	ErrUnknownSatellite = apperror.New(apperror.CodeNotFound, apperror.ReasonUnknownSatellite,
		"unknown satellite tag")
)

// Message is the wire envelope. Which fields are set depends on Channel.
type Message struct {
	Channel string `json:"channel"`

	// Origin is the tag of the satellite that raised the event, empty when
	// the coordinator raised it. Target is the tag of the recipient.
	Origin string `json:"origin,omitempty"`
	Target string `json:"target,omitempty"`

	Type string            `json:"type,omitempty"`
	Args []json.RawMessage `json:"args,omitempty"`

	ID      int64           `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RemoteError    `json:"error,omitempty"`
}

// RemoteError is a failure reported by the other side of a request.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string { return e.Code + ": " + e.Message }

// Clone returns a deep copy of m, sharing no byte slices with it.
func (m Message) Clone() Message {
	out := m
	if m.Args != nil {
		out.Args = make([]json.RawMessage, len(m.Args))
		for i, a := range m.Args {
			out.Args[i] = append(json.RawMessage(nil), a...)
		}
	}
	if m.Payload != nil {
		out.Payload = append(json.RawMessage(nil), m.Payload...)
	}
	if m.Result != nil {
		out.Result = append(json.RawMessage(nil), m.Result...)
	}
	if m.Error != nil {
		e := *m.Error
		out.Error = &e
	}
	return out
}

// Sender delivers a message to the far end of a link. Send does not wait
// for the far end to process the message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Handler consumes inbound messages. replyTo is the link the message
// arrived on. A transport calls HandleMessage sequentially per link.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message, replyTo Sender)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message, replyTo Sender)

func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message, replyTo Sender) {
	f(ctx, msg, replyTo)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

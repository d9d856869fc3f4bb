// Package appevents holds the event types the coordinator and satellite
// binaries exchange.
package appevents

import (
	"errors"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/philly/ipcbus/internal/platform/eventbus"
)

// Event types
const (
	Window2BeforeClose  eventbus.EventType = "Window2BeforeClose"
	Ping                eventbus.EventType = "Ping"
	SatelliteReady      eventbus.EventType = "SatelliteReady"
	CoordinatorShutdown eventbus.EventType = "CoordinatorShutdown"
)

// BeforeClose returns the before-close event type for a satellite tag, so
// "window2" yields Window2BeforeClose.
func BeforeClose(tag string) eventbus.EventType {
	r, size := utf8.DecodeRuneInString(tag)
	if size == 0 {
		return "BeforeClose"
	}
	return eventbus.EventType(string(unicode.ToUpper(r)) + tag[size:] + "BeforeClose")
}

// SatelliteReadyEvent is broadcast by a satellite once it is connected.
type SatelliteReadyEvent struct {
	Tag        string    `json:"tag"`
	InstanceID uuid.UUID `json:"instance_id"` // new on every satellite start
	OccurredAt time.Time `json:"occurred_at"`
}

// PingEvent is broadcast by the coordinator when a satellite comes up.
type PingEvent struct {
	From       string    `json:"from"`
	Greets     string    `json:"greets,omitempty"` // tag of the satellite that became ready
	OccurredAt time.Time `json:"occurred_at"`
}

// BeforeCloseEvent is broadcast by a satellite that is about to stop.
type BeforeCloseEvent struct {
	Tag        string    `json:"tag"`
	InstanceID uuid.UUID `json:"instance_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CoordinatorShutdownEvent is broadcast by the coordinator as it stops.
type CoordinatorShutdownEvent struct {
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Decode reads the first argument of an event into T.
func Decode[T any](args eventbus.Args) (T, error) {
	var v T
	if args.Len() == 0 {
		return v, errors.New("event carries no payload")
	}
	if err := args.Decode(0, &v); err != nil {
		return v, err
	}
	return v, nil
}

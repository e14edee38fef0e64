// Package delivery sends notifications to recipients through a pluggable
// channel. Channels report two failure classes: errors wrapping
// ErrPermanent will never succeed on retry; every other error, including
// context deadline exceeded, is treated as transient by the caller.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrPermanent marks a delivery failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent delivery failure")

// Permanent wraps err so that errors.Is(err, ErrPermanent) holds.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err is a permanent delivery failure.
func IsPermanent(err error) bool { return errors.Is(err, ErrPermanent) }

// Message is the channel-neutral form of a notification.
type Message struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	RecipientID   string          `json:"recipient_id"`
	LeaseWindowID string          `json:"lease_window_id,omitempty"`
	MissionID     string          `json:"mission_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate rejects messages no channel could deliver.
func (m Message) Validate() error {
	switch {
	case m.ID == "":
		return Permanent(errors.New("message id is empty"))
	case m.RecipientID == "":
		return Permanent(errors.New("recipient is empty"))
	case m.Type == "":
		return Permanent(errors.New("message type is empty"))
	}
	return nil
}

// Channel delivers one message. Implementations must honor ctx
// cancellation and be safe for concurrent use.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// ChannelFunc adapts a function to the Channel interface.
type ChannelFunc func(ctx context.Context, msg Message) error

// Send calls f(ctx, msg).
func (f ChannelFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

package delivery

import (
	"context"

	"github.com/rs/zerolog"
)

// LogChannel "delivers" messages by writing them to a zerolog logger. It is
// the default channel for local runs and for deployments where another
// process tails the log stream.
type LogChannel struct {
	Log zerolog.Logger
}

// NewLogChannel returns a LogChannel writing to l.
func NewLogChannel(l zerolog.Logger) *LogChannel { return &LogChannel{Log: l} }

// Send logs msg at info level.
func (c *LogChannel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	c.Log.Info().
		Str("notification_id", msg.ID).
		Str("type", msg.Type).
		Str("recipient_id", msg.RecipientID).
		Str("lease_window_id", msg.LeaseWindowID).
		Str("mission_id", msg.MissionID).
		RawJSON("payload", nonEmptyJSON(msg.Payload)).
		Msg("notification delivered")
	return nil
}

func nonEmptyJSON(b []byte) []byte {
	if len(b) == 0 {
		return []byte("{}")
	}
	return b
}

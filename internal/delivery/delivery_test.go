package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func sampleMessage() Message {
	return Message{
		ID:            "n1",
		Type:          "exit_reminder",
		RecipientID:   "ops-1",
		LeaseWindowID: "lw-1",
		Payload:       json.RawMessage(`{"days_remaining":10}`),
		CreatedAt:     time.Date(2025, 2, 18, 0, 0, 0, 0, time.UTC),
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Fatalf("Permanent(nil) must be nil")
	}
	base := errors.New("mailbox gone")
	err := Permanent(base)
	if !IsPermanent(err) || !errors.Is(err, base) {
		t.Fatalf("wrapped error must match both ErrPermanent and the cause: %v", err)
	}
	if IsPermanent(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded is transient")
	}
}

func TestMessage_Validate(t *testing.T) {
	m := sampleMessage()
	if err := m.Validate(); err != nil {
		t.Fatalf("valid message rejected: %v", err)
	}
	m.RecipientID = ""
	if err := m.Validate(); !IsPermanent(err) {
		t.Fatalf("missing recipient must be permanent, got %v", err)
	}
}

func TestLogChannel_Send(t *testing.T) {
	var buf bytes.Buffer
	ch := NewLogChannel(zerolog.New(&buf))

	if err := ch.Send(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"notification_id":"n1"`, `"recipient_id":"ops-1"`, `"days_remaining":10`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line missing %s: %s", want, out)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ch.Send(ctx, sampleMessage()); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled context must fail, got %v", err)
	}
}

type fakeWriter struct {
	got    []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { f.closed = true; return nil }

func TestKafkaChannel_SendEncodesAndKeys(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	fw := &fakeWriter{}
	ch := &KafkaChannel{w: fw, topic: "t"}

	if err := ch.Send(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fw.got) != 1 {
		t.Fatalf("expected one record, got %d", len(fw.got))
	}
	rec := fw.got[0]
	if string(rec.Key) != "ops-1" {
		t.Fatalf("record must be keyed by recipient, got %q", rec.Key)
	}
	var decoded Message
	if err := json.Unmarshal(rec.Value, &decoded); err != nil || decoded.ID != "n1" || decoded.LeaseWindowID != "lw-1" {
		t.Fatalf("bad record value: %v %+v", err, decoded)
	}
	if err := ch.Close(); err != nil || !fw.closed {
		t.Fatalf("Close must close the writer")
	}
}

func TestKafkaChannel_ErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"write errors, too large", kafka.WriteErrors{kafka.MessageSizeTooLarge}, true},
		{"write errors, leader moving", kafka.WriteErrors{kafka.LeaderNotAvailable}, false},
		{"write errors, mixed", kafka.WriteErrors{kafka.MessageSizeTooLarge, kafka.LeaderNotAvailable}, false},
		{"write errors, network", kafka.WriteErrors{io.ErrUnexpectedEOF}, false},
		{"write errors, empty", kafka.WriteErrors{nil}, false},
		{"bare protocol error", kafka.MessageSizeTooLarge, true},
		{"bare temporary error", kafka.LeaderNotAvailable, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch := &KafkaChannel{w: &fakeWriter{err: tc.err}, topic: "t"}
			err := ch.Send(context.Background(), sampleMessage())
			if err == nil || IsPermanent(err) != tc.permanent {
				t.Fatalf("Send() = %v; permanent want %v", err, tc.permanent)
			}
		})
	}

	ch := &KafkaChannel{w: &fakeWriter{err: context.DeadlineExceeded}, topic: "t"}
	if err := ch.Send(context.Background(), sampleMessage()); !errors.Is(err, context.DeadlineExceeded) || IsPermanent(err) {
		t.Fatalf("deadline must be transient, got %v", err)
	}

	bad := sampleMessage()
	bad.ID = ""
	if err := ch.Send(context.Background(), bad); !IsPermanent(err) {
		t.Fatalf("invalid message must be permanent, got %v", err)
	}
}

func TestHeaderCarrier(t *testing.T) {
	var c headerCarrier
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	c.Set("tracestate", "x")
	if c.Get("traceparent") != "b" || len(c.Keys()) != 2 || c.Get("missing") != "" {
		t.Fatalf("carrier mismatch: %+v", c.headers)
	}
}

func TestChannelFunc(t *testing.T) {
	called := false
	var ch Channel = ChannelFunc(func(context.Context, Message) error { called = true; return nil })
	_ = ch.Send(context.Background(), sampleMessage())
	if !called {
		t.Fatalf("ChannelFunc not invoked")
	}
}

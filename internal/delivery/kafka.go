package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// messageWriter is the subset of *kafka.Writer the channel needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaChannel publishes each message as JSON to a Kafka topic, keyed by
// recipient so one recipient's notifications stay ordered. Trace context is
// propagated in the record headers.
type KafkaChannel struct {
	w     messageWriter
	topic string
}

// NewKafkaChannel builds a channel backed by a synchronous kafka.Writer.
func NewKafkaChannel(brokers []string, topic string) *KafkaChannel {
	return &KafkaChannel{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic: topic,
	}
}

// Send encodes msg and writes it to the topic. Kafka protocol errors that
// are not temporary are reported as permanent.
func (c *KafkaChannel) Send(ctx context.Context, msg Message) error {
	ctx, span := otel.Tracer("delivery/kafka").Start(ctx, "KafkaChannel.Send",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", c.topic),
			attribute.String("notification.type", msg.Type),
		))
	defer span.End()

	if err := msg.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid message")
		return err
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return Permanent(err)
	}

	carrier := headerCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	err = c.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.RecipientID),
		Value:   value,
		Headers: carrier.headers,
		Time:    msg.CreatedAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return classifyWriteError(err)
	}
	return nil
}

// classifyWriteError marks err permanent when every failure it carries is a
// non-temporary Kafka protocol error. A synchronous Writer reports
// per-message failures as kafka.WriteErrors.
func classifyWriteError(err error) error {
	var werrs kafka.WriteErrors
	if !errors.As(err, &werrs) {
		if permanentKafkaError(err) {
			return Permanent(err)
		}
		return err
	}
	failed := 0
	for _, e := range werrs {
		if e == nil {
			continue
		}
		if !permanentKafkaError(e) {
			return err
		}
		failed++
	}
	if failed == 0 {
		return err
	}
	return Permanent(err)
}

func permanentKafkaError(err error) bool {
	var kerr kafka.Error
	return errors.As(err, &kerr) && !kerr.Temporary()
}

// Close flushes and closes the underlying writer.
func (c *KafkaChannel) Close() error { return c.w.Close() }

// headerCarrier adapts Kafka record headers to propagation.TextMapCarrier.
type headerCarrier struct {
	headers []kafka.Header
}

func (h *headerCarrier) Get(key string) string {
	for _, kv := range h.headers {
		if kv.Key == key {
			return string(kv.Value)
		}
	}
	return ""
}

func (h *headerCarrier) Set(key, value string) {
	for i, kv := range h.headers {
		if kv.Key == key {
			h.headers[i].Value = []byte(value)
			return
		}
	}
	h.headers = append(h.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (h *headerCarrier) Keys() []string {
	out := make([]string, 0, len(h.headers))
	for _, kv := range h.headers {
		out = append(out, kv.Key)
	}
	return out
}

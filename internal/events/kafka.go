package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/AuthGate/internal/obs/retry"
)

var _ Publisher = (*KafkaPublisher)(nil)

type KafkaPublisher struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		topic: topic,
		log:   zap.L().With(zap.String("component", "events.kafka"), zap.String("topic", topic)),
	}
}

func (p *KafkaPublisher) WithLogger(l *zap.Logger) *KafkaPublisher {
	if l == nil {
		return p
	}
	cp := *p
	cp.log = l.With(zap.String("component", "events.kafka"), zap.String("topic", p.topic))
	return &cp
}

// Publish keys messages by user id so per-user ordering survives
// partitioning. Trace context travels in the message headers.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	value, err := json.Marshal(e)
	if err != nil {
		p.log.Error("event marshal failed", zap.Error(err))
		return err
	}

	tr := otel.Tracer("events.kafka")
	ctx, span := tr.Start(ctx, "events.publish "+p.topic, trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingOperationPublish,
		),
	)
	defer span.End()

	hdrs := mapCarrierHeaders{}
	otel.GetTextMapPropagator().Inject(ctx, hdrs)

	msg := kafka.Message{
		Key:     []byte(strconv.FormatInt(e.UserID, 10)),
		Value:   value,
		Headers: hdrs.ToKafka(),
	}
	err = retry.Do(ctx, func() error { return p.w.WriteMessages(ctx, msg) }, retry.EventsPolicy(p.log))
	if err != nil {
		p.log.Error("kafka write failed", zap.Error(err), zap.String("event", string(e.Type)))
		return err
	}
	p.log.Debug("event published",
		zap.String("event", string(e.Type)),
		zap.Int64("user_id", e.UserID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

type mapCarrierHeaders map[string]string

func (m mapCarrierHeaders) Get(k string) string { return m[k] }
func (m mapCarrierHeaders) Set(k, v string)     { m[k] = v }
func (m mapCarrierHeaders) Keys() []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}
func (m mapCarrierHeaders) ToKafka() []kafka.Header {
	hs := make([]kafka.Header, 0, len(m))
	for k, v := range m {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return hs
}

package cdc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/retry"
)

// KafkaBroker implements Broker with segmentio/kafka-go. Connect dials the
// seed brokers and reads the topic's partition metadata, so it only
// succeeds once the cluster is up and the topic exists.
type KafkaBroker struct {
	cfg    Config
	dialer *kafka.Dialer
	logger *zap.SugaredLogger
}

func NewKafkaBroker(cfg Config, logger *zap.SugaredLogger) *KafkaBroker {
	return &KafkaBroker{
		cfg: cfg,
		dialer: &kafka.Dialer{
			ClientID:  cfg.ClientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
		logger: logger,
	}
}

func (b *KafkaBroker) Connect(ctx context.Context) error {
	if len(b.cfg.Brokers) == 0 {
		return retry.Fatal(errors.New("no kafka brokers configured"))
	}
	var errs []error
	for _, addr := range b.cfg.Brokers {
		conn, err := b.dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, fmt.Errorf("dial %s: %w", addr, err))
			continue
		}
		_, err = conn.ReadPartitions(b.cfg.Topic)
		_ = conn.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("read partitions of %s from %s: %w", b.cfg.Topic, addr, err))
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}

func (b *KafkaBroker) Subscribe(_ context.Context, topic string, fromBeginning bool) (Stream, error) {
	start := kafka.LastOffset
	if fromBeginning {
		start = kafka.FirstOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        b.cfg.Brokers,
		GroupID:        b.cfg.GroupID,
		Topic:          topic,
		Dialer:         b.dialer,
		StartOffset:    start,
		CommitInterval: time.Second,
		MinBytes:       1,
		MaxBytes:       10e6,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			b.logger.Errorf("kafka: "+msg, args...)
		}),
	})
	return &kafkaStream{r: r}, nil
}

// Close is a no-op: connections are owned by the streams.
func (b *KafkaBroker) Close() error { return nil }

type kafkaStream struct {
	r *kafka.Reader
}

// Next reads the next message. With a GroupID set, ReadMessage marks the
// offset for the periodic group commit.
func (s *kafkaStream) Next(ctx context.Context) (Message, error) {
	m, err := s.r.ReadMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Time:      m.Time,
	}, nil
}

func (s *kafkaStream) Close() error { return s.r.Close() }

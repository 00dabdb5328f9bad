// Package cdc consumes change-data-capture events from a message broker and
// writes them to the event log.
//
// Delivery is at-least-once: offsets are checkpointed by the consumer group,
// so a restart may replay events. A message whose payload is not JSON is
// logged and skipped; it never stops the stream.
package cdc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/eventlog"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/retry"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/utilities"
)

// ErrBrokerUnavailable is returned by Run when the broker could not be
// reached within the configured attempts, or the stream broke. It is fatal
// for the consumer.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// DecodeError describes a message whose payload could not be decoded.
type DecodeError struct {
	Topic     string
	Partition int
	Offset    int64
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s[%d]@%d: %v", e.Topic, e.Partition, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type Config struct {
	Brokers         []string      `env:"BROKERS" envDefault:"kafka:9092" envSeparator:","`
	Topic           string        `env:"TOPIC" envDefault:"tidb_changes"`
	GroupID         string        `env:"GROUP_ID" envDefault:"cdc-group"`
	ClientID        string        `env:"CLIENT_ID" envDefault:"cdc-consumer"`
	ConnectAttempts int           `env:"CONNECT_ATTEMPTS" envDefault:"10"`
	ConnectDelay    time.Duration `env:"CONNECT_DELAY" envDefault:"3s"`
	FromBeginning   bool          `env:"FROM_BEGINNING" envDefault:"true"`
	Enabled         bool          `env:"ENABLED" envDefault:"true"`
}

// Sink receives decoded events and decode failures.
type Sink interface {
	Event(r eventlog.Record)
	DecodeFailure(topic string, partition int, offset int64, raw []byte, err error)
}

// Consumer drives a Broker through
// Disconnected -> Connecting -> Connected -> Subscribed -> Consuming.
type Consumer struct {
	cfg     Config
	broker  Broker
	sink    Sink
	ids     *utilities.IDSource
	logger  *zap.SugaredLogger
	metrics *Metrics
	now     func() time.Time

	state atomic.Int32
}

// NewConsumer wires a consumer. metrics may be nil.
func NewConsumer(cfg Config, broker Broker, sink Sink, ids *utilities.IDSource, logger *zap.SugaredLogger, metrics *Metrics) *Consumer {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Consumer{
		cfg:     cfg,
		broker:  broker,
		sink:    sink,
		ids:     ids,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// State reports the current lifecycle state.
func (c *Consumer) State() State { return State(c.state.Load()) }

func (c *Consumer) setState(s State) {
	if prev := State(c.state.Swap(int32(s))); prev != s {
		c.logger.Debugw("cdc consumer state", "from", prev.String(), "to", s.String())
	}
	c.metrics.state.Set(float64(s))
}

// Run connects, subscribes and consumes until ctx is cancelled (returns nil)
// or the broker is lost for good (returns an error wrapping
// ErrBrokerUnavailable). It closes the broker before returning.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.setState(Disconnected)

	if err := c.connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		if err := c.broker.Close(); err != nil {
			c.logger.Warnw("close broker", "err", err)
		}
	}()

	stream, err := c.broker.Subscribe(ctx, c.cfg.Topic, c.cfg.FromBeginning)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: subscribe %s: %w", ErrBrokerUnavailable, c.cfg.Topic, err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			c.logger.Warnw("close stream", "err", err)
		}
	}()
	c.setState(Subscribed)
	c.logger.Infow("subscribed", "topic", c.cfg.Topic, "group", c.cfg.GroupID, "from_beginning", c.cfg.FromBeginning)

	c.setState(Consuming)
	for {
		msg, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("cdc consumer stopping")
				return nil
			}
			return fmt.Errorf("%w: consume %s: %w", ErrBrokerUnavailable, c.cfg.Topic, err)
		}
		c.handle(msg)
	}
}

func (c *Consumer) connect(ctx context.Context) error {
	policy := retry.Policy{
		Attempts: c.cfg.ConnectAttempts,
		Delay:    c.cfg.ConnectDelay,
		OnFailure: func(attempt int, err error) {
			c.metrics.connectFailures.Inc()
			c.logger.Warnw("broker not ready, retrying",
				"attempt", attempt, "of", c.cfg.ConnectAttempts, "delay", c.cfg.ConnectDelay, "err", err)
		},
	}
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		c.setState(Connecting)
		if err := c.broker.Connect(ctx); err != nil {
			c.setState(Disconnected)
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}
	c.setState(Connected)
	c.logger.Infow("broker connected", "brokers", c.cfg.Brokers)
	return nil
}

func (c *Consumer) handle(msg Message) {
	payload, err := decode(msg)
	if err != nil {
		c.metrics.decodeErrors.Inc()
		c.sink.DecodeFailure(msg.Topic, msg.Partition, msg.Offset, msg.Value, err)
		return
	}
	c.sink.Event(eventlog.Record{
		ID:          c.ids.Next(),
		Topic:       msg.Topic,
		Partition:   msg.Partition,
		Offset:      msg.Offset,
		ProcessedAt: c.now().UTC(),
		Event:       payload,
	})
	c.metrics.consumed.Inc()
}

// decode parses exactly one JSON value. Numbers are kept as json.Number so
// 64-bit row ids survive.
func decode(msg Message) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(msg.Value))
	dec.UseNumber()
	var payload any
	err := dec.Decode(&payload)
	if err == nil {
		if _, tail := dec.Token(); tail != io.EOF {
			err = errors.New("trailing data after JSON value")
		}
	}
	if err != nil {
		return nil, &DecodeError{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset, Err: err}
	}
	return payload, nil
}

// Package eventlog is the durable structured sink for user activity and
// consumed change events. Records are JSON lines written to stdout and to a
// time-rotated file.
package eventlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/utilities"
)

// Action tags written with activity records.
const (
	ActionLoginSuccess = "login_success"
	ActionRegister     = "register"
)

type Config struct {
	Path     string        `env:"PATH" envDefault:"logs/events.log"`
	MaxAge   time.Duration `env:"MAX_AGE" envDefault:"168h"`
	Rotation time.Duration `env:"ROTATION" envDefault:"24h"`
	// Stdout mirrors every record to standard output as well.
	Stdout bool `env:"STDOUT" envDefault:"true"`
}

// Record is one consumed change event as it is written to the sink.
type Record struct {
	ID          string
	Topic       string
	Partition   int
	Offset      int64
	ProcessedAt time.Time
	Event       any
}

// Logger writes activity and CDC records.
type Logger struct {
	activity *zap.Logger
	cdc      *zap.Logger
	closer   io.Closer
}

// New opens the rotating file described by cfg. An empty Path disables the
// file and keeps only stdout.
func New(cfg Config) (*Logger, error) {
	var writers []zapcore.WriteSyncer
	var closer io.Closer
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create event log dir: %w", err)
		}
		rl, err := rotatelogs.New(
			cfg.Path+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.Path),
			rotatelogs.WithMaxAge(cfg.MaxAge),
			rotatelogs.WithRotationTime(cfg.Rotation),
		)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		writers = append(writers, zapcore.AddSync(rl))
		closer = rl
	}
	if cfg.Stdout || len(writers) == 0 {
		writers = append(writers, zapcore.Lock(os.Stdout))
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(utilities.EncoderConfig()),
		zapcore.NewMultiWriteSyncer(writers...),
		zapcore.InfoLevel,
	)
	l := NewWithCore(core)
	l.closer = closer
	return l, nil
}

// NewWithCore builds a Logger on an existing core.
func NewWithCore(core zapcore.Core) *Logger {
	base := zap.New(core)
	return &Logger{
		activity: base.Named("user_activity"),
		cdc:      base.Named("cdc"),
	}
}

// Activity records a user action such as a successful login.
func (l *Logger) Activity(accountID int64, action string) {
	l.activity.Info("user activity",
		zap.Int64("account_id", accountID),
		zap.String("action", action),
	)
}

// Event records one decoded change event.
func (l *Logger) Event(r Record) {
	l.cdc.Info("cdc event",
		zap.String("record_id", r.ID),
		zap.Time("timestamp", r.ProcessedAt),
		zap.String("topic", r.Topic),
		zap.Int("partition", r.Partition),
		zap.Int64("offset", r.Offset),
		zap.Any("event", r.Event),
	)
}

// DecodeFailure records a message that could not be decoded.
func (l *Logger) DecodeFailure(topic string, partition int, offset int64, raw []byte, err error) {
	const maxPreview = 256
	preview := raw
	if len(preview) > maxPreview {
		preview = preview[:maxPreview]
	}
	l.cdc.Error("failed to parse CDC message",
		zap.String("topic", topic),
		zap.Int("partition", partition),
		zap.Int64("offset", offset),
		zap.ByteString("raw", preview),
		zap.Error(err),
	)
}

// Close flushes buffered records and closes the rotating file.
func (l *Logger) Close() error {
	_ = l.activity.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

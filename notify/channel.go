// Package notify delivers report text to people. A Channel takes one HTML
// payload and owns the platform details (chunking, parse mode, retries).
//
//	ch := notify.Multi(logger, tg, notify.NewWebhook("ops", url, nil))
//	if err := ch.Send(ctx, text); err != nil { ... }
//
// Empty payloads are dropped by every channel.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Channel is an outbound notification target.
type Channel interface {
	// Send delivers text, splitting it as the platform requires.
	Send(ctx context.Context, text string) error
	// Name identifies the channel in logs.
	Name() string
}

// Log is the channel used when nothing else is configured: payloads are
// written to the logger at info level.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log channel. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Send(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	l.logger.InfoContext(ctx, "notify: message", "channel", l.Name(), "text", text)
	return nil
}

type multi struct {
	channels []Channel
	logger   *slog.Logger
}

// Multi fans a payload out to every channel. All channels are attempted; the
// joined errors of the failing ones are returned. With no channels it
// behaves as a Log channel.
func Multi(logger *slog.Logger, channels ...Channel) Channel {
	if logger == nil {
		logger = slog.Default()
	}
	var live []Channel
	for _, c := range channels {
		if c != nil {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		return NewLog(logger)
	}
	if len(live) == 1 {
		return live[0]
	}
	return &multi{channels: live, logger: logger}
}

func (m *multi) Name() string { return "multi" }

func (m *multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, c := range m.channels {
		if err := c.Send(ctx, text); err != nil {
			m.logger.Warn("notify: channel failed", "channel", c.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

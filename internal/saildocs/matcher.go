package saildocs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/searelay/searelay/internal/mailbox"
)

// ErrTimeout is returned when no qualifying reply arrives within the attempt
// budget. It is a correlation outcome, not a transport failure.
var ErrTimeout = errors.New("saildocs: no reply within correlation window")

// ReplyLister lists candidate reply messages from a sender address.
type ReplyLister interface {
	ListFrom(ctx context.Context, sender string) ([]mailbox.Message, error)
}

// Matcher correlates a dispatched request with its asynchronous reply.
//
// Saildocs does not echo a request identifier, so the only correlation signal
// is the reply timestamp: the first message from the reply address dated
// strictly after the dispatch time wins. This is single-flight by construction;
// the relay never overlaps two dispatches, and any caller must preserve that.
type Matcher struct {
	logger      *slog.Logger
	replies     ReplyLister
	sender      string
	maxAttempts int
	interval    time.Duration
}

func NewMatcher(log *slog.Logger, replies ReplyLister, sender string, maxAttempts int, interval time.Duration) *Matcher {
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Matcher{
		logger:      log.With(slog.String("service", "saildocs.matcher")),
		replies:     replies,
		sender:      sender,
		maxAttempts: maxAttempts,
		interval:    interval,
	}
}

// AwaitReply polls the mailbox until it finds a reply dated strictly after
// sentAt, the attempt budget runs out (ErrTimeout), or ctx is cancelled.
// Transport errors during a poll are logged and count as a missed attempt.
func (m *Matcher) AwaitReply(ctx context.Context, sentAt time.Time) (mailbox.Message, error) {
	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return mailbox.Message{}, ctx.Err()
		case <-timer.C:
		}
		timer.Reset(m.interval)

		candidates, err := m.replies.ListFrom(ctx, m.sender)
		if err != nil {
			m.logger.Warn("reply poll failed",
				slog.Int("attempt", attempt), slog.Any("error", err))
			continue
		}
		for _, candidate := range candidates {
			if candidate.Date.After(sentAt) {
				m.logger.Info("reply correlated",
					slog.Int("attempt", attempt),
					slog.String("message_id", candidate.ID()),
					slog.Time("received_at", candidate.Date))
				return candidate, nil
			}
		}
	}

	m.logger.Warn("correlation window exhausted",
		slog.Int("attempts", m.maxAttempts), slog.Duration("interval", m.interval))
	return mailbox.Message{}, ErrTimeout
}

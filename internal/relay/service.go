// Package relay is the orchestrator: it polls the mailbox, routes each
// inbound inReach message through the chat or weather pipeline, and pushes
// the result back to the device as chunked posts.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/searelay/searelay/internal/inreach"
	"github.com/searelay/searelay/internal/mailbox"
	"github.com/searelay/searelay/internal/saildocs"
	"github.com/searelay/searelay/internal/sanitize"
)

// Fixed diagnostics chunked back to the device when a weather transaction
// fails. The wording is part of the device-side contract.
const (
	diagInvalidFormat = "Invalid request format, use e.g. 'gfs:25n,30n,70w,60w|1,1|0,72|wind,press'"
	diagTimeout       = "Saildocs timeout"
	diagNoAttachment  = "Could not download grib attachment"
	diagFetchFailed   = "Could not process weather request"
)

// Inbox lists unread inbound messages carrying the relay's subject tag, and
// marks messages read once the relay is done with them. Listing itself must
// never consume a message; only MarkSeen does.
type Inbox interface {
	ListUnreadTagged(ctx context.Context, tag string) ([]mailbox.Message, error)
	MarkSeen(ctx context.Context, uid imap.UID) error
}

// Chat produces a completion for a chat-tagged message.
type Chat interface {
	Respond(ctx context.Context, message string) (string, error)
}

// Weather runs a full Saildocs round trip for a validated request.
type Weather interface {
	FetchGrib(ctx context.Context, req saildocs.Request) (string, error)
}

// Transmitter pushes a payload to an inReach reply endpoint in chunks.
type Transmitter interface {
	Send(ctx context.Context, destURL, payload string, chunkSize int) ([]inreach.Result, error)
}

// Dedup is the processed-message ledger.
type Dedup interface {
	Contains(id string) bool
	Record(id string) error
}

// Options carries the orchestrator knobs from configuration.
type Options struct {
	SubjectTag    string
	SenderAddress string
	ReplyURLHost  string
	ChatChunkSize int
	GribChunkSize int
	PollInterval  time.Duration
}

// Stats is a point-in-time snapshot of relay activity for the status endpoint.
type Stats struct {
	Processed     int       `json:"processed"`
	Failed        int       `json:"failed"`
	LastTick      time.Time `json:"last_tick"`
	LastMessageID string    `json:"last_message_id"`
}

// Service is the relay state machine. One poll tick handles at most one
// inbound message, and the next tick never starts while a transaction is in
// flight, so there is exactly one pipeline running at any moment.
type Service struct {
	logger   *slog.Logger
	inbox    Inbox
	chat     Chat
	weather  Weather
	transmit Transmitter
	ledger   Dedup
	opts     Options

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	ticking bool
	stats   Stats
}

func NewService(log *slog.Logger, inbox Inbox, chat Chat, weather Weather, transmit Transmitter, ledger Dedup, opts Options) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.ChatChunkSize <= 0 {
		opts.ChatChunkSize = 150
	}
	if opts.GribChunkSize <= 0 {
		opts.GribChunkSize = 120
	}
	return &Service{
		logger:   log.With(slog.String("service", "relay")),
		inbox:    inbox,
		chat:     chat,
		weather:  weather,
		transmit: transmit,
		ledger:   ledger,
		opts:     opts,
	}
}

// Start schedules the poll loop. Ticks overlap-protected: if a transaction
// (including a correlation wait of up to ten minutes) is still running when
// the next tick fires, that tick is skipped.
func (s *Service) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = cron.New()
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.opts.PollInterval), func() {
		s.Tick(ctx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("schedule poll loop: %w", err)
	}
	s.cron.Start()
	go s.Tick(ctx)
	s.logger.Info("relay started", slog.Duration("poll_interval", s.opts.PollInterval))
	return nil
}

// Stop cancels the in-flight transaction, if any, and waits for every tick
// to drain (including the immediate startup tick, which runs outside the
// cron scheduler) or for ctx to expire.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		s.cron.Stop()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick runs one poll cycle: fetch the oldest unseen tagged message, run it
// through its pipeline, and record it in the ledger. Safe to call directly;
// concurrent calls are collapsed to one.
func (s *Service) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.ticking {
		s.mu.Unlock()
		s.logger.Debug("tick skipped, transaction in flight")
		return
	}
	s.ticking = true
	s.wg.Add(1)
	s.stats.LastTick = time.Now().UTC()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.ticking = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	messages, err := s.inbox.ListUnreadTagged(ctx, s.opts.SubjectTag)
	if err != nil {
		s.logger.Error("list inbox failed", slog.Any("error", err))
		return
	}
	for _, msg := range messages {
		if !s.admit(msg) {
			// Rejected for good: flag it read so it stops relisting.
			s.markSeen(ctx, msg)
			continue
		}
		s.handle(ctx, msg)
		return
	}
}

// admit applies the pre-pipeline gates: sender identity, non-empty body, not
// already in the ledger. Rejected messages are skipped without side effects.
func (s *Service) admit(msg mailbox.Message) bool {
	if !strings.EqualFold(strings.TrimSpace(msg.From), s.opts.SenderAddress) {
		s.logger.Debug("ignoring message from foreign sender",
			slog.String("from", msg.From), slog.String("message_id", msg.ID()))
		return false
	}
	if strings.TrimSpace(msg.Body) == "" {
		s.logger.Debug("ignoring empty message", slog.String("message_id", msg.ID()))
		return false
	}
	if s.ledger.Contains(msg.ID()) {
		s.logger.Debug("ignoring already processed message", slog.String("message_id", msg.ID()))
		return false
	}
	return true
}

// markSeen flags the message read. Failure is logged, not fatal: the ledger
// still prevents reprocessing, the message merely relists until a later
// MarkSeen succeeds.
func (s *Service) markSeen(ctx context.Context, msg mailbox.Message) {
	if err := s.inbox.MarkSeen(ctx, msg.UID); err != nil {
		s.logger.Warn("mark seen failed",
			slog.String("message_id", msg.ID()), slog.Any("error", err))
	}
}

// handle runs one full transaction. The ledger write happens exactly once,
// after the pipeline, whatever the pipeline did, so a permanently broken
// message can never wedge the poll loop.
func (s *Service) handle(ctx context.Context, msg mailbox.Message) {
	log := s.logger.With(
		slog.String("transaction", uuid.NewString()),
		slog.String("message_id", msg.ID()))

	failed := false
	defer func() {
		if r := recover(); r != nil {
			log.Error("transaction panicked", slog.Any("panic", r))
			failed = true
		}
		if err := s.ledger.Record(msg.ID()); err != nil {
			log.Error("ledger record failed", slog.Any("error", err))
		}
		s.markSeen(ctx, msg)
		s.mu.Lock()
		s.stats.LastMessageID = msg.ID()
		if failed {
			s.stats.Failed++
		} else {
			s.stats.Processed++
		}
		s.mu.Unlock()
	}()

	destURL := extractReplyURL(msg.Body, s.opts.ReplyURLHost)
	if destURL == "" {
		log.Error("message carries no reply url, cannot respond")
		failed = true
		return
	}

	request := firstNonEmptyLine(msg.Body)
	kind := Classify(request)
	log.Info("message admitted", slog.String("kind", kind.String()), slog.Int("body_chars", len(msg.Body)))

	switch kind {
	case KindChat:
		failed = !s.runChat(ctx, log, destURL, request)
	case KindData:
		failed = !s.runData(ctx, log, destURL, request)
	}
}

// runChat produces a completion, sanitizes it, and transmits it. A reply the
// sanitizer refuses is dropped silently: better no answer than a leaked
// control marker on the device.
func (s *Service) runChat(ctx context.Context, log *slog.Logger, destURL, request string) bool {
	reply, err := s.chat.Respond(ctx, request)
	if err != nil {
		log.Error("chat completion failed", slog.Any("error", err))
		return false
	}
	cleaned, err := sanitize.Prepare(reply)
	if err != nil {
		log.Error("chat reply refused by sanitizer", slog.Any("error", err))
		return false
	}
	if cleaned == "" {
		log.Warn("chat reply empty after sanitizing, nothing to send")
		return false
	}
	return s.deliver(ctx, log, destURL, cleaned, s.opts.ChatChunkSize)
}

// runData validates the request grammar, runs the Saildocs round trip, and
// transmits the encoded GRIB. Every failure point substitutes its own fixed
// diagnostic so the device user is never left with silence.
func (s *Service) runData(ctx context.Context, log *slog.Logger, destURL, request string) bool {
	req, err := saildocs.Parse(request)
	if err != nil {
		log.Warn("request failed grammar validation", slog.Any("error", err))
		s.deliver(ctx, log, destURL, diagInvalidFormat, s.opts.ChatChunkSize)
		return false
	}

	encoded, err := s.weather.FetchGrib(ctx, req)
	switch {
	case errors.Is(err, saildocs.ErrTimeout):
		log.Warn("saildocs reply timed out")
		s.deliver(ctx, log, destURL, diagTimeout, s.opts.ChatChunkSize)
		return false
	case errors.Is(err, saildocs.ErrNoAttachment):
		log.Warn("saildocs reply had no grib attachment", slog.Any("error", err))
		s.deliver(ctx, log, destURL, diagNoAttachment, s.opts.ChatChunkSize)
		return false
	case err != nil:
		log.Error("grib fetch failed", slog.Any("error", err))
		s.deliver(ctx, log, destURL, diagFetchFailed, s.opts.ChatChunkSize)
		return false
	}
	return s.deliver(ctx, log, destURL, encoded, s.opts.GribChunkSize)
}

// deliver pushes payload to the device and reports whether every chunk was
// accepted. Partial delivery is logged chunk by chunk by the transmitter.
func (s *Service) deliver(ctx context.Context, log *slog.Logger, destURL, payload string, chunkSize int) bool {
	results, err := s.transmit.Send(ctx, destURL, payload, chunkSize)
	if err != nil {
		log.Error("transmission rejected", slog.Any("error", err))
		return false
	}
	ok := true
	for _, res := range results {
		if res.Err != nil {
			ok = false
		}
	}
	log.Info("transmission finished", slog.Int("chunks", len(results)), slog.Bool("complete", ok))
	return ok
}

// Snapshot returns current relay statistics.
func (s *Service) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

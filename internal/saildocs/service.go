package saildocs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/searelay/searelay/internal/mailbox"
)

// ErrNoAttachment is returned when a correlated reply carries no GRIB file.
var ErrNoAttachment = errors.New("saildocs: reply has no grib attachment")

// Sender dispatches an outbound email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AttachmentFetcher downloads an attachment from a stored message.
type AttachmentFetcher interface {
	Attachment(ctx context.Context, uid imap.UID, suffix string) (string, []byte, error)
}

// Service runs one full Saildocs round trip: dispatch, correlate, download,
// encode. Single-flight; the relay never starts a second round trip before
// the first returns.
type Service struct {
	logger      *slog.Logger
	sender      Sender
	matcher     *Matcher
	attachments AttachmentFetcher
	queryAddr   string
	storageDir  string
}

func NewService(log *slog.Logger, sender Sender, matcher *Matcher, attachments AttachmentFetcher, queryAddr, storageDir string) *Service {
	return &Service{
		logger:      log.With(slog.String("service", "saildocs")),
		sender:      sender,
		matcher:     matcher,
		attachments: attachments,
		queryAddr:   queryAddr,
		storageDir:  storageDir,
	}
}

// FetchGrib dispatches req to Saildocs and blocks until the reply's GRIB
// attachment has been downloaded and encoded for chunked transport, or the
// correlation window closes. The returned string is zlib+base64 text.
func (s *Service) FetchGrib(ctx context.Context, req Request) (string, error) {
	command := "send " + req.Raw
	if err := s.sender.Send(ctx, s.queryAddr, "", command); err != nil {
		return "", fmt.Errorf("dispatch saildocs request: %w", err)
	}
	sentAt := time.Now().UTC()
	s.logger.Info("saildocs request dispatched",
		slog.String("model", req.Model), slog.String("area", req.Area), slog.Time("sent_at", sentAt))

	reply, err := s.matcher.AwaitReply(ctx, sentAt)
	if err != nil {
		return "", err
	}

	filename, data, err := s.attachments.Attachment(ctx, reply.UID, ".grb")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoAttachment, err)
	}
	s.store(reply, filename, data)

	encoded, err := Encode(data)
	if err != nil {
		return "", err
	}
	s.logger.Info("grib encoded",
		slog.String("filename", filename),
		slog.Int("raw_bytes", len(data)),
		slog.Int("encoded_chars", len(encoded)))
	return encoded, nil
}

// store archives the raw attachment on disk. Archival failure is logged but
// never blocks delivery.
func (s *Service) store(reply mailbox.Message, filename string, data []byte) {
	if s.storageDir == "" {
		return
	}
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		s.logger.Warn("create attachment dir failed", slog.Any("error", err))
		return
	}
	path := filepath.Join(s.storageDir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("archive attachment failed",
			slog.String("path", path), slog.Any("error", err))
		return
	}
	s.logger.Debug("attachment archived",
		slog.String("path", path), slog.String("message_id", reply.ID()))
}

// Package ledger persists the set of inbound message ids the relay has already
// handled, so a message is processed at most once across restarts.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ledger is a durable, append-only set of message identifiers. Single writer:
// the relay records ids one at a time between poll ticks.
type Ledger struct {
	logger *slog.Logger
	path   string
	seen   map[string]struct{}
}

// New creates a ledger backed by the file at path. Call Load before use.
func New(log *slog.Logger, path string) *Ledger {
	return &Ledger{
		logger: log.With(slog.String("service", "ledger")),
		path:   path,
		seen:   make(map[string]struct{}),
	}
}

// Load restores previously recorded ids from disk. A missing file is a fresh
// start; an unreadable file is logged and treated as empty, never fatal.
func (l *Ledger) Load() error {
	file, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		l.logger.Warn("ledger unreadable, starting empty", slog.String("path", l.path), slog.Any("error", err))
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		l.seen[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		l.logger.Warn("ledger partially read, keeping loaded entries", slog.Any("error", err))
	}
	l.logger.Info("ledger loaded", slog.Int("entries", len(l.seen)))
	return nil
}

// Contains reports whether id has already been recorded.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.seen[id]
	return ok
}

// Record adds id to the ledger and flushes the whole set to disk before
// returning, via write-to-temp plus atomic rename.
func (l *Ledger) Record(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("ledger: empty id")
	}
	if _, ok := l.seen[id]; ok {
		return nil
	}
	l.seen[id] = struct{}{}
	return l.flush()
}

// Len returns the number of recorded ids.
func (l *Ledger) Len() int { return len(l.seen) }

func (l *Ledger) flush() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	ids := make([]string, 0, len(l.seen))
	for id := range l.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tmp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return fmt.Errorf("create ledger temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, id := range ids {
		if _, err := w.WriteString(id + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("write ledger: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

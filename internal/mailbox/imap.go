package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sort"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/searelay/searelay/internal/config"
)

// Client performs on-demand IMAP queries and SMTP sends. Each query dials a
// fresh connection; the relay is low-volume and a held connection would only
// go stale between ten-minute correlation waits.
type Client struct {
	logger *slog.Logger
	cfg    config.MailboxConfig
}

func New(log *slog.Logger, cfg config.MailboxConfig) *Client {
	return &Client{
		logger: log.With(slog.String("service", "mailbox")),
		cfg:    cfg,
	}
}

func (c *Client) dialIMAP() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.IMAPHost, c.cfg.IMAPPort)
	opts := &imapclient.Options{TLSConfig: &tls.Config{ServerName: c.cfg.IMAPHost}}

	var client *imapclient.Client
	var err error
	switch c.cfg.IMAPSecurity {
	case "starttls":
		client, err = imapclient.DialStartTLS(addr, opts)
	case "none":
		client, err = imapclient.DialInsecure(addr, opts)
	default:
		client, err = imapclient.DialTLS(addr, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("dial imap (%s): %w", c.cfg.IMAPSecurity, err)
	}
	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("select inbox: %w", err)
	}
	return client, nil
}

// ListUnreadTagged returns unread messages whose subject contains tag, with
// parsed text bodies, oldest first.
func (c *Client) ListUnreadTagged(ctx context.Context, tag string) ([]Message, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	if tag != "" {
		criteria.Header = []imap.SearchCriteriaHeaderField{{Key: "Subject", Value: tag}}
	}
	msgs, err := c.search(ctx, criteria, true)
	if err != nil {
		return nil, err
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Date.Before(msgs[j].Date) })
	return msgs, nil
}

// ListFrom returns envelope data (no bodies) for all messages from sender.
func (c *Client) ListFrom(ctx context.Context, sender string) ([]Message, error) {
	criteria := &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: "From", Value: sender}},
	}
	return c.search(ctx, criteria, false)
}

// MarkSeen flags the message read so it stops appearing in unread listings.
// The relay calls this per message, after recording it or rejecting it, so
// listing alone never consumes the backlog.
func (c *Client) MarkSeen(ctx context.Context, uid imap.UID) error {
	client, err := c.dialIMAP()
	if err != nil {
		return err
	}
	defer client.Close()

	var uidSet imap.UIDSet
	uidSet.AddNum(uid)
	cmd := client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("mark seen uid %d: %w", uid, err)
	}
	return nil
}

// Attachment downloads the first attachment of the message with the given UID
// whose filename ends in suffix. It returns the filename and raw bytes.
func (c *Client) Attachment(ctx context.Context, uid imap.UID, suffix string) (string, []byte, error) {
	client, err := c.dialIMAP()
	if err != nil {
		return "", nil, err
	}
	defer client.Close()

	var uidSet imap.UIDSet
	uidSet.AddNum(uid)

	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{{Peek: true}},
	}
	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	msgData := fetchCmd.Next()
	if msgData == nil {
		return "", nil, fmt.Errorf("message not found: uid %d", uid)
	}
	buf, err := msgData.Collect()
	if err != nil {
		return "", nil, fmt.Errorf("fetch message uid %d: %w", uid, err)
	}
	if len(buf.BodySection) == 0 {
		return "", nil, fmt.Errorf("message uid %d has no body", uid)
	}

	name, data, err := extractAttachment(buf.BodySection[0].Bytes, suffix)
	if err != nil {
		return "", nil, fmt.Errorf("extract attachment from uid %d: %w", uid, err)
	}
	return name, data, nil
}

func (c *Client) search(ctx context.Context, criteria *imap.SearchCriteria, withBody bool) ([]Message, error) {
	client, err := c.dialIMAP()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	data, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	uids := data.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	var uidSet imap.UIDSet
	for _, uid := range uids {
		uidSet.AddNum(uid)
	}
	return c.fetch(client, uidSet, withBody)
}

// fetchOptions builds the FETCH items for a listing. Body sections are always
// peeked: a FETCH must never set \Seen as a side effect, or every queued
// message beyond the one handled this tick would vanish from the next
// unread search.
func fetchOptions(withBody bool) *imap.FetchOptions {
	opts := &imap.FetchOptions{
		Envelope: true,
		UID:      true,
	}
	if withBody {
		opts.BodySection = []*imap.FetchItemBodySection{{Peek: true}}
	}
	return opts
}

func (c *Client) fetch(client *imapclient.Client, uidSet imap.UIDSet, withBody bool) ([]Message, error) {
	fetchCmd := client.Fetch(uidSet, fetchOptions(withBody))
	defer fetchCmd.Close()

	var results []Message
	for {
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil || buf.Envelope == nil {
			continue
		}
		msg := bufToMessage(buf)
		if withBody && len(buf.BodySection) > 0 {
			body, err := extractText(buf.BodySection[0].Bytes)
			if err != nil {
				c.logger.Warn("message body unparsable, keeping raw text",
					slog.Uint64("uid", uint64(buf.UID)), slog.Any("error", err))
				body = string(buf.BodySection[0].Bytes)
			}
			msg.Body = body
		}
		results = append(results, msg)
	}
	return results, nil
}

func bufToMessage(buf *imapclient.FetchMessageBuffer) Message {
	env := buf.Envelope
	from := ""
	if len(env.From) > 0 {
		from = env.From[0].Addr()
	}
	var to []string
	for _, addr := range env.To {
		to = append(to, addr.Addr())
	}
	return Message{
		UID:       buf.UID,
		MessageID: env.MessageID,
		From:      from,
		To:        to,
		Subject:   env.Subject,
		Date:      env.Date,
	}
}

package inreach

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// The endpoint only accepts posts that look like the Garmin web client, so
// the header set and cookie mimic a desktop browser session.
var postHeaders = map[string]string{
	"authority":        "explore.garmin.com",
	"accept":           "*/*",
	"accept-language":  "en-US,en;q=0.9",
	"content-type":     "application/x-www-form-urlencoded; charset=UTF-8",
	"origin":           "https://explore.garmin.com",
	"user-agent":       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.0.0 Safari/537.36",
	"x-requested-with": "XMLHttpRequest",
}

// Result records the outcome of one chunk POST. A failed POST leaves Status
// zero and Err set; transmission of the remaining chunks continues.
type Result struct {
	Seq    int
	Status int
	Err    error
}

// Transmitter posts framed chunks to an inReach reply endpoint with a fixed
// inter-chunk delay. No per-chunk retry: the channel is append-only and a
// duplicate would confuse reassembly more than a gap does.
type Transmitter struct {
	logger       *slog.Logger
	http         *http.Client
	limiter      *rate.Limiter
	replyAddress string
}

func NewTransmitter(log *slog.Logger, replyAddress string, delay time.Duration) *Transmitter {
	if delay <= 0 {
		delay = 5 * time.Second
	}
	return &Transmitter{
		logger:       log.With(slog.String("service", "inreach")),
		http:         &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(delay), 1),
		replyAddress: replyAddress,
	}
}

// Send splits payload into chunks of at most chunkSize characters and posts
// them in order to the destination. The destination is validated before any
// network call. The returned results hold one entry per chunk in order.
func (t *Transmitter) Send(ctx context.Context, destURL, payload string, chunkSize int) ([]Result, error) {
	dest, err := ParseDestination(destURL)
	if err != nil {
		return nil, err
	}
	chunks, err := Split(payload, chunkSize)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("inreach: empty payload")
	}

	results := make([]Result, 0, len(chunks))
	for _, chunk := range chunks {
		if err := t.limiter.Wait(ctx); err != nil {
			return results, err
		}
		t.logger.Info("sending chunk",
			slog.Int("seq", chunk.Seq), slog.Int("total", chunk.Total),
			slog.Int("length", len(chunk.Payload)))

		status, err := t.post(ctx, dest, chunk.Frame())
		if err != nil {
			t.logger.Error("chunk post failed",
				slog.Int("seq", chunk.Seq), slog.Any("error", err))
		}
		results = append(results, Result{Seq: chunk.Seq, Status: status, Err: err})
	}
	return results, nil
}

func (t *Transmitter) post(ctx context.Context, dest Destination, body string) (int, error) {
	form := url.Values{
		"ReplyAddress": {t.replyAddress},
		"ReplyMessage": {body},
		"MessageId":    {randomMessageID()},
		"Guid":         {dest.ExtID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	for k, v := range postHeaders {
		req.Header.Set(k, v)
	}
	req.AddCookie(&http.Cookie{Name: "BrowsingMode", Value: "Desktop"})

	resp, err := t.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("inreach: unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// randomMessageID produces the 8-digit numeric id the endpoint expects per post.
func randomMessageID() string {
	return fmt.Sprintf("%d", 10000000+rand.IntN(90000000))
}

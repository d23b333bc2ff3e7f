package saildocs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/searelay/searelay/internal/mailbox"
)

type fakeSender struct {
	to, subject, body string
	err               error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.to, f.subject, f.body = to, subject, body
	return f.err
}

type fakeAttachments struct {
	filename string
	data     []byte
	err      error
	gotUID   imap.UID
}

func (f *fakeAttachments) Attachment(ctx context.Context, uid imap.UID, suffix string) (string, []byte, error) {
	f.gotUID = uid
	if f.err != nil {
		return "", nil, f.err
	}
	return f.filename, f.data, nil
}

type replyAfterDispatch struct{}

func (replyAfterDispatch) ListFrom(ctx context.Context, sender string) ([]mailbox.Message, error) {
	return []mailbox.Message{{UID: 7, MessageID: "reply", Date: time.Now().Add(time.Minute)}}, nil
}

func TestFetchGribHappyPath(t *testing.T) {
	sender := &fakeSender{}
	attachments := &fakeAttachments{filename: "forecast.grb", data: []byte("GRIBDATA")}
	matcher := NewMatcher(testLogger(), replyAfterDispatch{}, "query-reply@saildocs.com", 2, time.Millisecond)
	svc := NewService(testLogger(), sender, matcher, attachments, "query@saildocs.com", t.TempDir())

	req, err := Parse("gfs:25n,30n,70w,60w|1,1|0,72|wind")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	encoded, err := svc.FetchGrib(context.Background(), req)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if sender.to != "query@saildocs.com" {
		t.Errorf("dispatched to %q", sender.to)
	}
	if sender.body != "send gfs:25n,30n,70w,60w|1,1|0,72|wind" {
		t.Errorf("command body = %q", sender.body)
	}
	if attachments.gotUID != 7 {
		t.Errorf("fetched attachment from uid %d, want correlated reply", attachments.gotUID)
	}
	if got := decode(t, encoded); string(got) != "GRIBDATA" {
		t.Errorf("encoded payload round trip = %q", got)
	}
}

func TestFetchGribTimeout(t *testing.T) {
	sender := &fakeSender{}
	matcher := NewMatcher(testLogger(), &fakeLister{}, "query-reply@saildocs.com", 2, time.Millisecond)
	svc := NewService(testLogger(), sender, matcher, &fakeAttachments{}, "query@saildocs.com", "")

	req, _ := Parse("gfs:25n,30n,70w,60w|1,1|0,72|wind")
	_, err := svc.FetchGrib(context.Background(), req)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestFetchGribAttachmentFailure(t *testing.T) {
	sender := &fakeSender{}
	attachments := &fakeAttachments{err: errors.New("no attachment matching \".grb\"")}
	matcher := NewMatcher(testLogger(), replyAfterDispatch{}, "query-reply@saildocs.com", 2, time.Millisecond)
	svc := NewService(testLogger(), sender, matcher, attachments, "query@saildocs.com", "")

	req, _ := Parse("gfs:25n,30n,70w,60w|1,1|0,72|wind")
	_, err := svc.FetchGrib(context.Background(), req)
	if !errors.Is(err, ErrNoAttachment) {
		t.Fatalf("err = %v, want ErrNoAttachment", err)
	}
}

func TestFetchGribDispatchFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp unreachable")}
	matcher := NewMatcher(testLogger(), &fakeLister{}, "query-reply@saildocs.com", 2, time.Millisecond)
	svc := NewService(testLogger(), sender, matcher, &fakeAttachments{}, "query@saildocs.com", "")

	req, _ := Parse("gfs:25n,30n,70w,60w|1,1|0,72|wind")
	_, err := svc.FetchGrib(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "dispatch saildocs request") {
		t.Fatalf("err = %v, want dispatch failure", err)
	}
}

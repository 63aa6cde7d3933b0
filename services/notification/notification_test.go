package notification

import (
	"context"
	"errors"
	"testing"

	"aiacard/models"

	"firebase.google.com/go/v4/messaging"
)

type recordingSender struct {
	sent []*messaging.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.sent = append(r.sent, m)
	return "projects/test/messages/1", nil
}

func TestNotifyCardOpened(t *testing.T) {
	sender := &recordingSender{}
	svc := NewFCMNotificationService(sender)

	acc := &models.Account{ID: "acc-1", HolderID: "h-9", FCMToken: "device-token"}
	if err := svc.NotifyCardOpened(context.Background(), acc); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Token != "device-token" || msg.Data["type"] != "card_opened" || msg.Data["holderId"] != "h-9" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestPushSkippedWithoutTargetOrClient(t *testing.T) {
	sender := &recordingSender{}
	if err := NewFCMNotificationService(sender).NotifyCardOpened(context.Background(), &models.Account{ID: "a"}); err != nil {
		t.Fatalf("no token: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("must not push without a token")
	}
	if err := NewFCMNotificationService(nil).NotifyCardOpened(context.Background(), &models.Account{FCMToken: "t"}); err != nil {
		t.Fatalf("nil sender: %v", err)
	}
}

func TestPushErrorIsReturned(t *testing.T) {
	svc := NewFCMNotificationService(&recordingSender{err: errors.New("unregistered")})
	if err := svc.NotifyCardOpened(context.Background(), &models.Account{FCMToken: "t"}); err == nil {
		t.Fatal("expected send error")
	}
}

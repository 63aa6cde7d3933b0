package notification

import (
	"context"
	"fmt"

	"aiacard/models"
	"aiacard/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Sender delivers one FCM message. *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NotificationService pushes account events to the holder's device.
type NotificationService interface {
	SendPushNotification(ctx context.Context, acc *models.Account, title, body string, data map[string]string) error
	NotifyCardOpened(ctx context.Context, acc *models.Account) error
}

// FCMNotificationService is the production implementation.
type FCMNotificationService struct {
	sender Sender
}

// NewFCMNotificationService returns a service on sender. A nil sender makes
// every push a no-op.
func NewFCMNotificationService(sender Sender) *FCMNotificationService {
	return &FCMNotificationService{sender: sender}
}

// FromFirebase wraps the global FCM client when Firebase is configured.
func FromFirebase() *FCMNotificationService {
	if utils.FCMClient == nil {
		return NewFCMNotificationService(nil)
	}
	return NewFCMNotificationService(utils.FCMClient)
}

// SendPushNotification sends a high priority push to the account's FCM token.
func (s *FCMNotificationService) SendPushNotification(
	ctx context.Context,
	acc *models.Account,
	title, body string,
	data map[string]string,
) error {
	if s.sender == nil || acc.FCMToken == "" {
		return nil
	}

	msg := &messaging.Message{
		Token: acc.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	id, err := s.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("SendPushNotification: failed to send FCM message: %w", err)
	}
	utils.GetLogger().Debug("push sent", zap.String("accountId", acc.ID), zap.String("messageId", id))
	return nil
}

func (s *FCMNotificationService) NotifyCardOpened(ctx context.Context, acc *models.Account) error {
	return s.SendPushNotification(ctx, acc,
		"Your card is ready",
		"Your AiaCard has been issued. Open the app to view it.",
		map[string]string{
			"type":     "card_opened",
			"holderId": acc.HolderID,
		})
}

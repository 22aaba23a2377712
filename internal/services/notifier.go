package services

import (
	"context"
	"strings"

	"ridemarket/internal/models"
	"ridemarket/internal/utils"
	"ridemarket/pkg/email"
	"ridemarket/pkg/logger"
	"ridemarket/pkg/push"
	"ridemarket/pkg/sms"
)

// Notifier delivers a notification to one recipient, fire-and-forget: a
// failed delivery is logged and never propagated to the state transition
// that triggered it.
type Notifier interface {
	Send(notification *models.Notification)
}

type notifier struct {
	emailSender *email.Sender
	smsProvider sms.SMSProvider
	pushService push.PushProvider
	logger      *logger.Logger
}

func NewNotifier(
	emailSender *email.Sender,
	smsProvider sms.SMSProvider,
	pushService push.PushProvider,
	log *logger.Logger,
) Notifier {
	return &notifier{
		emailSender: emailSender,
		smsProvider: smsProvider,
		pushService: pushService,
		logger:      log,
	}
}

func (n *notifier) Send(notification *models.Notification) {
	go n.deliver(notification)
}

func (n *notifier) deliver(notification *models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), utils.NotificationTimeout)
	defer cancel()

	var err error
	switch channel(notification.Recipient) {
	case utils.NotificationEmail:
		if n.emailSender == nil {
			return
		}
		err = n.emailSender.Send(ctx, notification.Recipient, notification.Subject, notification.Body, notification.SenderName)
	case utils.NotificationSMS:
		if n.smsProvider == nil {
			return
		}
		_, err = n.smsProvider.SendSMS(ctx, &sms.SMSRequest{
			To:      notification.Recipient,
			Message: notification.Body,
		})
	default:
		if n.pushService == nil {
			return
		}
		_, err = n.pushService.SendNotification(ctx, &push.NotificationRequest{
			Token: notification.Recipient,
			Title: notification.Subject,
			Body:  notification.Body,
			Data: map[string]string{
				"type":       string(notification.Type),
				"booking_id": notification.BookingID.Hex(),
			},
		})
	}

	if err != nil {
		n.logger.WithError(err).WithFields(map[string]interface{}{
			"type":       string(notification.Type),
			"booking_id": notification.BookingID.Hex(),
			"severity":   string(notification.Severity),
		}).Warn("Notification delivery failed")
	}
}

// channel infers the transport from the recipient address shape: an
// email address, an E.164 phone number, or a device token.
func channel(recipient string) string {
	if strings.Contains(recipient, "@") {
		return utils.NotificationEmail
	}
	if strings.HasPrefix(recipient, "+") {
		return utils.NotificationSMS
	}
	return utils.NotificationPush
}

package services

import (
	"context"
	"fmt"
	"time"

	"ridemarket/internal/apperrors"
	"ridemarket/internal/guard"
	"ridemarket/internal/models"
	"ridemarket/internal/repositories/interfaces"
	"ridemarket/internal/utils"
	"ridemarket/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageService interface {
	// SendMessage appends a message to the booking thread. When the text
	// trips the contact guard the message is dropped, nothing is
	// persisted, and the violation is returned so the caller can show a
	// short-lived warning.
	SendMessage(ctx context.Context, bookingID, authorID primitive.ObjectID, rawText string) (*models.Message, *guard.Result, error)

	// MarkRead flips read on every message addressed to viewerID. When
	// everything is already read, no write is issued.
	MarkRead(ctx context.Context, bookingID, viewerID primitive.ObjectID) error

	// HideMessages tombstones the given message indices for viewerID
	// only. The counterpart keeps seeing them.
	HideMessages(ctx context.Context, bookingID, viewerID primitive.ObjectID, indices []int) error
}

type messageService struct {
	bookingRepo interfaces.BookingRepository
	notifier    Notifier
	broadcaster Broadcaster
	logger      *logger.Logger
	now         func() time.Time
}

func NewMessageService(bookingRepo interfaces.BookingRepository, notifier Notifier, broadcaster Broadcaster, log *logger.Logger) MessageService {
	return &messageService{
		bookingRepo: bookingRepo,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      log,
		now:         time.Now,
	}
}

func (s *messageService) SendMessage(ctx context.Context, bookingID, authorID primitive.ObjectID, rawText string) (*models.Message, *guard.Result, error) {
	text := utils.SanitizeMessage(rawText)
	if text == "" {
		return nil, nil, fmt.Errorf("%w: empty message", apperrors.ErrInvalidInput)
	}
	if len(text) > utils.MaxMessageLength {
		return nil, nil, fmt.Errorf("%w: message exceeds %d characters", apperrors.ErrInvalidInput, utils.MaxMessageLength)
	}

	// The guard verdict is computed once, before the transaction. Only
	// the category ever reaches the logs; the blocked text is discarded.
	if result := guard.Scan(text); result.Blocked {
		s.logger.LogGuardBlock(bookingID, string(result.Category))
		return nil, &result, nil
	}

	message := models.Message{
		From:   authorID,
		Text:   text,
		SentAt: s.now(),
	}

	booking, err := s.bookingRepo.UpdateBooking(ctx, bookingID, func(b *models.Booking) error {
		if !b.HasParty(authorID) {
			return apperrors.ErrUnauthorized
		}
		if b.Status.Cancelled() {
			return fmt.Errorf("%w: booking is cancelled", apperrors.ErrInvalidTransition)
		}
		b.Messages = append(b.Messages, message)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.LogBookingEvent(bookingID, utils.EventMessageSent, map[string]interface{}{
		"author_id": authorID.Hex(),
	})

	counterpart := booking.OtherParty(authorID)
	if s.broadcaster != nil {
		// The counterpart's personal room carries the badge nudge; the
		// booking room reaches anyone with the thread open.
		if err := s.broadcaster.SendToUser(counterpart.Hex(), utils.EventMessageSent, message); err != nil {
			s.logger.WithError(err).WithBookingID(bookingID).Debug("Live message delivery skipped")
		}
		if err := s.broadcaster.SendToBooking(bookingID.Hex(), utils.EventMessageSent, message); err != nil {
			s.logger.WithError(err).WithBookingID(bookingID).Debug("Live message delivery skipped")
		}
	}

	s.notifier.Send(&models.Notification{
		Recipient: counterpart.Hex(),
		Subject:   "Nytt meddelande",
		Body:      fmt.Sprintf("Du har ett nytt meddelande om resan %s – %s.", booking.RideOrigin, booking.RideDestination),
		Severity:  models.NotificationSeverityInfo,
		Type:      models.NotificationTypeNewMessage,
		BookingID: booking.ID,
		CreatedAt: s.now(),
	})

	return &message, nil, nil
}

func (s *messageService) MarkRead(ctx context.Context, bookingID, viewerID primitive.ObjectID) error {
	changed := false
	_, err := s.bookingRepo.UpdateBooking(ctx, bookingID, func(b *models.Booking) error {
		if !b.HasParty(viewerID) {
			return apperrors.ErrUnauthorized
		}

		changed = false
		for i := range b.Messages {
			m := &b.Messages[i]
			if m.From != viewerID && !m.Read {
				m.Read = true
				changed = true
			}
		}
		if !changed {
			return interfaces.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !changed {
		// Nothing was unread; no write happened and no event is logged.
		return nil
	}

	s.logger.LogBookingEvent(bookingID, utils.EventMessagesRead, map[string]interface{}{
		"viewer_id": viewerID.Hex(),
	})
	return nil
}

func (s *messageService) HideMessages(ctx context.Context, bookingID, viewerID primitive.ObjectID, indices []int) error {
	_, err := s.bookingRepo.UpdateBooking(ctx, bookingID, func(b *models.Booking) error {
		if !b.HasParty(viewerID) {
			return apperrors.ErrUnauthorized
		}

		changed := false
		for _, idx := range indices {
			if idx < 0 || idx >= len(b.Messages) {
				return fmt.Errorf("%w: message index %d out of range", apperrors.ErrInvalidInput, idx)
			}
			m := &b.Messages[idx]
			if !m.HiddenForUser(viewerID) {
				m.HiddenFor = append(m.HiddenFor, viewerID)
				changed = true
			}
		}
		if !changed {
			return interfaces.ErrNoChange
		}
		return nil
	})
	return err
}

package services

import (
	"context"
	"fmt"
	"time"

	"ridemarket/internal/apperrors"
	"ridemarket/internal/models"
	"ridemarket/internal/repositories/interfaces"
	"ridemarket/internal/utils"
	"ridemarket/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingService interface {
	// Lifecycle
	CreateBooking(ctx context.Context, userID primitive.ObjectID, request *models.BookingRequest) (*models.Booking, error)
	Approve(ctx context.Context, bookingID, approverID primitive.ObjectID, request *models.ApproveRequest) (*models.Booking, error)
	Reject(ctx context.Context, bookingID, approverID primitive.ObjectID) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID, actorID primitive.ObjectID, reason models.CancelReason) (*models.Booking, error)

	// DeleteContact irreversibly removes the booking and its unlock
	// cross-references.
	DeleteContact(ctx context.Context, bookingID, actorID primitive.ObjectID) error

	// ApplyUnlock consumes the payment collaborator's event. This is the
	// only path that writes paid_at/contact_unlocked_at.
	ApplyUnlock(ctx context.Context, bookingID primitive.ObjectID, paidAt time.Time) error

	// Read side
	GetBooking(ctx context.Context, bookingID, viewerID primitive.ObjectID) (*models.Booking, error)
	GetBookingsByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	GetBookingsByCounterparty(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	GetBookingsByRide(ctx context.Context, rideID, viewerID primitive.ObjectID) ([]*models.Booking, error)
}

type bookingService struct {
	bookingRepo interfaces.BookingRepository
	notifier    Notifier
	logger      *logger.Logger
	now         func() time.Time
}

func NewBookingService(bookingRepo interfaces.BookingRepository, notifier Notifier, log *logger.Logger) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		notifier:    notifier,
		logger:      log,
		now:         time.Now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, userID primitive.ObjectID, request *models.BookingRequest) (*models.Booking, error) {
	if request.CounterpartyID == userID {
		return nil, fmt.Errorf("%w: cannot book your own ride", apperrors.ErrUnauthorized)
	}

	booking := &models.Booking{
		Type:            request.Type,
		RideID:          request.RideID,
		UserID:          userID,
		CounterpartyID:  request.CounterpartyID,
		RideOrigin:      request.RideOrigin,
		RideDestination: request.RideDestination,
		RideDate:        request.RideDate,
		RideTime:        request.RideTime,
		Status:          models.BookingStatusRequested,
		Seats:           utils.ValidateSeats(request.Seats),
		Messages:        []models.Message{},
	}

	if err := s.bookingRepo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.LogBookingEvent(booking.ID, utils.EventBookingRequested, map[string]interface{}{
		"ride_id": booking.RideID.Hex(),
		"seats":   booking.Seats,
	})

	s.notifier.Send(&models.Notification{
		Recipient: booking.CounterpartyID.Hex(),
		Subject:   "Ny bokningsförfrågan",
		Body:      fmt.Sprintf("Du har en ny förfrågan för resan %s – %s.", booking.RideOrigin, booking.RideDestination),
		Severity:  models.NotificationSeverityInfo,
		Type:      models.NotificationTypeBookingRequested,
		BookingID: booking.ID,
		CreatedAt: s.now(),
	})

	return booking, nil
}

// Approve moves requested -> approved. The status check runs inside the
// same transaction as the write, so two concurrent approvals cannot both
// observe "requested".
func (s *bookingService) Approve(ctx context.Context, bookingID, approverID primitive.ObjectID, request *models.ApproveRequest) (*models.Booking, error) {
	approvedAt := s.now()

	booking, err := s.bookingRepo.UpdateBooking(ctx, bookingID, func(b *models.Booking) error {
		if b.CounterpartyID != approverID {
			return apperrors.ErrUnauthorized
		}
		if b.Status != models.BookingStatusRequested {
			return fmt.Errorf("%w: cannot approve from %q", apperrors.ErrInvalidTransition, b.Status)
		}

		if b.Type == models.BookingTypeContactUnlock {
			b.Status = models.BookingStatusApprovedByPassenger
		} else {
			b.Status = models.BookingStatusApproved
		}
		b.ApprovedAt = &approvedAt

		// Shared contact details are written exactly once, here.
		if request != nil && request.SharedPhone != "" {
			if !utils.IsValidPhone(request.SharedPhone) {
				return fmt.Errorf("%w: invalid phone number", apperrors.ErrInvalidInput)
			}
			b.DriverPhoneShared = utils.NormalizePhone(request.SharedPhone)
		}
		if request != nil && request.SharedEmail != "" && utils.IsValidEmail(request.SharedEmail) {
			b.DriverEmailShared = request.SharedEmail
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogBookingEvent(bookingID, utils.EventBookingApproved, map[string]interface{}{
		"approver_id":  approverID.Hex(),
		"shared_phone": utils.MaskPhone(booking.DriverPhoneShared),
	})

	s.notifier.Send(&models.Notification{
		Recipient: booking.UserID.Hex(),
		Subject:   "Din förfrågan godkändes",
		Body:      fmt.Sprintf("Din förfrågan för resan %s – %s har godkänts.", booking.RideOrigin, booking.RideDestination),
		Severity:  models.NotificationSeverityInfo,
		Type:      models.NotificationTypeBookingApproved,
		BookingID: booking.ID,
		CreatedAt: s.now(),
	})

	return booking, nil
}

func (s *bookingService) Reject(ctx context.Context, bookingID, approverID primitive.ObjectID) (*models.Booking, error) {
	rejectedAt := s.now()

	booking, err := s.bookingRepo.UpdateBooking(ctx, bookingID, func(b *models.Booking) error {
		if b.CounterpartyID != approverID {
			return apperrors.ErrUnauthorized
		}
		if b.Status != models.BookingStatusRequested {
			return fmt.Errorf("%w: cannot reject from %q", apperrors.ErrInvalidTransition, b.Status)
		}

		if b.Type == models.BookingTypeContactUnlock {
			b.Status = models.BookingStatusRejectedByPassenger
		} else {
			b.Status = models.BookingStatusRejected
		}
		b.RejectedAt = &rejectedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogBookingEvent(bookingID, utils.EventBookingRejected, map[string]interface{}{
		"approver_id": approverID.Hex(),
	})

	s.notifier.Send(&models.Notification{
		Recipient: booking.UserID.Hex(),
		Subject:   "Din förfrågan avböjdes",
		Body:      fmt.Sprintf("Din förfrågan för resan %s – %s avböjdes.", booking.RideOrigin, booking.RideDestination),
		Severity:  models.NotificationSeverityInfo,
		Type:      models.NotificationTypeBookingRejected,
		BookingID: booking.ID,
		CreatedAt: s.now(),
	})

	return booking, nil
}

// Cancel is idempotent: cancelling an already-cancelled booking returns
// the record unchanged. A rejection is final and cannot be converted
// into a cancellation.
func (s *bookingService) Cancel(ctx context.Context, bookingID, actorID primitive.ObjectID, reason models.CancelReason) (*models.Booking, error) {
	cancelledAt := s.now()

	booking, err := s.bookingRepo.UpdateBooking(ctx, bookingID, func(b *models.Booking) error {
		if !b.HasParty(actorID) {
			return apperrors.ErrUnauthorized
		}
		if b.Status.Cancelled() {
			return interfaces.ErrNoChange
		}
		if b.Status == models.BookingStatusRejected || b.Status == models.BookingStatusRejectedByPassenger {
			return fmt.Errorf("%w: cannot cancel from %q", apperrors.ErrInvalidTransition, b.Status)
		}

		b.Status = models.CancelledStatus(reason)
		b.CancelledAt = &cancelledAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	if booking.CancelledAt != nil && booking.CancelledAt.Equal(cancelledAt) {
		s.logger.LogBookingEvent(bookingID, utils.EventBookingCancelled, map[string]interface{}{
			"actor_id": actorID.Hex(),
			"reason":   string(reason),
		})

		s.notifier.Send(&models.Notification{
			Recipient: booking.OtherParty(actorID).Hex(),
			Subject:   "Bokning avbokad",
			Body:      fmt.Sprintf("Bokningen för resan %s – %s har avbokats.", booking.RideOrigin, booking.RideDestination),
			Severity:  models.NotificationSeverityWarning,
			Type:      models.NotificationTypeBookingCancelled,
			BookingID: booking.ID,
			CreatedAt: s.now(),
		})
	}

	return booking, nil
}

func (s *bookingService) DeleteContact(ctx context.Context, bookingID, actorID primitive.ObjectID) error {
	booking, err := s.bookingRepo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !booking.HasParty(actorID) {
		return apperrors.ErrUnauthorized
	}

	if err := s.bookingRepo.DeleteBooking(ctx, bookingID); err != nil {
		return err
	}

	s.logger.LogBookingEvent(bookingID, utils.EventBookingDeleted, map[string]interface{}{
		"actor_id": actorID.Hex(),
	})

	return nil
}

func (s *bookingService) ApplyUnlock(ctx context.Context, bookingID primitive.ObjectID, paidAt time.Time) error {
	booking, err := s.bookingRepo.UpdateBooking(ctx, bookingID, func(b *models.Booking) error {
		if b.Unlocked() {
			return interfaces.ErrNoChange
		}
		b.PaidAt = &paidAt
		b.ContactUnlockedAt = &paidAt
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.LogBookingEvent(bookingID, utils.EventContactUnlocked, nil)

	s.notifier.Send(&models.Notification{
		Recipient: booking.UserID.Hex(),
		Subject:   "Kontaktuppgifter upplåsta",
		Body:      "Kontaktuppgifterna för din bokning är nu upplåsta.",
		Severity:  models.NotificationSeverityInfo,
		Type:      models.NotificationTypeContactUnlocked,
		BookingID: booking.ID,
		CreatedAt: s.now(),
	})

	return nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID, viewerID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.HasParty(viewerID) {
		return nil, apperrors.ErrUnauthorized
	}
	booking.Messages = booking.VisibleMessages(viewerID)
	return booking, nil
}

func (s *bookingService) GetBookingsByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return s.bookingRepo.GetBookingsByUser(ctx, userID, params)
}

func (s *bookingService) GetBookingsByCounterparty(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return s.bookingRepo.GetBookingsByCounterparty(ctx, userID, params)
}

func (s *bookingService) GetBookingsByRide(ctx context.Context, rideID, viewerID primitive.ObjectID) ([]*models.Booking, error) {
	bookings, err := s.bookingRepo.GetBookingsByRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	// Only bookings the viewer is a party to are visible.
	visible := make([]*models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.HasParty(viewerID) {
			b.Messages = b.VisibleMessages(viewerID)
			visible = append(visible, b)
		}
	}
	return visible, nil
}

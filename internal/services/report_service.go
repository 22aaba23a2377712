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

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportService interface {
	// CanReport reports whether the 48 hour dispute window is still open
	// for this booking.
	CanReport(ctx context.Context, bookingID, reporterID primitive.ObjectID) (bool, error)

	// ReportDeadline returns the instant the window closes, or nil when
	// the contact was never unlocked.
	ReportDeadline(ctx context.Context, bookingID, reporterID primitive.ObjectID) (*time.Time, error)

	// FileReport flags the booking exactly once and returns the case
	// reference handed to support. A second attempt fails with
	// ErrAlreadyReported even inside the window.
	FileReport(ctx context.Context, bookingID, reporterID primitive.ObjectID, request *models.ReportRequest) (string, error)
}

type reportService struct {
	bookingRepo interfaces.BookingRepository
	notifier    Notifier
	logger      *logger.Logger
	now         func() time.Time
}

func NewReportService(bookingRepo interfaces.BookingRepository, notifier Notifier, log *logger.Logger) ReportService {
	return &reportService{
		bookingRepo: bookingRepo,
		notifier:    notifier,
		logger:      log,
		now:         time.Now,
	}
}

// reportable checks the window against a booking snapshot. The returned
// error distinguishes why reporting is impossible.
func (s *reportService) reportable(b *models.Booking, reporterID primitive.ObjectID) error {
	if !b.HasParty(reporterID) {
		return apperrors.ErrUnauthorized
	}
	if b.Reported {
		return apperrors.ErrAlreadyReported
	}
	unlockedAt := b.UnlockedAt()
	if unlockedAt == nil {
		return fmt.Errorf("%w: contact was never unlocked", apperrors.ErrReportWindowClosed)
	}
	if s.now().Sub(*unlockedAt) >= models.ReportWindow {
		return apperrors.ErrReportWindowClosed
	}
	return nil
}

func (s *reportService) CanReport(ctx context.Context, bookingID, reporterID primitive.ObjectID) (bool, error) {
	booking, err := s.bookingRepo.GetBooking(ctx, bookingID)
	if err != nil {
		return false, err
	}
	return s.reportable(booking, reporterID) == nil, nil
}

func (s *reportService) ReportDeadline(ctx context.Context, bookingID, reporterID primitive.ObjectID) (*time.Time, error) {
	booking, err := s.bookingRepo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.HasParty(reporterID) {
		return nil, apperrors.ErrUnauthorized
	}
	unlockedAt := booking.UnlockedAt()
	if unlockedAt == nil {
		return nil, nil
	}
	deadline := unlockedAt.Add(models.ReportWindow)
	return &deadline, nil
}

func (s *reportService) FileReport(ctx context.Context, bookingID, reporterID primitive.ObjectID, request *models.ReportRequest) (string, error) {
	// The window and the reported flag are re-checked inside the
	// transaction, so two concurrent submissions cannot both succeed.
	booking, err := s.bookingRepo.UpdateBooking(ctx, bookingID, func(b *models.Booking) error {
		if err := s.reportable(b, reporterID); err != nil {
			return err
		}
		b.Reported = true
		return nil
	})
	if err != nil {
		return "", err
	}

	reference := uuid.NewString()

	s.logger.LogBookingEvent(bookingID, utils.EventReportFiled, map[string]interface{}{
		"reporter_id": reporterID.Hex(),
		"reason":      string(request.Reason),
		"reference":   reference,
	})

	s.notifier.Send(&models.Notification{
		Recipient: utils.SupportInbox,
		Subject:   fmt.Sprintf("Rapport %s för bokning %s", reference, bookingID.Hex()),
		Body:      fmt.Sprintf("Anledning: %s\n\n%s", request.Reason, request.Message),
		Severity:  models.NotificationSeverityCritical,
		Type:      models.NotificationTypeReportFiled,
		BookingID: booking.ID,
		CreatedAt: s.now(),
	})

	return reference, nil
}

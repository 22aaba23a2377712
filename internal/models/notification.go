package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string
type NotificationSeverity string

const (
	NotificationTypeBookingRequested NotificationType = "booking_requested"
	NotificationTypeBookingApproved  NotificationType = "booking_approved"
	NotificationTypeBookingRejected  NotificationType = "booking_rejected"
	NotificationTypeBookingCancelled NotificationType = "booking_cancelled"
	NotificationTypeNewMessage       NotificationType = "new_message"
	NotificationTypeContactUnlocked  NotificationType = "contact_unlocked"
	NotificationTypeReportFiled      NotificationType = "report_filed"

	NotificationSeverityInfo     NotificationSeverity = "info"
	NotificationSeverityWarning  NotificationSeverity = "warning"
	NotificationSeverityCritical NotificationSeverity = "critical"
)

// Notification describes a delivery to one recipient. Delivery is
// fire-and-forget; a failed send never rolls back the booking transition
// that triggered it.
type Notification struct {
	Recipient  string               `json:"recipient"`
	Subject    string               `json:"subject"`
	Body       string               `json:"body"`
	SenderName string               `json:"sender_name"`
	Severity   NotificationSeverity `json:"severity"`
	Type       NotificationType     `json:"type"`
	BookingID  primitive.ObjectID   `json:"booking_id"`
	CreatedAt  time.Time            `json:"created_at"`
}

package utils

import "time"

// Application Constants
const (
	AppName    = "RideMarket"
	AppVersion = "1.0.0"

	DefaultLanguage    = "sv"
	DefaultCountryCode = "+46"
	DefaultTimeZone    = "Europe/Stockholm"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Booking Constants
	DefaultSeats = 1
	MaxSeats     = 8

	// Transaction retry policy for contended booking writes
	TransactionMaxAttempts = 3
	TransactionBackoffBase = 50 * time.Millisecond
	TransactionTimeout     = 10 * time.Second

	// Chat
	MaxMessageLength = 1000

	// Guard warning display duration, surfaced to clients alongside a
	// blocked message
	GuardWarningDuration = 8 * time.Second

	// Notification
	NotificationTimeout = 30 * time.Second
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFailed  = "failed"
)

// Error Messages
const (
	ErrInvalidToken    = "invalid token"
	ErrTokenExpired    = "token expired"
	ErrInvalidInput    = "invalid input"
	ErrInternalServer  = "internal server error"
	ErrUnauthorized    = "unauthorized"
	ErrForbidden       = "forbidden"
	ErrNotFound        = "not found"
	ErrConflict        = "conflict"
	ErrBookingNotFound = "booking not found"
)

// Collections
const (
	CollectionBookings    = "bookings"
	CollectionRides       = "rides"
	CollectionAds         = "ads"
	CollectionCheckpoints = "activity_checkpoints"
)

// Cache Keys
const (
	CacheBookingPrefix   = "booking:"
	CacheRateLimitPrefix = "rate_limit:"
)

// Event Types
const (
	EventBookingRequested = "booking_requested"
	EventBookingApproved  = "booking_approved"
	EventBookingRejected  = "booking_rejected"
	EventBookingCancelled = "booking_cancelled"
	EventBookingDeleted   = "booking_deleted"
	EventMessageSent      = "message_sent"
	EventMessagesRead     = "messages_read"
	EventContactUnlocked  = "contact_unlocked"
	EventActivityCounts   = "activity_counts"
	EventReportFiled      = "report_filed"
)

// Notification Channels
const (
	NotificationPush  = "push"
	NotificationSMS   = "sms"
	NotificationEmail = "email"

	// SupportInbox receives dispute reports.
	SupportInbox = "support@ridemarket.se"
)

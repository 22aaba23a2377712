package models

import "time"

type ReportReason string

const (
	ReportReasonNoShow      ReportReason = "no_show"
	ReportReasonWrongNumber ReportReason = "wrong_number"
	ReportReasonNoAnswer    ReportReason = "no_answer"
	ReportReasonOther       ReportReason = "other"
)

// ReportWindow is how long after a contact unlock a booking may still be
// reported.
const ReportWindow = 48 * time.Hour

type ReportRequest struct {
	Reason  ReportReason `json:"reason" binding:"required"`
	Message string       `json:"message"`
}

package models

import "time"

type Booking struct {
	ID              int64     `json:"id"`
	ClientID        int64     `json:"client_id"`
	CreatorID       int64     `json:"creator_id"`
	ScheduledDate   string    `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime   string    `json:"scheduled_time"` // h:mm AM|PM
	LocationType    string    `json:"location_type"`
	DurationKind    string    `json:"duration_kind"`
	TotalPrice      int64     `json:"total_price"`
	DepositAmount   int64     `json:"deposit_amount"`
	ClientCode      string    `json:"client_code"`
	CreatorCode     string    `json:"creator_code"`
	Status          string    `json:"status"` // pending, confirmed, declined, cancelled, completed, no_show, rescheduled
	StatusNote      string    `json:"status_note"`
	SpecialRequests string    `json:"special_requests"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

// BookingRequest is the client-submitted booking form.
type BookingRequest struct {
	ClientID        int64  `json:"client_id"`
	CreatorID       int64  `json:"creator_id"`
	ScheduledDate   string `json:"scheduled_date"`
	ScheduledTime   string `json:"scheduled_time"`
	LocationType    string `json:"location_type"`
	DurationKind    string `json:"duration_kind"`
	SpecialRequests string `json:"special_requests"`
}

// IsTerminal reports whether no further transition is possible from status.
func IsTerminal(status string) bool {
	switch status {
	case StatusDeclined, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

package models

import "time"

type Creator struct {
	ID           int64     `json:"id"`
	DisplayName  string    `json:"display_name"`
	PhotosPrice  int64     `json:"photos_price"`
	ContactPrice int64     `json:"contact_price"`
	Rates        RateTable `json:"rates"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RateTable maps location type to duration kind to price in minor units.
type RateTable map[string]map[string]int64

// Price looks up a rate. ok is false when the location or duration is not offered.
func (t RateTable) Price(locationType, durationKind string) (int64, bool) {
	byDuration, ok := t[locationType]
	if !ok || len(byDuration) == 0 {
		return 0, false
	}
	price, ok := byDuration[durationKind]
	if !ok || price <= 0 {
		return 0, false
	}
	return price, true
}

// Offers reports whether any positive rate exists for the location type.
func (t RateTable) Offers(locationType string) bool {
	for _, price := range t[locationType] {
		if price > 0 {
			return true
		}
	}
	return false
}

// Earning is a single revenue line credited to a creator.
type Earning struct {
	ID        int64     `json:"id"`
	CreatorID int64     `json:"creator_id"`
	ClientID  int64     `json:"client_id"`
	Source    string    `json:"source"` // booking, unlock
	Reference string    `json:"reference"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatorStats are derived aggregates over a creator's earnings.
type CreatorStats struct {
	CreatorID         int64     `json:"creator_id"`
	TotalEarnings     int64     `json:"total_earnings"`
	CompletedBookings int64     `json:"completed_bookings"`
	PhotoUnlocks      int64     `json:"photo_unlocks"`
	ContactUnlocks    int64     `json:"contact_unlocks"`
	UpdatedAt         time.Time `json:"updated_at"`
}

package models

import "time"

type ClientAccount struct {
	ID                int64      `json:"id"`
	Tier              *string    `json:"tier"`
	DepositBalance    int64      `json:"deposit_balance"`
	HasPaidDeposit    bool       `json:"has_paid_deposit"`
	SuccessfulMeetups int        `json:"successful_meetups"`
	IsTrustedMember   bool       `json:"is_trusted_member"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Version           int64      `json:"version"`
}

// TierID returns the assigned tier id or an empty string for unverified accounts.
func (a *ClientAccount) TierID() string {
	if a == nil || a.Tier == nil {
		return ""
	}
	return *a.Tier
}

// IsVerified reports whether a tier has been assigned.
func (a *ClientAccount) IsVerified() bool {
	return a != nil && a.Tier != nil && *a.Tier != ""
}

// TrustedAt derives trusted-member status at the given instant.
func (a *ClientAccount) TrustedAt(now time.Time) bool {
	if a == nil {
		return false
	}
	if a.SuccessfulMeetups >= TrustedMeetupsThreshold {
		return true
	}
	if a.CreatedAt.IsZero() {
		return false
	}
	return !now.Before(a.CreatedAt.AddDate(0, TrustedTenureMonths, 0))
}

// LedgerEntry is one balance movement of a client account.
type LedgerEntry struct {
	ID           int64     `json:"id"`
	ClientID     int64     `json:"client_id"`
	Kind         string    `json:"kind"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Reference    string    `json:"reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RefundStatus is the evaluation of a client's tier refund policy.
type RefundStatus struct {
	TierID           string `json:"tier_id"`
	Eligible         bool   `json:"eligible"`
	MeetupsRequired  int    `json:"meetups_required"`
	MeetupsCompleted int    `json:"meetups_completed"`
	MonthsRequired   int    `json:"months_required"`
	MonthsAsVerified int    `json:"months_as_verified"`
}

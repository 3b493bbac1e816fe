package models

const (
	StatusPending     = "pending"
	StatusConfirmed   = "confirmed"
	StatusDeclined    = "declined"
	StatusCancelled   = "cancelled"
	StatusCompleted   = "completed"
	StatusNoShow      = "no_show"
	StatusRescheduled = "rescheduled"
)

const (
	LocationIncall  = "incall"
	LocationOutcall = "outcall"
)

const (
	DurationOneHour   = "1"
	DurationTwoHours  = "2"
	DurationOvernight = "overnight"
)

const (
	ResourcePhotos  = "photos"
	ResourceContact = "contact"
)

const (
	TierVisitor  = "visitor"
	TierVerified = "verified"
	TierBaller   = "baller"
	TierBossman  = "bossman"
)

// Ledger entry kinds.
const (
	EntryTierDeposit    = "tier_deposit"
	EntryTopUp          = "top_up"
	EntryUnlock         = "unlock"
	EntryBundleUnlock   = "bundle_unlock"
	EntryBookingDeposit = "booking_deposit"
	EntryDebit          = "debit"
)

// Earning sources.
const (
	EarningBooking = "booking"
	EarningUnlock  = "unlock"
)

const (
	// MaxSpecialRequestsLength ограничение длины пожеланий к встрече
	MaxSpecialRequestsLength = 300

	// TrustedMeetupsThreshold число успешных встреч для статуса доверенного участника
	TrustedMeetupsThreshold = 3

	// TrustedTenureMonths стаж в месяцах для статуса доверенного участника
	TrustedTenureMonths = 6

	// BookingDepositPercent доля стоимости встречи, списываемая при создании
	BookingDepositPercent = 50

	// BundleDiscountPercent скидка на пакет фото+контакт
	BundleDiscountPercent = 10

	// DefaultGuardTTL время жизни блокировки покупки в секундах
	DefaultGuardTTL = 30

	// RateLimitRequests количество запросов клиента в окне
	RateLimitRequests = 60

	// RateLimitWindow окно ограничения частоты запросов
	RateLimitWindow = 60 // 1 минута в секундах
)

// DateLayout is the storage and wire layout of calendar dates.
const DateLayout = "2006-01-02"

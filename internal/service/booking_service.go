package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"trustmeet/internal/codes"
	"trustmeet/internal/domain"
	"trustmeet/internal/events"
	"trustmeet/internal/metrics"
	"trustmeet/internal/models"

	"github.com/rs/zerolog"
)

// transitions maps a target status to the statuses it may be entered from.
var transitions = map[string][]string{
	models.StatusConfirmed:   {models.StatusPending, models.StatusRescheduled},
	models.StatusDeclined:    {models.StatusPending},
	models.StatusCancelled:   {models.StatusPending, models.StatusConfirmed},
	models.StatusCompleted:   {models.StatusConfirmed},
	models.StatusNoShow:      {models.StatusConfirmed},
	models.StatusRescheduled: {models.StatusPending, models.StatusConfirmed},
}

var transitionEvents = map[string]string{
	models.StatusConfirmed:   events.EventBookingConfirmed,
	models.StatusDeclined:    events.EventBookingDeclined,
	models.StatusCancelled:   events.EventBookingCancelled,
	models.StatusCompleted:   events.EventBookingCompleted,
	models.StatusNoShow:      events.EventBookingNoShow,
	models.StatusRescheduled: events.EventBookingRescheduled,
}

// CanTransition reports whether a booking in status from may move to to.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[to] {
		if allowed == from {
			return true
		}
	}
	return false
}

type BookingOptions struct {
	Location           *time.Location
	MaxSpecialRequests int
	GuardTTL           time.Duration
}

type BookingService struct {
	accounts domain.AccountRepository
	bookings domain.BookingRepository
	creators domain.CreatorRepository
	guard    domain.PurchaseGuard
	eventBus domain.EventPublisher
	opts     BookingOptions
	logger   *zerolog.Logger

	now           func() time.Time
	generateCodes func() (string, string, error)
}

func NewBookingService(
	accounts domain.AccountRepository,
	bookings domain.BookingRepository,
	creators domain.CreatorRepository,
	guard domain.PurchaseGuard,
	eventBus domain.EventPublisher,
	opts BookingOptions,
	logger *zerolog.Logger,
) *BookingService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxSpecialRequests <= 0 {
		opts.MaxSpecialRequests = models.MaxSpecialRequestsLength
	}
	if opts.GuardTTL <= 0 {
		opts.GuardTTL = models.DefaultGuardTTL * time.Second
	}
	return &BookingService{
		accounts:      accounts,
		bookings:      bookings,
		creators:      creators,
		guard:         guard,
		eventBus:      eventBus,
		opts:          opts,
		logger:        logger,
		now:           time.Now,
		generateCodes: codes.GeneratePair,
	}
}

func (s *BookingService) validateRequest(req *models.BookingRequest) error {
	if req.ClientID == 0 || req.CreatorID == 0 {
		return fmt.Errorf("client and creator are required: %w", models.ErrInvalidRequest)
	}
	// Проверяем дату и время встречи
	if _, err := codes.UnlockInstant(req.ScheduledDate, req.ScheduledTime, s.opts.Location); err != nil {
		return err
	}
	if utf8.RuneCountInString(req.SpecialRequests) > s.opts.MaxSpecialRequests {
		return fmt.Errorf("special requests longer than %d characters: %w", s.opts.MaxSpecialRequests, models.ErrInvalidRequest)
	}
	switch req.LocationType {
	case models.LocationIncall, models.LocationOutcall:
	default:
		return fmt.Errorf("location %q: %w", req.LocationType, models.ErrUnsupportedLocationType)
	}
	switch req.DurationKind {
	case models.DurationOneHour, models.DurationTwoHours, models.DurationOvernight:
	default:
		return fmt.Errorf("duration %q: %w", req.DurationKind, models.ErrUnsupportedDuration)
	}
	return nil
}

// Create prices the request off the creator's rate table, debits the deposit and
// stores a pending booking with fresh verification codes.
func (s *BookingService) Create(ctx context.Context, req *models.BookingRequest) (*models.Booking, error) {
	booking, err := s.create(ctx, req)
	metrics.ObserveTransition(models.StatusPending, err)
	return booking, err
}

func (s *BookingService) create(ctx context.Context, req *models.BookingRequest) (*models.Booking, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetAccount(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !acc.IsVerified() {
		return nil, models.ErrVerificationRequired
	}

	rates, err := s.creators.GetCreatorRateTable(ctx, req.CreatorID)
	if err != nil {
		return nil, err
	}
	if !rates.Offers(req.LocationType) {
		return nil, fmt.Errorf("creator %d does not offer %s: %w", req.CreatorID, req.LocationType, models.ErrUnsupportedLocationType)
	}
	total, ok := rates.Price(req.LocationType, req.DurationKind)
	if !ok {
		return nil, fmt.Errorf("creator %d has no %s rate for %s: %w", req.CreatorID, req.LocationType, req.DurationKind, models.ErrUnsupportedDuration)
	}

	deposit := DepositFor(total)
	if !canAfford(acc, deposit) {
		return nil, fmt.Errorf("deposit %d, balance %d: %w", deposit, acc.DepositBalance, models.ErrInsufficientBalance)
	}

	clientCode, creatorCode, err := s.generateCodes()
	if err != nil {
		return nil, err
	}

	release, err := acquireGuard(ctx, s.guard, fmt.Sprintf("booking:%d:%d", req.ClientID, req.CreatorID), s.opts.GuardTTL, s.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	booking := &models.Booking{
		ClientID:        req.ClientID,
		CreatorID:       req.CreatorID,
		ScheduledDate:   strings.TrimSpace(req.ScheduledDate),
		ScheduledTime:   strings.TrimSpace(req.ScheduledTime),
		LocationType:    req.LocationType,
		DurationKind:    req.DurationKind,
		TotalPrice:      total,
		DepositAmount:   deposit,
		ClientCode:      clientCode,
		CreatorCode:     creatorCode,
		Status:          models.StatusPending,
		SpecialRequests: req.SpecialRequests,
	}
	if err := s.bookings.CreateBookingWithDeposit(ctx, booking); err != nil {
		return nil, err
	}
	metrics.ObserveLedger(models.EntryBookingDeposit, deposit, nil)

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("client_id", booking.ClientID).
		Int64("creator_id", booking.CreatorID).
		Int64("total", total).
		Int64("deposit", deposit).
		Msg("booking created")
	s.publishEvent(events.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) Confirm(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return s.transition(ctx, bookingID, models.StatusConfirmed, "")
}

func (s *BookingService) Decline(ctx context.Context, bookingID int64, reason string) (*models.Booking, error) {
	return s.transition(ctx, bookingID, models.StatusDeclined, reason)
}

// Cancel forfeits the deposit; nothing is refunded.
func (s *BookingService) Cancel(ctx context.Context, bookingID int64, reason string) (*models.Booking, error) {
	return s.transition(ctx, bookingID, models.StatusCancelled, reason)
}

func (s *BookingService) MarkNoShow(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return s.transition(ctx, bookingID, models.StatusNoShow, "")
}

// Complete closes a confirmed booking, counts the meetup for the client and
// credits the creator with the total price.
func (s *BookingService) Complete(ctx context.Context, bookingID int64) (*models.Booking, error) {
	booking, err := s.complete(ctx, bookingID)
	metrics.ObserveTransition(models.StatusCompleted, err)
	return booking, err
}

func (s *BookingService) complete(ctx context.Context, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(booking.Status, models.StatusCompleted) {
		return nil, invalidTransition(booking, models.StatusCompleted)
	}

	earning := EarningForBooking(booking)
	if err := s.bookings.CompleteBooking(ctx, booking, earning); err != nil {
		return nil, err
	}
	booking.Status = models.StatusCompleted
	booking.Version++

	s.logger.Info().Int64("booking_id", bookingID).Int64("earning", earning.Amount).Msg("booking completed")
	s.publishEvent(events.EventBookingCompleted, booking)
	return booking, nil
}

// RequestReschedule moves a booking to rescheduled, optionally with a new date and
// time. Empty values keep the current schedule. Codes do not change.
func (s *BookingService) RequestReschedule(ctx context.Context, bookingID int64, newDate, newTime, note string) (*models.Booking, error) {
	booking, err := s.reschedule(ctx, bookingID, newDate, newTime, note)
	metrics.ObserveTransition(models.StatusRescheduled, err)
	return booking, err
}

func (s *BookingService) reschedule(ctx context.Context, bookingID int64, newDate, newTime, note string) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(booking.Status, models.StatusRescheduled) {
		return nil, invalidTransition(booking, models.StatusRescheduled)
	}

	date := strings.TrimSpace(newDate)
	if date == "" {
		date = booking.ScheduledDate
	}
	clock := strings.TrimSpace(newTime)
	if clock == "" {
		clock = booking.ScheduledTime
	}
	if _, err := codes.UnlockInstant(date, clock, s.opts.Location); err != nil {
		return nil, err
	}
	if note == "" {
		note = booking.StatusNote
	}

	if err := s.bookings.RescheduleBooking(ctx, bookingID, booking.Version, booking.Status, date, clock, note); err != nil {
		return nil, err
	}
	booking.Status = models.StatusRescheduled
	booking.ScheduledDate = date
	booking.ScheduledTime = clock
	booking.StatusNote = note
	booking.Version++

	s.logger.Info().Int64("booking_id", bookingID).Str("date", date).Str("time", clock).Msg("booking rescheduled")
	s.publishEvent(events.EventBookingRescheduled, booking)
	return booking, nil
}

func (s *BookingService) transition(ctx context.Context, bookingID int64, to, note string) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err == nil {
		err = s.applyTransition(ctx, booking, to, note)
	}
	metrics.ObserveTransition(to, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("booking_id", bookingID).Str("status", to).Msg("booking status changed")
	s.publishEvent(transitionEvents[to], booking)
	return booking, nil
}

func (s *BookingService) applyTransition(ctx context.Context, booking *models.Booking, to, note string) error {
	if !CanTransition(booking.Status, to) {
		return invalidTransition(booking, to)
	}
	if note == "" {
		note = booking.StatusNote
	}
	if err := s.bookings.UpdateBookingStatus(ctx, booking.ID, booking.Version, booking.Status, to, note); err != nil {
		return err
	}
	booking.Status = to
	booking.StatusNote = note
	booking.Version++
	return nil
}

func invalidTransition(b *models.Booking, to string) error {
	return fmt.Errorf("booking %d %s -> %s: %w", b.ID, b.Status, to, models.ErrInvalidTransition)
}

func (s *BookingService) Get(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return s.bookings.GetBooking(ctx, bookingID)
}

func (s *BookingService) ListForClient(ctx context.Context, clientID int64) ([]*models.Booking, error) {
	return s.bookings.ListClientBookings(ctx, clientID)
}

func (s *BookingService) ListForCreator(ctx context.Context, creatorID int64, status string) ([]*models.Booking, error) {
	return s.bookings.ListCreatorBookings(ctx, creatorID, status)
}

// Codes returns the verification codes of a booking as visible at the current time.
func (s *BookingService) Codes(ctx context.Context, bookingID int64) (codes.CodeView, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return codes.CodeView{}, err
	}
	return codes.View(booking, s.now(), s.opts.Location)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:     booking.ID,
		ClientID:      booking.ClientID,
		CreatorID:     booking.CreatorID,
		Status:        booking.Status,
		ScheduledDate: booking.ScheduledDate,
		ScheduledTime: booking.ScheduledTime,
		TotalPrice:    booking.TotalPrice,
		Note:          booking.StatusNote,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

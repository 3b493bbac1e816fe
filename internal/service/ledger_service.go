package service

import (
	"context"
	"fmt"
	"time"

	"trustmeet/internal/domain"
	"trustmeet/internal/events"
	"trustmeet/internal/metrics"
	"trustmeet/internal/models"
	"trustmeet/internal/tiers"

	"github.com/rs/zerolog"
)

// LedgerService owns client accounts: tier deposits, top-ups and debits.
type LedgerService struct {
	accounts domain.AccountRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewLedgerService(accounts domain.AccountRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *LedgerService {
	return &LedgerService{
		accounts: accounts,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *LedgerService) Register(ctx context.Context, clientID int64) (*models.ClientAccount, error) {
	acc, err := s.accounts.CreateAccount(ctx, clientID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("client_id", clientID).Msg("account registered")
	return acc, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, clientID int64) (*models.ClientAccount, error) {
	return s.accounts.GetAccount(ctx, clientID)
}

// AssignTier moves the client to tierID. Tiers never go down. The balance becomes
// the new tier's deposit: the deposit is the store credit.
func (s *LedgerService) AssignTier(ctx context.Context, clientID int64, tierID string) (*models.ClientAccount, error) {
	tier, err := tiers.Get(tierID)
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetAccount(ctx, clientID)
	if err != nil {
		return nil, err
	}

	previous := acc.TierID()
	if acc.IsVerified() {
		current, err := tiers.Get(previous)
		if err != nil {
			return nil, err
		}
		if tiers.Compare(tier, current) < 0 {
			return nil, fmt.Errorf("%s -> %s: %w", previous, tier.ID, models.ErrInvalidTierTransition)
		}
	}

	now := s.now()
	delta := tier.DepositAmount - acc.DepositBalance
	acc.Tier = &tier.ID
	acc.HasPaidDeposit = true
	acc.DepositBalance = tier.DepositAmount
	if acc.VerifiedAt == nil {
		verifiedAt := now.UTC()
		acc.VerifiedAt = &verifiedAt
	}
	acc.IsTrustedMember = acc.TrustedAt(now)

	entry := &models.LedgerEntry{
		Kind:      models.EntryTierDeposit,
		Amount:    delta,
		Reference: "tier:" + tier.ID,
	}
	err = s.accounts.WriteAccount(ctx, acc, entry)
	metrics.ObserveLedger(models.EntryTierDeposit, tier.DepositAmount, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("client_id", clientID).
		Str("from", previous).
		Str("to", tier.ID).
		Int64("balance", acc.DepositBalance).
		Msg("tier assigned")
	s.publish(events.EventTierAssigned, events.TierEventPayload{
		ClientID:       clientID,
		PreviousTier:   previous,
		Tier:           tier.ID,
		DepositBalance: acc.DepositBalance,
	})
	return acc, nil
}

func (s *LedgerService) TopUp(ctx context.Context, clientID, amount int64) (*models.ClientAccount, error) {
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}
	acc, err := s.accounts.Credit(ctx, clientID, amount, models.EntryTopUp, "")
	metrics.ObserveLedger(models.EntryTopUp, amount, err)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Debit fails with ErrInsufficientBalance rather than clamping at zero.
func (s *LedgerService) Debit(ctx context.Context, clientID, amount int64, reason string) (*models.ClientAccount, error) {
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}
	acc, err := s.accounts.Debit(ctx, clientID, amount, models.EntryDebit, reason)
	metrics.ObserveLedger(models.EntryDebit, amount, err)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// CanAfford is a read-only hint for presentation; Debit is the authority.
func (s *LedgerService) CanAfford(acc *models.ClientAccount, amount int64) bool {
	return canAfford(acc, amount)
}

func canAfford(acc *models.ClientAccount, amount int64) bool {
	return acc != nil && amount >= 0 && acc.DepositBalance >= amount
}

func (s *LedgerService) IsTrustedMember(acc *models.ClientAccount, now time.Time) bool {
	return acc.TrustedAt(now)
}

// RefundEligibility evaluates the refund policy of the client's tier: either the
// meetup count or the months since verification must reach the policy threshold.
func (s *LedgerService) RefundEligibility(ctx context.Context, clientID int64, now time.Time) (*models.RefundStatus, error) {
	acc, err := s.accounts.GetAccount(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !acc.IsVerified() {
		return nil, models.ErrVerificationRequired
	}
	tier, err := tiers.Get(acc.TierID())
	if err != nil {
		return nil, err
	}

	status := &models.RefundStatus{
		TierID:           tier.ID,
		MeetupsCompleted: acc.SuccessfulMeetups,
	}
	if acc.VerifiedAt != nil {
		status.MonthsAsVerified = monthsBetween(*acc.VerifiedAt, now)
	}
	if tier.RefundPolicy == nil {
		return status, nil
	}
	status.MeetupsRequired = tier.RefundPolicy.MeetupsRequired
	status.MonthsRequired = tier.RefundPolicy.MonthsRequired
	status.Eligible = status.MeetupsCompleted >= status.MeetupsRequired ||
		status.MonthsAsVerified >= status.MonthsRequired
	return status, nil
}

func (s *LedgerService) History(ctx context.Context, clientID int64) ([]*models.LedgerEntry, error) {
	if _, err := s.accounts.GetAccount(ctx, clientID); err != nil {
		return nil, err
	}
	return s.accounts.ListLedgerEntries(ctx, clientID)
}

func (s *LedgerService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

// monthsBetween counts whole calendar months from..to.
func monthsBetween(from, to time.Time) int {
	to = to.In(from.Location())
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if months > 0 && to.Before(from.AddDate(0, months, 0)) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

package service

import (
	"context"
	"fmt"
	"time"

	"trustmeet/internal/domain"
	"trustmeet/internal/events"
	"trustmeet/internal/metrics"
	"trustmeet/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const bundleKind = "bundle"

// UnlockService sells permanent access to a creator's photos and contact.
type UnlockService struct {
	accounts domain.AccountRepository
	unlocks  domain.UnlockRepository
	creators domain.CreatorRepository
	guard    domain.PurchaseGuard
	eventBus domain.EventPublisher
	guardTTL time.Duration
	logger   *zerolog.Logger
}

func NewUnlockService(
	accounts domain.AccountRepository,
	unlocks domain.UnlockRepository,
	creators domain.CreatorRepository,
	guard domain.PurchaseGuard,
	eventBus domain.EventPublisher,
	guardTTL time.Duration,
	logger *zerolog.Logger,
) *UnlockService {
	if guardTTL <= 0 {
		guardTTL = models.DefaultGuardTTL * time.Second
	}
	return &UnlockService{
		accounts: accounts,
		unlocks:  unlocks,
		creators: creators,
		guard:    guard,
		eventBus: eventBus,
		guardTTL: guardTTL,
		logger:   logger,
	}
}

func (s *UnlockService) IsUnlocked(ctx context.Context, clientID, creatorID int64, kind string) (bool, error) {
	if !models.IsResourceKind(kind) {
		return false, fmt.Errorf("resource kind %q: %w", kind, models.ErrInvalidRequest)
	}
	return s.unlocks.IsUnlocked(ctx, clientID, creatorID, kind)
}

func (s *UnlockService) ListUnlocks(ctx context.Context, clientID int64) ([]*models.UnlockRecord, error) {
	return s.unlocks.ListUnlocks(ctx, clientID)
}

// Purchase buys one resource at price. A second purchase of the same key fails
// with ErrAlreadyUnlocked and does not debit again.
func (s *UnlockService) Purchase(ctx context.Context, clientID, creatorID int64, kind string, price int64) (*models.UnlockRecord, error) {
	record, err := s.purchase(ctx, clientID, creatorID, kind, price)
	metrics.ObserveUnlock(kind, err)
	return record, err
}

func (s *UnlockService) purchase(ctx context.Context, clientID, creatorID int64, kind string, price int64) (*models.UnlockRecord, error) {
	if !models.IsResourceKind(kind) {
		return nil, fmt.Errorf("resource kind %q: %w", kind, models.ErrInvalidRequest)
	}
	if price <= 0 {
		return nil, models.ErrInvalidAmount
	}
	if err := s.precheck(ctx, clientID, creatorID, price, kind); err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, clientID, creatorID)
	if err != nil {
		return nil, err
	}
	defer release()

	record := &models.UnlockRecord{
		ClientID:     clientID,
		CreatorID:    creatorID,
		ResourceKind: kind,
		PricePaid:    price,
	}
	if err := s.unlocks.PurchaseUnlocks(ctx, []*models.UnlockRecord{record}, price, models.EntryUnlock); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("client_id", clientID).
		Int64("creator_id", creatorID).
		Str("kind", kind).
		Int64("price", price).
		Msg("unlock purchased")
	s.publish(events.UnlockEventPayload{
		ClientID:  clientID,
		CreatorID: creatorID,
		Kinds:     []string{kind},
		Amount:    price,
	})
	return record, nil
}

// PurchaseBundle buys photos and contact together at the discounted price of the
// two individual prices. Either both records are created or neither.
func (s *UnlockService) PurchaseBundle(ctx context.Context, clientID, creatorID, photosPrice, contactPrice int64) ([]*models.UnlockRecord, error) {
	records, err := s.purchaseBundle(ctx, clientID, creatorID, photosPrice, contactPrice)
	metrics.ObserveUnlock(bundleKind, err)
	return records, err
}

func (s *UnlockService) purchaseBundle(ctx context.Context, clientID, creatorID, photosPrice, contactPrice int64) ([]*models.UnlockRecord, error) {
	if photosPrice <= 0 || contactPrice <= 0 {
		return nil, models.ErrInvalidAmount
	}
	total := BundlePrice(photosPrice, contactPrice)
	if err := s.precheck(ctx, clientID, creatorID, total, models.ResourcePhotos, models.ResourceContact); err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, clientID, creatorID)
	if err != nil {
		return nil, err
	}
	defer release()

	photosShare, contactShare := splitBundle(photosPrice, contactPrice)
	records := []*models.UnlockRecord{
		{ClientID: clientID, CreatorID: creatorID, ResourceKind: models.ResourcePhotos, PricePaid: photosShare},
		{ClientID: clientID, CreatorID: creatorID, ResourceKind: models.ResourceContact, PricePaid: contactShare},
	}
	if err := s.unlocks.PurchaseUnlocks(ctx, records, total, models.EntryBundleUnlock); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("client_id", clientID).
		Int64("creator_id", creatorID).
		Int64("price", total).
		Msg("bundle purchased")
	s.publish(events.UnlockEventPayload{
		ClientID:  clientID,
		CreatorID: creatorID,
		Kinds:     []string{models.ResourcePhotos, models.ResourceContact},
		Amount:    total,
		Bundle:    true,
	})
	return records, nil
}

// PurchaseAtCurrentPrice reads the creator's price for kind and buys at it.
func (s *UnlockService) PurchaseAtCurrentPrice(ctx context.Context, clientID, creatorID int64, kind string) (*models.UnlockRecord, error) {
	creator, err := s.creators.GetCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	price := creator.PhotosPrice
	if kind == models.ResourceContact {
		price = creator.ContactPrice
	}
	return s.Purchase(ctx, clientID, creatorID, kind, price)
}

// PurchaseBundleAtCurrentPrice prices the bundle off the creator's current individual prices.
func (s *UnlockService) PurchaseBundleAtCurrentPrice(ctx context.Context, clientID, creatorID int64) ([]*models.UnlockRecord, error) {
	creator, err := s.creators.GetCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	return s.PurchaseBundle(ctx, clientID, creatorID, creator.PhotosPrice, creator.ContactPrice)
}

// precheck rejects purchases that cannot succeed before taking the guard.
// The store re-checks everything inside its transaction.
func (s *UnlockService) precheck(ctx context.Context, clientID, creatorID, amount int64, kinds ...string) error {
	if _, err := s.creators.GetCreator(ctx, creatorID); err != nil {
		return err
	}
	acc, err := s.accounts.GetAccount(ctx, clientID)
	if err != nil {
		return err
	}
	if !acc.IsVerified() {
		return models.ErrVerificationRequired
	}
	for _, kind := range kinds {
		unlocked, err := s.unlocks.IsUnlocked(ctx, clientID, creatorID, kind)
		if err != nil {
			return err
		}
		if unlocked {
			return fmt.Errorf("%s of creator %d: %w", kind, creatorID, models.ErrAlreadyUnlocked)
		}
	}
	if !canAfford(acc, amount) {
		return fmt.Errorf("need %d, have %d: %w", amount, acc.DepositBalance, models.ErrInsufficientBalance)
	}
	return nil
}

// acquire takes the per (client, creator) purchase guard. A held guard means another
// purchase is in flight: ErrConflict. Guard backend errors are logged and ignored.
func (s *UnlockService) acquire(ctx context.Context, clientID, creatorID int64) (func(), error) {
	return acquireGuard(ctx, s.guard, fmt.Sprintf("unlock:%d:%d", clientID, creatorID), s.guardTTL, s.logger)
}

func (s *UnlockService) publish(payload events.UnlockEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(events.EventUnlockPurchased, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", events.EventUnlockPurchased).Msg("publish event error")
	}
}

func acquireGuard(ctx context.Context, guard domain.PurchaseGuard, key string, ttl time.Duration, logger *zerolog.Logger) (func(), error) {
	noop := func() {}
	if guard == nil {
		return noop, nil
	}
	token := uuid.NewString()
	ok, err := guard.Acquire(ctx, key, token, ttl)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("purchase guard unavailable")
		return noop, nil
	}
	if !ok {
		return nil, fmt.Errorf("%s in progress: %w", key, models.ErrConflict)
	}
	return func() {
		// release must not depend on a cancelled request context
		if err := guard.Release(context.WithoutCancel(ctx), key, token); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to release purchase guard")
		}
	}, nil
}

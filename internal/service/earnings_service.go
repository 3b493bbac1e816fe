package service

import (
	"context"
	"fmt"
	"time"

	"trustmeet/internal/domain"
	"trustmeet/internal/models"

	"github.com/rs/zerolog"
)

// EarningForBooking is the creator revenue line of a completed booking.
func EarningForBooking(b *models.Booking) *models.Earning {
	return &models.Earning{
		CreatorID: b.CreatorID,
		ClientID:  b.ClientID,
		Source:    models.EarningBooking,
		Reference: fmt.Sprintf("booking:%d", b.ID),
		Amount:    b.TotalPrice,
	}
}

// EarningsService reads creator revenue. Earnings themselves are written by the
// store in the same transaction as the unlock or completion that produced them.
type EarningsService struct {
	earnings domain.EarningsRepository
	creators domain.CreatorRepository
	writer   domain.StatementWriter
	logger   *zerolog.Logger
}

func NewEarningsService(earnings domain.EarningsRepository, creators domain.CreatorRepository, writer domain.StatementWriter, logger *zerolog.Logger) *EarningsService {
	return &EarningsService{
		earnings: earnings,
		creators: creators,
		writer:   writer,
		logger:   logger,
	}
}

func (s *EarningsService) Stats(ctx context.Context, creatorID int64) (*models.CreatorStats, error) {
	return s.earnings.GetCreatorStats(ctx, creatorID)
}

// List returns earnings in [from, to); zero bounds are open.
func (s *EarningsService) List(ctx context.Context, creatorID int64, from, to time.Time) ([]*models.Earning, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, fmt.Errorf("empty period: %w", models.ErrInvalidRequest)
	}
	return s.earnings.ListEarnings(ctx, creatorID, from, to)
}

// ExportStatement writes the creator's earnings for the period to a spreadsheet
// and returns its path.
func (s *EarningsService) ExportStatement(ctx context.Context, creatorID int64, from, to time.Time) (string, error) {
	if s.writer == nil {
		return "", fmt.Errorf("statement export is not configured")
	}
	creator, err := s.creators.GetCreator(ctx, creatorID)
	if err != nil {
		return "", err
	}
	stats, err := s.Stats(ctx, creatorID)
	if err != nil {
		return "", err
	}
	earnings, err := s.List(ctx, creatorID, from, to)
	if err != nil {
		return "", err
	}

	path, err := s.writer.WriteStatement(creator, stats, earnings, from, to)
	if err != nil {
		return "", err
	}
	s.logger.Info().Int64("creator_id", creatorID).Int("lines", len(earnings)).Str("path", path).Msg("earnings statement exported")
	return path, nil
}

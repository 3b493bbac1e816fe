package service

import (
	"context"
	"fmt"

	"trustmeet/internal/domain"
	"trustmeet/internal/models"

	"github.com/rs/zerolog"
)

// CreatorService maintains creator profiles: unlock prices and meetup rates.
type CreatorService struct {
	creators domain.CreatorRepository
	logger   *zerolog.Logger
}

func NewCreatorService(creators domain.CreatorRepository, logger *zerolog.Logger) *CreatorService {
	return &CreatorService{creators: creators, logger: logger}
}

func (s *CreatorService) Save(ctx context.Context, c *models.Creator) error {
	if c.ID == 0 || c.DisplayName == "" {
		return fmt.Errorf("creator id and display name are required: %w", models.ErrInvalidRequest)
	}
	if c.PhotosPrice < 0 || c.ContactPrice < 0 {
		return models.ErrInvalidAmount
	}
	for location, byDuration := range c.Rates {
		if location != models.LocationIncall && location != models.LocationOutcall {
			return fmt.Errorf("location %q: %w", location, models.ErrUnsupportedLocationType)
		}
		for duration, price := range byDuration {
			switch duration {
			case models.DurationOneHour, models.DurationTwoHours, models.DurationOvernight:
			default:
				return fmt.Errorf("duration %q: %w", duration, models.ErrUnsupportedDuration)
			}
			if price < 0 {
				return models.ErrInvalidAmount
			}
		}
	}
	if err := s.creators.UpsertCreator(ctx, c); err != nil {
		return err
	}
	s.logger.Info().Int64("creator_id", c.ID).Msg("creator saved")
	return nil
}

func (s *CreatorService) Get(ctx context.Context, creatorID int64) (*models.Creator, error) {
	return s.creators.GetCreator(ctx, creatorID)
}

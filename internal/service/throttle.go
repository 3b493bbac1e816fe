package service

import (
	"context"
	"time"

	"trustmeet/internal/domain"

	"github.com/rs/zerolog"
)

// ThrottleService limits how many requests a client may make per window.
type ThrottleService struct {
	guard  domain.PurchaseGuard
	limit  int
	window time.Duration
	logger *zerolog.Logger
}

func NewThrottleService(guard domain.PurchaseGuard, limit int, window time.Duration, logger *zerolog.Logger) *ThrottleService {
	return &ThrottleService{
		guard:  guard,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Allow reports whether the client is still within its limit. Backend failures
// let the request through.
func (s *ThrottleService) Allow(ctx context.Context, clientID int64) bool {
	if s == nil || s.guard == nil || s.limit <= 0 {
		return true
	}
	allowed, err := s.guard.CheckRateLimit(ctx, clientID, s.limit, s.window)
	if err != nil {
		s.logger.Error().Err(err).Int64("client_id", clientID).Msg("failed to check rate limit")
		return true
	}
	if !allowed {
		s.logger.Warn().Int64("client_id", clientID).Msg("client rate limit exceeded")
	}
	return allowed
}

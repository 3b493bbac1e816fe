package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"trustmeet/internal/config"
	"trustmeet/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Services groups everything the HTTP API calls into.
type Services struct {
	Ledger   *service.LedgerService
	Unlocks  *service.UnlockService
	Bookings *service.BookingService
	Creators *service.CreatorService
	Earnings *service.EarningsService
	Throttle *service.ThrottleService
}

// HTTPServer exposes the JSON API.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	server  *http.Server
	auth    *HTTPAuth
	handler http.Handler
	// loc is the wall-clock location used for date query parameters.
	loc     *time.Location
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, loc *time.Location, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if loc == nil {
		loc = time.Local
	}
	srv := &HTTPServer{cfg: cfg, svc: svc, loc: loc, logger: logger}
	srv.auth = NewHTTPAuth(cfg)
	srv.handler = srv.routes()

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(s.logger))
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Wrap)

		r.Get("/tiers", s.handleListTiers)

		r.Post("/accounts", s.handleRegister)
		r.Route("/accounts/{clientID}", func(r chi.Router) {
			r.Get("/", s.handleGetAccount)
			r.Post("/tier", s.handleAssignTier)
			r.Post("/top-up", s.handleTopUp)
			r.Post("/debit", s.handleDebit)
			r.Get("/ledger", s.handleLedger)
			r.Get("/refund", s.handleRefund)
			r.Get("/unlocks", s.handleListUnlocks)
			r.Get("/unlocks/{creatorID}/{kind}", s.handleIsUnlocked)
			r.Get("/bookings", s.handleClientBookings)
		})

		r.Post("/unlocks", s.handlePurchaseUnlock)
		r.Post("/unlocks/bundle", s.handlePurchaseBundle)

		r.Route("/creators/{creatorID}", func(r chi.Router) {
			r.Put("/", s.handleSaveCreator)
			r.Get("/", s.handleGetCreator)
			r.Get("/bookings", s.handleCreatorBookings)
			r.Get("/earnings", s.handleEarnings)
			r.Get("/stats", s.handleStats)
			r.Post("/statement", s.handleStatement)
		})

		r.Post("/bookings", s.handleCreateBooking)
		r.Route("/bookings/{bookingID}", func(r chi.Router) {
			r.Get("/", s.handleGetBooking)
			r.Get("/codes", s.handleBookingCodes)
			r.Post("/confirm", s.handleConfirm)
			r.Post("/decline", s.handleDecline)
			r.Post("/cancel", s.handleCancel)
			r.Post("/complete", s.handleComplete)
			r.Post("/no-show", s.handleNoShow)
			r.Post("/reschedule", s.handleReschedule)
		})
	})

	return r
}

// Handler returns the fully wired router.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

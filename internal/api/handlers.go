package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trustmeet/internal/logging"
	"trustmeet/internal/models"
	"trustmeet/internal/tiers"

	"github.com/go-chi/chi/v5"
)

type registerRequest struct {
	ClientID int64 `json:"client_id"`
}

type tierRequest struct {
	TierID string `json:"tier_id"`
}

type amountRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// Unlock prices always come from the creator's stored profile; bodies carrying
// a price are rejected as unknown fields.
type unlockRequest struct {
	ClientID  int64  `json:"client_id"`
	CreatorID int64  `json:"creator_id"`
	Kind      string `json:"kind"`
}

type bundleRequest struct {
	ClientID  int64 `json:"client_id"`
	CreatorID int64 `json:"creator_id"`
}

type noteRequest struct {
	Reason string `json:"reason"`
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
	Note string `json:"note"`
}

type statementRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(r, dst)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context(), s.logger).Error().Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeJSON(w, status, map[string]string{"error": "internal server error", "code": errorCode(err)})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": errorCode(err)})
}

func (s *HTTPServer) throttled(w http.ResponseWriter, r *http.Request, clientID int64) bool {
	if s.svc.Throttle.Allow(r.Context(), clientID) {
		return false
	}
	writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests", "code": "rate_limited"})
	return true
}

func (s *HTTPServer) handleListTiers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tiers": tiers.All()})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := decodeJSON(r, &body); err != nil || body.ClientID <= 0 {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	acc, err := s.svc.Ledger.Register(r.Context(), body.ClientID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

func (s *HTTPServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	acc, err := s.svc.Ledger.GetAccount(r.Context(), clientID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":        acc,
		"trusted_member": s.svc.Ledger.IsTrustedMember(acc, time.Now()),
	})
}

func (s *HTTPServer) handleAssignTier(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var body tierRequest
	if err := decodeJSON(r, &body); err != nil || strings.TrimSpace(body.TierID) == "" {
		writeError(w, http.StatusBadRequest, "tier_id is required")
		return
	}
	acc, err := s.svc.Ledger.AssignTier(r.Context(), clientID, strings.TrimSpace(body.TierID))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *HTTPServer) handleTopUp(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var body amountRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	acc, err := s.svc.Ledger.TopUp(r.Context(), clientID, body.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *HTTPServer) handleDebit(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var body amountRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	acc, err := s.svc.Ledger.Debit(r.Context(), clientID, body.Amount, body.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *HTTPServer) handleLedger(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	entries, err := s.svc.Ledger.History(r.Context(), clientID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *HTTPServer) handleRefund(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	status, err := s.svc.Ledger.RefundEligibility(r.Context(), clientID, time.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *HTTPServer) handleListUnlocks(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	records, err := s.svc.Unlocks.ListUnlocks(r.Context(), clientID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if records == nil {
		records = []*models.UnlockRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"unlocks": records})
}

func (s *HTTPServer) handleIsUnlocked(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	creatorID, ok := pathID(r, "creatorID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid creator id")
		return
	}
	kind := chi.URLParam(r, "kind")
	unlocked, err := s.svc.Unlocks.IsUnlocked(r.Context(), clientID, creatorID, kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unlocked": unlocked})
}

func (s *HTTPServer) handleClientBookings(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	bookings, err := s.svc.Bookings.ListForClient(r.Context(), clientID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeBookings(w, bookings)
}

func writeBookings(w http.ResponseWriter, bookings []*models.Booking) {
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handlePurchaseUnlock(w http.ResponseWriter, r *http.Request) {
	var body unlockRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ClientID <= 0 || body.CreatorID <= 0 || body.Kind == "" {
		writeError(w, http.StatusBadRequest, "client_id, creator_id and kind are required")
		return
	}
	if s.throttled(w, r, body.ClientID) {
		return
	}

	record, err := s.svc.Unlocks.PurchaseAtCurrentPrice(r.Context(), body.ClientID, body.CreatorID, body.Kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *HTTPServer) handlePurchaseBundle(w http.ResponseWriter, r *http.Request) {
	var body bundleRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ClientID <= 0 || body.CreatorID <= 0 {
		writeError(w, http.StatusBadRequest, "client_id and creator_id are required")
		return
	}
	if s.throttled(w, r, body.ClientID) {
		return
	}

	records, err := s.svc.Unlocks.PurchaseBundleAtCurrentPrice(r.Context(), body.ClientID, body.CreatorID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"unlocks": records})
}

func (s *HTTPServer) handleSaveCreator(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := pathID(r, "creatorID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid creator id")
		return
	}
	var body models.Creator
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.ID = creatorID
	if err := s.svc.Creators.Save(r.Context(), &body); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &body)
}

func (s *HTTPServer) handleGetCreator(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := pathID(r, "creatorID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid creator id")
		return
	}
	creator, err := s.svc.Creators.Get(r.Context(), creatorID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creator)
}

func (s *HTTPServer) handleCreatorBookings(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := pathID(r, "creatorID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid creator id")
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	bookings, err := s.svc.Bookings.ListForCreator(r.Context(), creatorID, status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeBookings(w, bookings)
}

// parsePeriod reads YYYY-MM-DD bounds as days in loc; the upper bound is exclusive
// and covers the whole "to" day.
func parsePeriod(fromStr, toStr string, loc *time.Location) (from, to time.Time, ok bool) {
	if fromStr = strings.TrimSpace(fromStr); fromStr != "" {
		t, err := time.ParseInLocation(models.DateLayout, fromStr, loc)
		if err != nil {
			return from, to, false
		}
		from = t
	}
	if toStr = strings.TrimSpace(toStr); toStr != "" {
		t, err := time.ParseInLocation(models.DateLayout, toStr, loc)
		if err != nil {
			return from, to, false
		}
		to = t.AddDate(0, 0, 1)
	}
	return from, to, true
}

func (s *HTTPServer) handleEarnings(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := pathID(r, "creatorID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid creator id")
		return
	}
	from, to, ok := parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"), s.loc)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	earnings, err := s.svc.Earnings.List(r.Context(), creatorID, from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if earnings == nil {
		earnings = []*models.Earning{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"earnings": earnings})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := pathID(r, "creatorID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid creator id")
		return
	}
	stats, err := s.svc.Earnings.Stats(r.Context(), creatorID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleStatement(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := pathID(r, "creatorID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid creator id")
		return
	}
	var body statementRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	from, to, ok := parsePeriod(body.From, body.To, s.loc)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	path, err := s.svc.Earnings.ExportStatement(r.Context(), creatorID, from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body models.BookingRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ClientID <= 0 || body.CreatorID <= 0 {
		writeError(w, http.StatusBadRequest, "client_id and creator_id are required")
		return
	}
	if s.throttled(w, r, body.ClientID) {
		return
	}
	booking, err := s.svc.Bookings.Create(r.Context(), &body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hideCodes(booking))
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "bookingID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	booking, err := s.svc.Bookings.Get(r.Context(), bookingID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hideCodes(booking))
}

func (s *HTTPServer) handleBookingCodes(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "bookingID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	view, err := s.svc.Bookings.Codes(r.Context(), bookingID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "bookingID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	s.writeTransition(w, r)(s.svc.Bookings.Confirm(r.Context(), bookingID))
}

func (s *HTTPServer) handleDecline(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "bookingID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	var body noteRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.writeTransition(w, r)(s.svc.Bookings.Decline(r.Context(), bookingID, body.Reason))
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "bookingID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	var body noteRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.writeTransition(w, r)(s.svc.Bookings.Cancel(r.Context(), bookingID, body.Reason))
}

func (s *HTTPServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "bookingID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	s.writeTransition(w, r)(s.svc.Bookings.Complete(r.Context(), bookingID))
}

func (s *HTTPServer) handleNoShow(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "bookingID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	s.writeTransition(w, r)(s.svc.Bookings.MarkNoShow(r.Context(), bookingID))
}

func (s *HTTPServer) handleReschedule(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "bookingID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	var body rescheduleRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.writeTransition(w, r)(s.svc.Bookings.RequestReschedule(r.Context(), bookingID, body.Date, body.Time, body.Note))
}

func (s *HTTPServer) writeTransition(w http.ResponseWriter, r *http.Request) func(*models.Booking, error) {
	return func(booking *models.Booking, err error) {
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, hideCodes(booking))
	}
}

// hideCodes strips the verification codes; they are only served by /codes
// once the meetup time has been reached.
func hideCodes(b *models.Booking) *models.Booking {
	out := *b
	out.ClientCode = ""
	out.CreatorCode = ""
	return &out
}

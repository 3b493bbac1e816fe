package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventBookingCreated     = "booking_created"
	EventBookingConfirmed   = "booking_confirmed"
	EventBookingDeclined    = "booking_declined"
	EventBookingCancelled   = "booking_cancelled"
	EventBookingCompleted   = "booking_completed"
	EventBookingNoShow      = "booking_no_show"
	EventBookingRescheduled = "booking_rescheduled"
	EventUnlockPurchased    = "unlock_purchased"
	EventTierAssigned       = "tier_assigned"
)

// AllTypes lists every event type the services publish.
var AllTypes = []string{
	EventBookingCreated,
	EventBookingConfirmed,
	EventBookingDeclined,
	EventBookingCancelled,
	EventBookingCompleted,
	EventBookingNoShow,
	EventBookingRescheduled,
	EventUnlockPurchased,
	EventTierAssigned,
}

// BookingEventPayload describes the minimal booking snapshot for event consumers.
// Verification codes are never included.
type BookingEventPayload struct {
	BookingID     int64  `json:"booking_id"`
	ClientID      int64  `json:"client_id"`
	CreatorID     int64  `json:"creator_id"`
	Status        string `json:"status"`
	ScheduledDate string `json:"scheduled_date"`
	ScheduledTime string `json:"scheduled_time"`
	TotalPrice    int64  `json:"total_price"`
	Note          string `json:"note,omitempty"`
}

type UnlockEventPayload struct {
	ClientID  int64    `json:"client_id"`
	CreatorID int64    `json:"creator_id"`
	Kinds     []string `json:"kinds"`
	Amount    int64    `json:"amount"`
	Bundle    bool     `json:"bundle"`
}

type TierEventPayload struct {
	ClientID       int64  `json:"client_id"`
	PreviousTier   string `json:"previous_tier,omitempty"`
	Tier           string `json:"tier"`
	DepositBalance int64  `json:"deposit_balance"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	seq         int64
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. logger may be nil.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.Lock()
	b.seq++
	event.ID = b.seq
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Int64("event_id", event.ID).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

// LogHandler writes every event it receives to logger as an audit line.
func LogHandler(logger *zerolog.Logger) EventHandler {
	return func(event *Event) error {
		logger.Info().
			Str("event", event.Type).
			Int64("event_id", event.ID).
			RawJSON("payload", event.Payload).
			Msg("domain event")
		return nil
	}
}

// SubscribeAll registers handler for every known event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, t := range AllTypes {
		b.Subscribe(t, handler)
	}
}

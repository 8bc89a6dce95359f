// Package broker owns the subscriber registry and fans accepted alerts out
// to matching live subscriptions. Subscriptions are process-local, in-memory
// state: created on subscribe, destroyed on disconnect, never persisted.
package broker

import (
	"log/slog"
	"sync"

	"github.com/hazardwatch/alert-engine/internal/domain"
)

// EventType distinguishes the two push frames on the fan-out channel.
type EventType string

const (
	EventNewAlert     EventType = "new-alert"
	EventAlertUpdated EventType = "alert-updated"
)

// Event is one pushed message: a new or updated alert.
type Event struct {
	Type  EventType    `json:"type"`
	Alert domain.Alert `json:"alert"`
}

// Subscription is an ephemeral per-connection registration. The broker owns
// it exclusively; transports only read from C.
type Subscription struct {
	ConnID string

	// hazardTypes filters delivery; empty means all hazard types.
	hazardTypes map[domain.HazardType]struct{}
	// geoCell, when set, restricts delivery to alerts inside the cell.
	geoCell *domain.GeoCell

	// C carries pushed events. Closed exactly once on unsubscribe.
	C chan Event
}

// matches reports whether an alert passes the subscription's filters.
func (s *Subscription) matches(alert domain.Alert) bool {
	if len(s.hazardTypes) > 0 {
		if _, ok := s.hazardTypes[alert.HazardType]; !ok {
			return false
		}
	}
	if s.geoCell != nil && !s.geoCell.Contains(alert.Location) {
		return false
	}
	return true
}

// Broker is the fan-out hub. Delivery is fire-and-forget: a subscriber whose
// buffer is full misses the event; there is no acknowledgement or retry, and
// a disconnected client simply misses alerts.
type Broker struct {
	logger  *slog.Logger
	bufSize int

	mu   sync.RWMutex
	subs map[string]*Subscription

	onCountChange func(int) // optional gauge hook
}

// Option configures a Broker.
type Option func(*Broker)

// WithBufferSize sets the per-subscription channel buffer (default 16).
func WithBufferSize(n int) Option {
	return func(b *Broker) { b.bufSize = n }
}

// WithSubscriptionGauge installs a hook called with the live subscription
// count after every subscribe/unsubscribe.
func WithSubscriptionGauge(fn func(int)) Option {
	return func(b *Broker) { b.onCountChange = fn }
}

// New creates an empty Broker.
func New(logger *slog.Logger, opts ...Option) *Broker {
	b := &Broker{
		logger:  logger,
		bufSize: 16,
		subs:    map[string]*Subscription{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a connection with the given filters. Subscribing again
// with the same connection id replaces the previous registration (the old
// channel is closed), which is how transports implement re-subscribe.
func (b *Broker) Subscribe(connID string, hazardTypes []domain.HazardType, cell *domain.GeoCell) *Subscription {
	sub := &Subscription{
		ConnID:  connID,
		geoCell: cell,
		C:       make(chan Event, b.bufSize),
	}
	if len(hazardTypes) > 0 {
		sub.hazardTypes = make(map[domain.HazardType]struct{}, len(hazardTypes))
		for _, h := range hazardTypes {
			sub.hazardTypes[h] = struct{}{}
		}
	}

	b.mu.Lock()
	// Closing under the lock keeps push (which sends under RLock) from ever
	// writing to a closed channel.
	if old := b.subs[connID]; old != nil {
		close(old.C)
	}
	b.subs[connID] = sub
	count := len(b.subs)
	b.mu.Unlock()

	b.notifyCount(count)
	b.logger.Debug("subscriber registered", "conn_id", connID, "hazard_types", hazardTypes, "geo_cell", cell)
	return sub
}

// Unsubscribe removes a connection's registration. Idempotent: unknown ids
// are a no-op, and the subscription channel is closed exactly once.
func (b *Broker) Unsubscribe(connID string) {
	b.mu.Lock()
	sub, ok := b.subs[connID]
	if ok {
		delete(b.subs, connID)
		close(sub.C)
	}
	count := len(b.subs)
	b.mu.Unlock()

	if !ok {
		return
	}
	b.notifyCount(count)
	b.logger.Debug("subscriber removed", "conn_id", connID)
}

// Publish pushes a newly accepted alert to every matching subscription.
// Returns the number of deliveries attempted.
func (b *Broker) Publish(alert domain.Alert) int {
	return b.push(Event{Type: EventNewAlert, Alert: alert})
}

// PublishUpdate pushes a status change of an existing alert.
func (b *Broker) PublishUpdate(alert domain.Alert) int {
	return b.push(Event{Type: EventAlertUpdated, Alert: alert})
}

func (b *Broker) push(event Event) int {
	// Sends happen under the read lock; channels are only closed under the
	// write lock, so a send never races a close. The sends are non-blocking,
	// so holding the lock is cheap.
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs {
		if !sub.matches(event.Alert) {
			continue
		}
		select {
		case sub.C <- event:
			delivered++
		default:
			// Slow consumer; drop rather than block the pipeline.
			b.logger.Warn("subscriber buffer full, dropping event",
				"conn_id", sub.ConnID, "alert_id", event.Alert.ID)
		}
	}
	return delivered
}

// Count returns the number of live subscriptions.
func (b *Broker) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) notifyCount(n int) {
	if b.onCountChange != nil {
		b.onCountChange(n)
	}
}

package hub

import (
	"sync/atomic"
	"time"
)

// Metrics tracks hub statistics using atomic operations for thread-safety
type Metrics struct {
	EventsPublished  atomic.Int64
	EventsSent       atomic.Int64
	EventsDropped    atomic.Int64
	JoinsDenied      atomic.Int64
	ClientsEvicted   atomic.Int64
	RelayFallbacks   atomic.Int64
	ConnectedClients atomic.Int32
	Rooms            atomic.Int32
	StartTime        time.Time
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime: time.Now(),
	}
}

// IncEventsPublished counts an event accepted for fan-out
func (m *Metrics) IncEventsPublished() { m.EventsPublished.Add(1) }

// IncEventsSent counts one event queued to one subscriber
func (m *Metrics) IncEventsSent() { m.EventsSent.Add(1) }

// IncEventsDropped counts an event that could not be queued
func (m *Metrics) IncEventsDropped() { m.EventsDropped.Add(1) }

// IncJoinsDenied counts a join rejected for lack of membership
func (m *Metrics) IncJoinsDenied() { m.JoinsDenied.Add(1) }

// IncClientsEvicted counts a subscriber removed from a room it may no longer see
func (m *Metrics) IncClientsEvicted() { m.ClientsEvicted.Add(1) }

// IncRelayFallbacks counts an event delivered locally because the relay failed
func (m *Metrics) IncRelayFallbacks() { m.RelayFallbacks.Add(1) }

// SetConnectedClients sets the current connected clients count
func (m *Metrics) SetConnectedClients(count int32) { m.ConnectedClients.Store(count) }

// SetRooms sets the number of boards with at least one subscriber
func (m *Metrics) SetRooms(count int32) { m.Rooms.Store(count) }

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	EventsPublished  int64     `json:"events_published"`
	EventsSent       int64     `json:"events_sent"`
	EventsDropped    int64     `json:"events_dropped"`
	JoinsDenied      int64     `json:"joins_denied"`
	ClientsEvicted   int64     `json:"clients_evicted"`
	RelayFallbacks   int64     `json:"relay_fallbacks"`
	ConnectedClients int32     `json:"connected_clients"`
	Rooms            int32     `json:"rooms"`
	StartTime        time.Time `json:"start_time"`
	Uptime           string    `json:"uptime"`
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		EventsPublished:  m.EventsPublished.Load(),
		EventsSent:       m.EventsSent.Load(),
		EventsDropped:    m.EventsDropped.Load(),
		JoinsDenied:      m.JoinsDenied.Load(),
		ClientsEvicted:   m.ClientsEvicted.Load(),
		RelayFallbacks:   m.RelayFallbacks.Load(),
		ConnectedClients: m.ConnectedClients.Load(),
		Rooms:            m.Rooms.Load(),
		StartTime:        m.StartTime,
		Uptime:           time.Since(m.StartTime).String(),
	}
}

package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/raaihank/fairhire/internal/redact"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeAnonymization is sent after a document was anonymized
	EventTypeAnonymization EventType = "anonymization"
	// EventTypeCompatibility is sent after a compatibility score
	EventTypeCompatibility EventType = "compatibility"
	// EventTypeRequestLog represents a request logging event
	EventTypeRequestLog EventType = "request_log"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// AnonymizationEvent carries counts only, never document text
type AnonymizationEvent struct {
	RequestID    string           `json:"request_id"`
	Format       string           `json:"format"`
	Pages        int              `json:"pages"`
	Findings     []redact.Finding `json:"findings"`
	TotalMasked  int              `json:"total_masked"`
	ClippedLines int              `json:"clipped_lines"`
	Artifact     string           `json:"artifact,omitempty"`
	ProcessingMS float64          `json:"processing_ms"`
}

// CompatibilityEvent represents one scored job
type CompatibilityEvent struct {
	RequestID    string  `json:"request_id"`
	Title        string  `json:"title,omitempty"`
	Similarity   float64 `json:"similarity"`
	Display      float64 `json:"display"`
	Band         string  `json:"band"`
	ProcessingMS float64 `json:"processing_ms"`
}

// RequestLogEvent represents a request logging event
type RequestLogEvent struct {
	RequestID    string        `json:"request_id"`
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	StatusCode   int           `json:"status_code"`
	ClientIP     string        `json:"client_ip"`
	UserAgent    string        `json:"user_agent,omitempty"`
	Duration     time.Duration `json:"duration"`
	RequestSize  int64         `json:"request_size"`
	ResponseSize int64         `json:"response_size"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type   string      `json:"type"`
	Events []EventType `json:"events,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string
	UserAgent   string

	// subscription is nil until the client subscribes; nil means all events
	subscription map[EventType]bool
}

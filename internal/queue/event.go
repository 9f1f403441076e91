// Package queue defines message payloads exchanged over the message broker.
package queue

// AuthEventsQueue is the durable queue carrying authentication audit events.
const AuthEventsQueue = "auth.events"

// Event types published by the session protocol.
const (
	// EventUserRegistered marks a successful account creation.
	EventUserRegistered = "user.registered"
	// EventTokenRejected marks a refresh attempt with a token the store does
	// not hold — never issued, already rotated out, or revoked. Clients see
	// an undifferentiated 401; this event is the server-side trail for spot
	// checking possible token theft.
	EventTokenRejected = "token.rejected"
)

// AuthEvent is the envelope for all auth audit events. UserID and Email are
// zero-valued when the subject is unknown (a rejected token maps to no user).
type AuthEvent struct {
	Type      string `json:"type"`
	UserID    uint64 `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	At        string `json:"at"`
}

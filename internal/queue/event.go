// Package queue defines the audit events exchanged over the message broker
// and the consumer that records them.
package queue

import "time"

// AuthEventsQueue is the durable queue carrying AuthEvent messages.
const AuthEventsQueue = "auth.events"

// AuthEventType names what happened to an account or session.
type AuthEventType string

const (
	EventRegistered      AuthEventType = "registered"
	EventLogin           AuthEventType = "login"
	EventLoginFailed     AuthEventType = "login_failed"
	EventRefreshed       AuthEventType = "refreshed"
	EventRefreshRejected AuthEventType = "refresh_rejected"
	EventLogout          AuthEventType = "logout"
	EventSessionsRevoked AuthEventType = "sessions_revoked"
	EventUserBlocked     AuthEventType = "user_blocked"
	EventUserUnblocked   AuthEventType = "user_unblocked"
	EventRoleChanged     AuthEventType = "role_changed"
)

// AuthEvent is published for every security-relevant state change. It
// never carries passwords or token values.
type AuthEvent struct {
	Type       AuthEventType `json:"type"`
	UserID     uint64        `json:"user_id,omitempty"`
	Email      string        `json:"email,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Role       string        `json:"role,omitempty"`
	Sessions   int64         `json:"sessions,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

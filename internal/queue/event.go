// Package queue defines the audit events exchanged over the message broker.
package queue

// AuthEvent is published on registrations, logins and logouts. It carries
// enough for downstream consumers to build an audit trail without
// querying the primary database. Token strings never ride on the bus.
type AuthEvent struct {
    Type     string `json:"type"` // user.registered | session.login | session.logout
    Username string `json:"username"`
    UserID   uint64 `json:"user_id"`
    At       string `json:"at"` // RFC3339, UTC
}

// Package events publishes security events (registrations, logins, token
// invalidations) to Kafka for downstream audit consumers. Publishing is
// best-effort: a broker failure is logged and never fails the request that
// produced the event.
package events

import (
	"context"
	"time"
)

type Type string

const (
	TypeUserRegistered  Type = "user.registered"
	TypeUserVerified    Type = "user.verified"
	TypeUserLoggedIn    Type = "user.logged_in"
	TypeUserLoggedOut   Type = "user.logged_out"
	TypePasswordChanged Type = "user.password_changed"
	TypeAccountDeleted  Type = "user.account_deleted"
	TypeIdentityLinked  Type = "user.identity_linked"
)

type Event struct {
	ID     string    `json:"id"`
	Type   Type      `json:"type"`
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop is used when the event stream is disabled by configuration.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

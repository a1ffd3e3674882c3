package domain

import (
	"time"

	"github.com/google/uuid"
)

// LinkCreated is published once a new link has been committed.
type LinkCreated struct {
	EventID    string    `json:"event_id"`
	LinkID     int64     `json:"link_id"`
	ShortCode  string    `json:"short_code"`
	Domain     string    `json:"domain,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewLinkCreated builds the creation event for a committed link.
func NewLinkCreated(link *Link, now time.Time) LinkCreated {
	return LinkCreated{
		EventID:    uuid.New().String(),
		LinkID:     link.ID,
		ShortCode:  link.ShortCode,
		Domain:     link.DomainAuthority(),
		OccurredAt: now,
	}
}

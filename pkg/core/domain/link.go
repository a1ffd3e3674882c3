package domain

import "time"

// Link represents a shortened URL bound to a short code within a domain scope
type Link struct {
	ID                   int64      `json:"id" yaml:"id"`
	ShortCode            string     `json:"short_code" yaml:"short_code"`
	OriginalURL          string     `json:"original_url" yaml:"original_url"`
	Domain               *Domain    `json:"domain,omitempty" yaml:"domain,omitempty"` // nil means the default scope
	Title                string     `json:"title,omitempty" yaml:"title,omitempty"`
	TitleWasAutoResolved bool       `json:"title_was_auto_resolved,omitempty" yaml:"title_was_auto_resolved,omitempty"`
	ValidSince           *time.Time `json:"valid_since,omitempty" yaml:"valid_since,omitempty"`
	ValidUntil           *time.Time `json:"valid_until,omitempty" yaml:"valid_until,omitempty"`
	MaxVisits            *int       `json:"max_visits,omitempty" yaml:"max_visits,omitempty"`
	Tags                 []Tag      `json:"tags" yaml:"tags"`
	CreatedAt            time.Time  `json:"created_at" yaml:"created_at"`
	DeletedAt            *time.Time `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
}

// NewLink builds the in-memory skeleton of a link from a request and its
// resolved relations. The short code is the custom slug when one was
// supplied; otherwise it stays empty until an allocator assigns it.
func NewLink(meta LinkMeta, d *Domain, tags []Tag, now time.Time) *Link {
	link := &Link{
		ShortCode:            meta.CustomSlug,
		OriginalURL:          meta.LongURL,
		Domain:               d,
		Title:                meta.Title,
		TitleWasAutoResolved: meta.TitleWasAutoResolved,
		ValidSince:           copyTime(meta.ValidSince),
		ValidUntil:           copyTime(meta.ValidUntil),
		Tags:                 append(make([]Tag, 0, len(tags)), tags...),
		CreatedAt:            now.UTC().Truncate(time.Second),
	}
	if meta.MaxVisits != nil {
		v := *meta.MaxVisits
		link.MaxVisits = &v
	}
	return link
}

// DomainAuthority returns the authority of the link's domain, or "" for the default scope.
func (l *Link) DomainAuthority() string {
	if l.Domain == nil {
		return ""
	}
	return l.Domain.Authority
}

// DomainID returns the domain's ID, or nil for the default scope.
func (l *Link) DomainID() *int64 {
	if l.Domain == nil {
		return nil
	}
	id := l.Domain.ID
	return &id
}

// TagNames returns the names of the tags attached to the link.
func (l *Link) TagNames() []string {
	names := make([]string, 0, len(l.Tags))
	for _, t := range l.Tags {
		names = append(names, t.Name)
	}
	return names
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

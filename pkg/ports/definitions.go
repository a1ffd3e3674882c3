package ports

import (
	"context"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
)

// LinkRepository defines storage operations for links
type LinkRepository interface {
	// FindOneMatching returns a non-deleted link equivalent to meta (same long
	// URL, domain, validity window, max visits and tag set), or nil.
	FindOneMatching(ctx context.Context, meta domain.LinkMeta) (*domain.Link, error)
	// ShortCodeExists reports whether a non-deleted link uses code in the domain scope.
	ShortCodeExists(ctx context.Context, code string, d *domain.Domain) (bool, error)
	// Save inserts the link and its tag associations. It must run inside a
	// transaction and returns domain.ErrShortCodeTaken on a uniqueness violation,
	// leaving the transaction usable.
	Save(ctx context.Context, link *domain.Link) error
	GetByShortCode(ctx context.Context, code, authority string) (*domain.Link, error)
	GetByID(ctx context.Context, id int64) (*domain.Link, error)
	Dump(ctx context.Context) ([]domain.Link, error) // For migration
}

// DomainRepository defines storage operations for custom domains
type DomainRepository interface {
	FindDomainByAuthority(ctx context.Context, authority string) (*domain.Domain, error)
	CreateDomain(ctx context.Context, d *domain.Domain) error
}

// TagRepository defines storage operations for tags
type TagRepository interface {
	FindTagByName(ctx context.Context, name string) (*domain.Tag, error)
	CreateTag(ctx context.Context, tag *domain.Tag) error
}

// Repository groups every repository reachable inside a transaction.
type Repository interface {
	LinkRepository
	DomainRepository
	TagRepository
}

// Store is the persistent source of truth.
type Store interface {
	Repository

	// WithTx executes fn within a database transaction. If fn returns an
	// error or panics, the transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Repository) error) error

	Close() error
}

// RelationResolver turns the domain and tag references of a request into
// entities, creating them as needed through the given transaction.
type RelationResolver interface {
	Resolve(ctx context.Context, tx Repository, meta domain.LinkMeta) (*domain.Domain, []domain.Tag, error)
}

// TitleResolver validates the destination and fills in the title.
type TitleResolver interface {
	Process(ctx context.Context, meta domain.LinkMeta) (domain.LinkMeta, error)
}

// ShortCodeAllocator assigns or validates the link's short code and reserves
// it in the store, guaranteeing uniqueness within the link's domain.
type ShortCodeAllocator interface {
	Allocate(ctx context.Context, links LinkRepository, link *domain.Link, meta domain.LinkMeta) error
}

// EventDispatcher publishes notifications about committed changes.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.LinkCreated) error
}

// LinkService defines the business logic operations
type LinkService interface {
	Shorten(ctx context.Context, meta domain.LinkMeta) (*domain.Link, error)
}

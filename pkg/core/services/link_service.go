package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/logger"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
)

// LinkServiceDeps holds the collaborators of a LinkService.
type LinkServiceDeps struct {
	Store         ports.Store
	Titles        ports.TitleResolver
	Relations     ports.RelationResolver
	Allocator     ports.ShortCodeAllocator
	Events        ports.EventDispatcher
	Logger        *slog.Logger
	DefaultDomain string
	Now           func() time.Time
}

type LinkService struct {
	store         ports.Store
	titles        ports.TitleResolver
	relations     ports.RelationResolver
	allocator     ports.ShortCodeAllocator
	events        ports.EventDispatcher
	logger        *slog.Logger
	defaultDomain string
	now           func() time.Time
}

func NewLinkService(deps LinkServiceDeps) *LinkService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Events == nil {
		deps.Events = noopDispatcher{}
	}
	return &LinkService{
		store:         deps.Store,
		titles:        deps.Titles,
		relations:     deps.Relations,
		allocator:     deps.Allocator,
		events:        deps.Events,
		logger:        deps.Logger,
		defaultDomain: strings.ToLower(strings.TrimSpace(deps.DefaultDomain)),
		now:           deps.Now,
	}
}

// Shorten creates a link for meta, or returns an equivalent existing one
// when meta.FindIfExists is set. The creation event is dispatched only
// after the link has been committed.
func (s *LinkService) Shorten(ctx context.Context, meta domain.LinkMeta) (*domain.Link, error) {
	log := logger.WithContext(ctx, s.logger)

	if meta.Domain == s.defaultDomain {
		meta.Domain = ""
	}

	if meta.FindIfExists {
		existing, err := s.store.FindOneMatching(ctx, meta)
		if err != nil {
			return nil, fmt.Errorf("looking up existing link: %w", err)
		}
		if existing != nil {
			log.Debug("returning existing link", "link_id", existing.ID, "short_code", existing.ShortCode)
			return existing, nil
		}
	}

	meta, err := s.titles.Process(ctx, meta)
	if err != nil {
		var invalid *domain.InvalidDestinationError
		if !errors.As(err, &invalid) {
			err = &domain.InvalidDestinationError{URL: meta.LongURL, Reason: "rejected", Err: err}
		}
		return nil, err
	}

	var link *domain.Link
	err = s.store.WithTx(ctx, func(tx ports.Repository) error {
		d, tags, err := s.relations.Resolve(ctx, tx, meta)
		if err != nil {
			return err
		}
		link = domain.NewLink(meta, d, tags, s.now())
		return s.allocator.Allocate(ctx, tx, link, meta)
	})
	if err != nil {
		return nil, err
	}

	log.Info("link created",
		"link_id", link.ID,
		"short_code", link.ShortCode,
		"domain", link.DomainAuthority(),
	)

	event := domain.NewLinkCreated(link, s.now())
	if err := s.events.Dispatch(context.WithoutCancel(ctx), event); err != nil {
		log.Warn("failed to dispatch link created event", "link_id", link.ID, "error", err)
	}

	return link, nil
}

// noopDispatcher drops events when no dispatcher is configured.
type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, domain.LinkCreated) error { return nil }

var _ ports.LinkService = (*LinkService)(nil)

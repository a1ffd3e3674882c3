package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/shortcode"
	"github.com/wadjakorntonsri/go-shortlink/pkg/logger"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
)

// AllocatorOptions configures a ShortCodeAllocator.
type AllocatorOptions struct {
	Policy        shortcode.Policy
	DefaultLength int
	MaxAttempts   int
	// Generate overrides the random code source. Used by tests.
	Generate func(length int) (string, error)
}

// ShortCodeAllocator reserves short codes through the store's unique insert.
type ShortCodeAllocator struct {
	policy        shortcode.Policy
	defaultLength int
	maxAttempts   int
	generate      func(length int) (string, error)
	logger        *slog.Logger
}

func NewShortCodeAllocator(opts AllocatorOptions, log *slog.Logger) *ShortCodeAllocator {
	if log == nil {
		log = slog.Default()
	}
	if opts.Policy == (shortcode.Policy{}) {
		opts.Policy = shortcode.DefaultPolicy()
	}
	if opts.DefaultLength < domain.MinShortCodeLength {
		opts.DefaultLength = 5
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 10
	}
	if opts.Generate == nil {
		opts.Generate = shortcode.Generate
	}
	return &ShortCodeAllocator{
		policy:        opts.Policy,
		defaultLength: opts.DefaultLength,
		maxAttempts:   opts.MaxAttempts,
		generate:      opts.Generate,
		logger:        log,
	}
}

// Allocate assigns link its short code and persists it with links.Save.
// links must be scoped to the caller's transaction.
func (a *ShortCodeAllocator) Allocate(ctx context.Context, links ports.LinkRepository, link *domain.Link, meta domain.LinkMeta) error {
	if meta.HasCustomSlug() {
		return a.reserveSlug(ctx, links, link, meta.CustomSlug)
	}
	return a.reserveGenerated(ctx, links, link, meta.ShortCodeLength)
}

func (a *ShortCodeAllocator) reserveSlug(ctx context.Context, links ports.LinkRepository, link *domain.Link, slug string) error {
	if reason := a.policy.Validate(slug); reason != "" {
		return &domain.ValidationError{Field: "customSlug", Reason: reason}
	}

	taken, err := links.ShortCodeExists(ctx, slug, link.Domain)
	if err != nil {
		return fmt.Errorf("checking slug: %w", err)
	}
	if taken {
		return &domain.NonUniqueSlugError{Slug: slug, DomainAuthority: link.DomainAuthority()}
	}

	link.ShortCode = slug
	if err := links.Save(ctx, link); err != nil {
		if errors.Is(err, domain.ErrShortCodeTaken) {
			return &domain.NonUniqueSlugError{Slug: slug, DomainAuthority: link.DomainAuthority()}
		}
		return err
	}
	return nil
}

func (a *ShortCodeAllocator) reserveGenerated(ctx context.Context, links ports.LinkRepository, link *domain.Link, length int) error {
	if length == 0 {
		length = a.defaultLength
	}
	log := logger.WithContext(ctx, a.logger)

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		code, err := a.generate(length)
		if err != nil {
			return fmt.Errorf("generating short code: %w", err)
		}

		link.ShortCode = code
		err = links.Save(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrShortCodeTaken) {
			return err
		}
		log.Debug("short code collision, retrying",
			"short_code", code,
			"domain", link.DomainAuthority(),
			"attempt", attempt,
		)
	}

	link.ShortCode = ""
	exhausted := &domain.AllocationExhaustedError{Attempts: a.maxAttempts, DomainAuthority: link.DomainAuthority()}
	log.Error("short code allocation exhausted",
		"domain", link.DomainAuthority(),
		"attempts", a.maxAttempts,
		"length", length,
	)
	return exhausted
}

var _ ports.ShortCodeAllocator = (*ShortCodeAllocator)(nil)

package services

import (
	"context"
	"strings"

	"golang.org/x/net/idna"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
)

const maxTagLength = 255

// RelationResolver finds or creates the domain and tags a request refers to.
type RelationResolver struct {
	defaultDomain string
}

// NewRelationResolver returns a resolver that maps defaultDomain to the
// default scope.
func NewRelationResolver(defaultDomain string) *RelationResolver {
	return &RelationResolver{defaultDomain: strings.ToLower(strings.TrimSpace(defaultDomain))}
}

func (r *RelationResolver) Resolve(ctx context.Context, tx ports.Repository, meta domain.LinkMeta) (*domain.Domain, []domain.Tag, error) {
	d, err := r.resolveDomain(ctx, tx, meta.Domain)
	if err != nil {
		return nil, nil, err
	}

	tags := make([]domain.Tag, 0, len(meta.Tags))
	for _, name := range meta.Tags {
		tag, err := r.resolveTag(ctx, tx, name)
		if err != nil {
			return nil, nil, err
		}
		tags = append(tags, *tag)
	}
	return d, tags, nil
}

func (r *RelationResolver) resolveDomain(ctx context.Context, tx ports.DomainRepository, authority string) (*domain.Domain, error) {
	authority = strings.ToLower(strings.TrimSpace(authority))
	if authority == "" || authority == r.defaultDomain {
		return nil, nil
	}

	host := authority
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	if _, err := idna.Lookup.ToASCII(host); err != nil || strings.ContainsAny(authority, "/?#@ ") {
		return nil, &domain.ResolutionError{Kind: "domain", Value: authority, Err: err}
	}

	existing, err := tx.FindDomainByAuthority(ctx, authority)
	if err != nil {
		return nil, &domain.ResolutionError{Kind: "domain", Value: authority, Err: err}
	}
	if existing != nil {
		return existing, nil
	}

	d := &domain.Domain{Authority: authority}
	if err := tx.CreateDomain(ctx, d); err != nil {
		return nil, &domain.ResolutionError{Kind: "domain", Value: authority, Err: err}
	}
	return d, nil
}

func (r *RelationResolver) resolveTag(ctx context.Context, tx ports.TagRepository, name string) (*domain.Tag, error) {
	if name == "" || len(name) > maxTagLength {
		return nil, &domain.ResolutionError{Kind: "tag", Value: name}
	}

	existing, err := tx.FindTagByName(ctx, name)
	if err != nil {
		return nil, &domain.ResolutionError{Kind: "tag", Value: name, Err: err}
	}
	if existing != nil {
		return existing, nil
	}

	tag := &domain.Tag{Name: name}
	if err := tx.CreateTag(ctx, tag); err != nil {
		return nil, &domain.ResolutionError{Kind: "tag", Value: name, Err: err}
	}
	return tag, nil
}

var _ ports.RelationResolver = (*RelationResolver)(nil)

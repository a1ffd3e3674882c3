package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/shortcode"
	"github.com/wadjakorntonsri/go-shortlink/pkg/logger"
)

func newLink(meta domain.LinkMeta, d *domain.Domain) *domain.Link {
	return domain.NewLink(meta, d, nil, time.Now())
}

func TestAllocateGeneratedRetriesOnCollision(t *testing.T) {
	store := newFakeStore()
	store.links[fakeKey("", "taken")] = &domain.Link{ShortCode: "taken"}

	a := NewShortCodeAllocator(AllocatorOptions{
		MaxAttempts: 5,
		Generate:    scriptedCodes("taken", "taken", "fresh"),
	}, logger.Discard())

	meta := domain.LinkMeta{LongURL: "https://example.com"}
	link := newLink(meta, nil)
	if err := a.Allocate(context.Background(), store, link, meta); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if link.ShortCode != "fresh" {
		t.Errorf("ShortCode = %q, want fresh", link.ShortCode)
	}
	if store.saves != 3 {
		t.Errorf("expected 3 save attempts, got %d", store.saves)
	}
}

func TestAllocateGeneratedExhausted(t *testing.T) {
	store := newFakeStore()
	store.links[fakeKey("s.test", "taken")] = &domain.Link{ShortCode: "taken"}

	a := NewShortCodeAllocator(AllocatorOptions{
		MaxAttempts: 3,
		Generate:    scriptedCodes("taken"),
	}, logger.Discard())

	meta := domain.LinkMeta{LongURL: "https://example.com"}
	link := newLink(meta, &domain.Domain{ID: 1, Authority: "s.test"})
	err := a.Allocate(context.Background(), store, link, meta)

	var exhausted *domain.AllocationExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected AllocationExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 || exhausted.DomainAuthority != "s.test" {
		t.Errorf("unexpected error fields: %+v", exhausted)
	}
	if store.saves != 3 {
		t.Errorf("expected 3 save attempts, got %d", store.saves)
	}
}

func TestAllocateGeneratedUsesRequestedLength(t *testing.T) {
	var lengths []int
	a := NewShortCodeAllocator(AllocatorOptions{
		DefaultLength: 6,
		Generate: func(length int) (string, error) {
			lengths = append(lengths, length)
			return shortcode.Generate(length)
		},
	}, logger.Discard())

	store := newFakeStore()
	for _, requested := range []int{0, 9} {
		meta := domain.LinkMeta{LongURL: "https://example.com", ShortCodeLength: requested}
		if err := a.Allocate(context.Background(), store, newLink(meta, nil), meta); err != nil {
			t.Fatal(err)
		}
	}
	if len(lengths) != 2 || lengths[0] != 6 || lengths[1] != 9 {
		t.Errorf("unexpected lengths %v", lengths)
	}
}

func TestAllocateGeneratedPropagatesStoreErrors(t *testing.T) {
	store := newFakeStore()
	boom := errors.New("disk full")
	store.saveErr = boom

	a := NewShortCodeAllocator(AllocatorOptions{MaxAttempts: 5}, logger.Discard())
	meta := domain.LinkMeta{LongURL: "https://example.com"}
	err := a.Allocate(context.Background(), store, newLink(meta, nil), meta)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if store.saves != 1 {
		t.Errorf("non-collision errors must not be retried, got %d saves", store.saves)
	}
}

func TestAllocateCustomSlug(t *testing.T) {
	tests := []struct {
		name      string
		slug      string
		probeHit  bool
		saveErr   error
		wantErr   any
		wantSaves int
	}{
		{name: "Free slug", slug: "abc", wantSaves: 1},
		{name: "Taken at probe", slug: "abc", probeHit: true, wantErr: &domain.NonUniqueSlugError{}, wantSaves: 0},
		{name: "Taken at save", slug: "abc", saveErr: domain.ErrShortCodeTaken, wantErr: &domain.NonUniqueSlugError{}, wantSaves: 1},
		{name: "Invalid characters", slug: "a/b", wantErr: &domain.ValidationError{}, wantSaves: 0},
		{name: "Too long", slug: "abcdefghijk", wantErr: &domain.ValidationError{}, wantSaves: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.probeHit = tt.probeHit
			store.saveErr = tt.saveErr

			a := NewShortCodeAllocator(AllocatorOptions{
				Policy:   shortcode.Policy{MinLength: 1, MaxLength: 10},
				Generate: scriptedCodes("generated"),
			}, logger.Discard())

			meta := domain.LinkMeta{LongURL: "https://example.com", CustomSlug: tt.slug}
			link := newLink(meta, &domain.Domain{ID: 7, Authority: "s.test"})
			err := a.Allocate(context.Background(), store, link, meta)

			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if link.ShortCode != tt.slug {
					t.Errorf("ShortCode = %q, want %q", link.ShortCode, tt.slug)
				}
			case *domain.NonUniqueSlugError:
				if !errors.As(err, &want) {
					t.Fatalf("expected NonUniqueSlugError, got %v", err)
				}
				if want.Slug != tt.slug || want.DomainAuthority != "s.test" {
					t.Errorf("unexpected error fields: %+v", want)
				}
			case *domain.ValidationError:
				if !errors.As(err, &want) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
			}
			if store.saves != tt.wantSaves {
				t.Errorf("saves = %d, want %d", store.saves, tt.wantSaves)
			}
		})
	}
}

func TestAllocateNeverSubstitutesCustomSlug(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("a taken custom slug fails without trying another code", prop.ForAll(
		func(slug string) bool {
			store := newFakeStore()
			store.links[fakeKey("", slug)] = &domain.Link{ShortCode: slug}
			a := NewShortCodeAllocator(AllocatorOptions{}, logger.Discard())

			meta := domain.LinkMeta{LongURL: "https://example.com", CustomSlug: slug}
			link := newLink(meta, nil)
			err := a.Allocate(context.Background(), store, link, meta)

			var nonUnique *domain.NonUniqueSlugError
			return errors.As(err, &nonUnique) &&
				nonUnique.Slug == slug &&
				store.saves == 0 &&
				link.ShortCode == slug
		},
		gen.RegexMatch(`^[A-Za-z0-9_-]{1,20}$`),
	))

	properties.TestingRun(t)
}

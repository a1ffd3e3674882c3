package domain

import (
	"sort"
	"strings"
	"time"
)

// MinShortCodeLength is the shortest generated code a request may ask for.
const MinShortCodeLength = 4

// LinkInput is the raw, caller-provided shape of a shorten request.
type LinkInput struct {
	LongURL         string
	CustomSlug      string
	Domain          string
	Title           string
	ValidSince      *time.Time
	ValidUntil      *time.Time
	MaxVisits       *int
	Tags            []string
	FindIfExists    bool
	ValidateURL     bool
	ShortCodeLength int
}

// LinkMeta is the normalized description of a link to be created.
// It is passed by value and never mutated in place; use the With* helpers.
type LinkMeta struct {
	LongURL              string
	CustomSlug           string
	Domain               string
	Title                string
	TitleWasAutoResolved bool
	ValidSince           *time.Time
	ValidUntil           *time.Time
	MaxVisits            *int
	Tags                 []string
	FindIfExists         bool
	ValidateURL          bool
	ShortCodeLength      int
}

// NewLinkMeta validates and normalizes raw input.
func NewLinkMeta(in LinkInput) (LinkMeta, error) {
	meta := LinkMeta{
		LongURL:         strings.TrimSpace(in.LongURL),
		CustomSlug:      strings.TrimSpace(in.CustomSlug),
		Domain:          strings.ToLower(strings.TrimSpace(in.Domain)),
		Title:           strings.TrimSpace(in.Title),
		ValidSince:      normalizeTime(in.ValidSince),
		ValidUntil:      normalizeTime(in.ValidUntil),
		Tags:            NormalizeTags(in.Tags),
		FindIfExists:    in.FindIfExists,
		ValidateURL:     in.ValidateURL,
		ShortCodeLength: in.ShortCodeLength,
	}

	if meta.LongURL == "" {
		return LinkMeta{}, &ValidationError{Field: "longUrl", Reason: "is required"}
	}
	if meta.ValidSince != nil && meta.ValidUntil != nil && meta.ValidSince.After(*meta.ValidUntil) {
		return LinkMeta{}, &ValidationError{Field: "validUntil", Reason: "must not be before validSince"}
	}
	if in.MaxVisits != nil {
		if *in.MaxVisits < 1 {
			return LinkMeta{}, &ValidationError{Field: "maxVisits", Reason: "must be at least 1"}
		}
		v := *in.MaxVisits
		meta.MaxVisits = &v
	}
	if meta.ShortCodeLength != 0 && meta.ShortCodeLength < MinShortCodeLength {
		return LinkMeta{}, &ValidationError{Field: "shortCodeLength", Reason: "must be at least 4"}
	}
	if strings.TrimSpace(in.CustomSlug) == "" && in.CustomSlug != "" {
		return LinkMeta{}, &ValidationError{Field: "customSlug", Reason: "must not be blank"}
	}

	return meta, nil
}

// HasCustomSlug reports whether the caller asked for a specific short code.
func (m LinkMeta) HasCustomSlug() bool {
	return m.CustomSlug != ""
}

// HasTitle reports whether a title is already known.
func (m LinkMeta) HasTitle() bool {
	return m.Title != ""
}

// WithTitle returns a copy of the meta carrying the given title.
func (m LinkMeta) WithTitle(title string, autoResolved bool) LinkMeta {
	m.Title = title
	m.TitleWasAutoResolved = autoResolved
	m.Tags = append([]string(nil), m.Tags...)
	return m
}

// NormalizeTags trims, lowercases and deduplicates tag names, replacing
// inner spaces with dashes. The result is sorted.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		name := strings.ToLower(strings.Join(strings.Fields(t), "-"))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalizeTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Second)
	return &v
}

// Package title validates destination URLs and resolves page titles.
package title

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/idna"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
)

const (
	maxTitleRunes = 512
	maxBodyBytes  = 64 << 10
)

// Config controls URL policy and title fetching.
type Config struct {
	AutoResolve    bool
	Timeout        time.Duration
	UserAgent      string
	AllowedSchemes []string
}

// Resolver implements ports.TitleResolver over HTTP.
type Resolver struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewResolver builds a resolver. A nil client means http.DefaultClient.
func NewResolver(cfg Config, client *http.Client, logger *slog.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if len(cfg.AllowedSchemes) == 0 {
		cfg.AllowedSchemes = []string{"http", "https"}
	}
	return &Resolver{cfg: cfg, client: client, logger: logger}
}

// Process validates the long URL and, when enabled and no title was given,
// fills the title from the destination page.
func (r *Resolver) Process(ctx context.Context, meta domain.LinkMeta) (domain.LinkMeta, error) {
	if err := r.validateSyntax(meta.LongURL); err != nil {
		return meta, err
	}

	if meta.HasTitle() || !r.cfg.AutoResolve {
		if meta.ValidateURL {
			if _, err := r.fetch(ctx, meta.LongURL, false); err != nil {
				return meta, &domain.InvalidDestinationError{URL: meta.LongURL, Reason: "not reachable", Err: err}
			}
		}
		return meta, nil
	}

	title, err := r.fetch(ctx, meta.LongURL, true)
	if err != nil {
		if meta.ValidateURL {
			return meta, &domain.InvalidDestinationError{URL: meta.LongURL, Reason: "not reachable", Err: err}
		}
		r.logger.Debug("could not resolve title", "url", meta.LongURL, "error", err)
		return meta, nil
	}
	if title == "" {
		return meta, nil
	}
	return meta.WithTitle(title, true), nil
}

func (r *Resolver) validateSyntax(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &domain.InvalidDestinationError{URL: raw, Reason: "malformed URL", Err: err}
	}
	if !u.IsAbs() {
		return &domain.InvalidDestinationError{URL: raw, Reason: "URL must be absolute"}
	}
	if !slices.Contains(r.cfg.AllowedSchemes, strings.ToLower(u.Scheme)) {
		return &domain.InvalidDestinationError{URL: raw, Reason: fmt.Sprintf("scheme %q is not allowed", u.Scheme)}
	}

	host := u.Hostname()
	if host == "" {
		return &domain.InvalidDestinationError{URL: raw, Reason: "missing host"}
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if _, err := idna.Lookup.ToASCII(host); err != nil {
		return &domain.InvalidDestinationError{URL: raw, Reason: "invalid host", Err: err}
	}
	return nil
}

// fetch GETs the URL and, if wantTitle, extracts the document title.
func (r *Resolver) fetch(ctx context.Context, rawURL string, wantTitle bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if r.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", r.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if !wantTitle || !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return "", nil
	}
	return extractTitle(io.LimitReader(resp.Body, maxBodyBytes)), nil
}

func extractTitle(body io.Reader) string {
	z := html.NewTokenizer(body)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) != "title" {
				continue
			}
			if z.Next() != html.TextToken {
				return ""
			}
			return cleanTitle(string(z.Text()))
		}
	}
}

func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > maxTitleRunes {
		s = string(runes[:maxTitleRunes])
	}
	return s
}

var _ ports.TitleResolver = (*Resolver)(nil)

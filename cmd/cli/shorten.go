package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
)

type shortenOptions struct {
	slug         string
	domain       string
	title        string
	tags         []string
	validSince   string
	validUntil   string
	maxVisits    int
	length       int
	findIfExists bool
	validateURL  bool
	output       string
}

func newShortenCmd(c *cli) *cobra.Command {
	var opts shortenOptions

	cmd := &cobra.Command{
		Use:   "shorten URL",
		Short: "Create a short link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "text" && opts.output != "json" {
				return fmt.Errorf("unsupported output %q (text or json)", opts.output)
			}

			in := domain.LinkInput{
				LongURL:         args[0],
				CustomSlug:      opts.slug,
				Domain:          opts.domain,
				Title:           opts.title,
				Tags:            opts.tags,
				FindIfExists:    opts.findIfExists,
				ValidateURL:     opts.validateURL,
				ShortCodeLength: opts.length,
			}
			var err error
			if in.ValidSince, err = parseTimeFlag("valid-since", opts.validSince); err != nil {
				return err
			}
			if in.ValidUntil, err = parseTimeFlag("valid-until", opts.validUntil); err != nil {
				return err
			}
			if cmd.Flags().Changed("max-visits") {
				in.MaxVisits = &opts.maxVisits
			}

			meta, err := domain.NewLinkMeta(in)
			if err != nil {
				return err
			}
			link, err := c.app.links.Shorten(cmd.Context(), meta)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.output == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(link)
			}
			_, err = fmt.Fprintln(out, shortURL(link, c.app.cfg.DefaultDomain))
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.slug, "slug", "", "custom short code")
	f.StringVar(&opts.domain, "domain", "", "domain the short code belongs to")
	f.StringVar(&opts.title, "title", "", "link title")
	f.StringSliceVar(&opts.tags, "tag", nil, "tag to attach (repeatable)")
	f.StringVar(&opts.validSince, "valid-since", "", "RFC 3339 time the link becomes active")
	f.StringVar(&opts.validUntil, "valid-until", "", "RFC 3339 time the link expires")
	f.IntVar(&opts.maxVisits, "max-visits", 0, "maximum number of visits")
	f.IntVar(&opts.length, "length", 0, "generated short code length (default from SHORT_CODE_LENGTH)")
	f.BoolVar(&opts.findIfExists, "find-if-exists", false, "return an equivalent existing link instead of creating one")
	f.BoolVar(&opts.validateURL, "validate-url", false, "require the destination to be reachable")
	f.StringVarP(&opts.output, "output", "o", "text", "output format: text or json")
	return cmd
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &t, nil
}

// shortURL renders the link as host/code, or just the code when no host is known.
func shortURL(link *domain.Link, defaultDomain string) string {
	host := link.DomainAuthority()
	if host == "" {
		host = defaultDomain
	}
	if host == "" {
		return link.ShortCode
	}
	return strings.TrimSuffix(host, "/") + "/" + link.ShortCode
}

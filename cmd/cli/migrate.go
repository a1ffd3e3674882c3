package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/logger"
)

func newExportCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump every link, including deleted ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			links, err := c.app.store.Dump(cmd.Context())
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if links == nil {
				links = []domain.Link{}
			}
			return encodeLinks(cmd.OutOrStdout(), format, links)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or yaml")
	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	var (
		file        string
		format      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Re-create exported links, keeping their short codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			links, err := decodeLinks(f, format)
			if err != nil {
				return err
			}

			imported, skipped, err := c.app.importLinks(cmd.Context(), links, concurrency)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d links, skipped %d\n", imported, skipped)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file to import")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or yaml")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of links imported in parallel")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// importLinks shortens every live link with its original code. Links whose
// code is already taken in their domain are skipped.
func (a *app) importLinks(ctx context.Context, links []domain.Link, concurrency int) (imported, skipped int64, err error) {
	log := logger.WithContext(ctx, a.logger)
	if concurrency < 1 {
		concurrency = 1
	}

	var importedN, skippedN atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, l := range links {
		if l.DeletedAt != nil {
			skippedN.Add(1)
			continue
		}
		g.Go(func() error {
			meta, err := domain.NewLinkMeta(domain.LinkInput{
				LongURL:    l.OriginalURL,
				CustomSlug: l.ShortCode,
				Domain:     l.DomainAuthority(),
				Title:      l.Title,
				ValidSince: l.ValidSince,
				ValidUntil: l.ValidUntil,
				MaxVisits:  l.MaxVisits,
				Tags:       l.TagNames(),
			})
			if err != nil {
				return fmt.Errorf("link %q: %w", l.ShortCode, err)
			}

			_, err = a.links.Shorten(ctx, meta)
			var nonUnique *domain.NonUniqueSlugError
			switch {
			case err == nil:
				importedN.Add(1)
			case errors.As(err, &nonUnique):
				log.Info("skipping existing code", "short_code", l.ShortCode, "domain", l.DomainAuthority())
				skippedN.Add(1)
			default:
				return fmt.Errorf("failed to import %q: %w", l.ShortCode, err)
			}
			return nil
		})
	}

	err = g.Wait()
	log.Info("import finished", "imported", importedN.Load(), "skipped", skippedN.Load())
	return importedN.Load(), skippedN.Load(), err
}

func encodeLinks(w io.Writer, format string, links []domain.Link) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(links)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(links); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q (json or yaml)", format)
	}
}

func decodeLinks(r io.Reader, format string) ([]domain.Link, error) {
	var links []domain.Link
	switch format {
	case "json":
		if err := json.NewDecoder(r).Decode(&links); err != nil {
			return nil, fmt.Errorf("decode failed: %w", err)
		}
	case "yaml":
		if err := yaml.NewDecoder(r).Decode(&links); err != nil {
			return nil, fmt.Errorf("decode failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q (json or yaml)", format)
	}
	return links, nil
}

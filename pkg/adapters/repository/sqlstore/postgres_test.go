package sqlstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/logger"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
)

func setupPostgresStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	s, err := New(dbURL, logger.Discard())
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// A conflicting insert must leave a Postgres transaction usable, so the
// generated-code retry can continue within it.
func TestPostgresConflictKeepsTransactionUsable(t *testing.T) {
	s := setupPostgresStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("duplicate save fails with ErrShortCodeTaken and the retry commits", prop.ForAll(
		func(withDomain bool) bool {
			ctx := context.Background()
			code := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
			authority := ""
			if withDomain {
				authority = "pg-" + code + ".test"
			}

			err := s.WithTx(ctx, func(tx ports.Repository) error {
				var d *domain.Domain
				if authority != "" {
					d = &domain.Domain{Authority: authority}
					if err := tx.CreateDomain(ctx, d); err != nil {
						return err
					}
				}
				meta := domain.LinkMeta{LongURL: "https://example.com/" + code}

				first := domain.NewLink(meta, d, nil, time.Now())
				first.ShortCode = code
				if err := tx.Save(ctx, first); err != nil {
					return err
				}

				dup := domain.NewLink(meta, d, nil, time.Now())
				dup.ShortCode = code
				if err := tx.Save(ctx, dup); !errors.Is(err, domain.ErrShortCodeTaken) {
					return errors.New("expected ErrShortCodeTaken")
				}

				dup.ShortCode = code + "x"
				return tx.Save(ctx, dup)
			})
			if err != nil {
				t.Logf("transaction failed: %v", err)
				return false
			}

			exists, err := s.ShortCodeExists(ctx, code+"x", nil)
			if authority != "" {
				found, _ := s.FindDomainByAuthority(ctx, authority)
				exists, err = s.ShortCodeExists(ctx, code+"x", found)
			}
			return err == nil && exists
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

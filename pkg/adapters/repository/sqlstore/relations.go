package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
)

func (r *repository) FindDomainByAuthority(ctx context.Context, authority string) (*domain.Domain, error) {
	stmt, args, err := r.sb.Select("id", "authority").
		From("domains").
		Where(squirrel.Eq{"authority": authority}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var d domain.Domain
	if err := r.q.QueryRowContext(ctx, stmt, args...).Scan(&d.ID, &d.Authority); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding domain: %w", err)
	}
	return &d, nil
}

// CreateDomain inserts the domain. If a concurrent writer created the same
// authority first, d is filled from the existing row instead.
func (r *repository) CreateDomain(ctx context.Context, d *domain.Domain) error {
	return r.insertOrLoad(ctx, "domain_create", "domains", "authority", d.Authority, &d.ID)
}

func (r *repository) FindTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	stmt, args, err := r.sb.Select("id", "name").
		From("tags").
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var t domain.Tag
	if err := r.q.QueryRowContext(ctx, stmt, args...).Scan(&t.ID, &t.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding tag: %w", err)
	}
	return &t, nil
}

// CreateTag inserts the tag, or loads the existing one with the same name.
func (r *repository) CreateTag(ctx context.Context, tag *domain.Tag) error {
	return r.insertOrLoad(ctx, "tag_create", "tags", "name", tag.Name, &tag.ID)
}

// insertOrLoad inserts a row keyed by a unique column and stores its id.
// On a uniqueness conflict the id of the existing row is loaded.
func (r *repository) insertOrLoad(ctx context.Context, savepoint, table, column, value string, id *int64) error {
	err := r.withSavepoint(ctx, savepoint, func() error {
		stmt, args, err := r.sb.Insert(table).
			Columns(column).
			Values(value).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return err
		}
		return r.q.QueryRowContext(ctx, stmt, args...).Scan(id)
	})
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}

	stmt, args, err := r.sb.Select("id").From(table).Where(squirrel.Eq{column: value}).ToSql()
	if err != nil {
		return err
	}
	if err := r.q.QueryRowContext(ctx, stmt, args...).Scan(id); err != nil {
		return fmt.Errorf("loading existing row from %s: %w", table, err)
	}
	return nil
}

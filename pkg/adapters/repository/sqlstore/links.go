package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
)

var linkColumns = []string{
	"l.id", "l.short_code", "l.original_url", "l.domain_id", "d.authority",
	"l.title", "l.title_was_auto_resolved", "l.valid_since", "l.valid_until",
	"l.max_visits", "l.created_at", "l.deleted_at",
}

func (r *repository) selectLinks() squirrel.SelectBuilder {
	return r.sb.Select(linkColumns...).
		From("links l").
		LeftJoin("domains d ON d.id = l.domain_id")
}

func (r *repository) FindOneMatching(ctx context.Context, meta domain.LinkMeta) (*domain.Link, error) {
	query := r.selectLinks().
		Where(squirrel.Eq{
			"l.original_url": meta.LongURL,
			"l.deleted_at":   nil,
			"l.valid_since":  nullableTime(meta.ValidSince),
			"l.valid_until":  nullableTime(meta.ValidUntil),
			"l.max_visits":   nullableInt(meta.MaxVisits),
		}).
		Where(squirrel.Expr("(SELECT COUNT(*) FROM link_tags lt WHERE lt.link_id = l.id) = ?", len(meta.Tags)))

	if meta.Domain == "" {
		query = query.Where(squirrel.Eq{"l.domain_id": nil})
	} else {
		query = query.Where(squirrel.Eq{"d.authority": meta.Domain})
	}
	if meta.HasCustomSlug() {
		query = query.Where(squirrel.Eq{"l.short_code": meta.CustomSlug})
	}

	if len(meta.Tags) > 0 {
		sub, subArgs, err := squirrel.Select("COUNT(*)").
			From("link_tags lt").
			Join("tags t ON t.id = lt.tag_id").
			Where("lt.link_id = l.id").
			Where(squirrel.Eq{"t.name": meta.Tags}).
			ToSql()
		if err != nil {
			return nil, err
		}
		query = query.Where(squirrel.Expr("("+sub+") = ?", append(subArgs, len(meta.Tags))...))
	}

	links, err := r.queryLinks(ctx, query.OrderBy("l.id ASC").Limit(1))
	if err != nil {
		return nil, fmt.Errorf("finding matching link: %w", err)
	}
	if len(links) == 0 {
		return nil, nil
	}
	return &links[0], nil
}

func (r *repository) ShortCodeExists(ctx context.Context, code string, d *domain.Domain) (bool, error) {
	query := r.sb.Select("COUNT(*)").
		From("links").
		Where(squirrel.Eq{"short_code": code, "deleted_at": nil})
	if d == nil {
		query = query.Where(squirrel.Eq{"domain_id": nil})
	} else {
		query = query.Where(squirrel.Eq{"domain_id": d.ID})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	var count int64
	if err := r.q.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("checking short code: %w", err)
	}
	return count > 0, nil
}

func (r *repository) Save(ctx context.Context, link *domain.Link) error {
	if !r.inTx {
		return domain.ErrNotInTransaction
	}

	var id int64
	err := r.withSavepoint(ctx, "link_save", func() error {
		stmt, args, err := r.sb.Insert("links").
			Columns("short_code", "original_url", "domain_id", "title", "title_was_auto_resolved",
				"valid_since", "valid_until", "max_visits", "created_at").
			Values(link.ShortCode, link.OriginalURL, nullableInt64(link.DomainID()), link.Title, link.TitleWasAutoResolved,
				nullableTime(link.ValidSince), nullableTime(link.ValidUntil), nullableInt(link.MaxVisits), link.CreatedAt).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return err
		}

		if err := r.q.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrShortCodeTaken
			}
			return fmt.Errorf("inserting link: %w", err)
		}

		for _, tag := range link.Tags {
			stmt, args, err := r.sb.Insert("link_tags").
				Columns("link_id", "tag_id").
				Values(id, tag.ID).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := r.q.ExecContext(ctx, stmt, args...); err != nil {
				return fmt.Errorf("attaching tag %q: %w", tag.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	link.ID = id
	return nil
}

func (r *repository) GetByShortCode(ctx context.Context, code, authority string) (*domain.Link, error) {
	query := r.selectLinks().Where(squirrel.Eq{"l.short_code": code, "l.deleted_at": nil})
	if authority == "" {
		query = query.Where(squirrel.Eq{"l.domain_id": nil})
	} else {
		query = query.Where(squirrel.Eq{"d.authority": authority})
	}

	links, err := r.queryLinks(ctx, query.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}
	return &links[0], nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*domain.Link, error) {
	links, err := r.queryLinks(ctx, r.selectLinks().Where(squirrel.Eq{"l.id": id, "l.deleted_at": nil}))
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}
	return &links[0], nil
}

func (r *repository) Dump(ctx context.Context) ([]domain.Link, error) {
	return r.queryLinks(ctx, r.selectLinks().OrderBy("l.id ASC"))
}

// queryLinks runs a link select and loads the tags of every row. Rows are
// fully drained before tag queries run, since SQLite pools a single connection.
func (r *repository) queryLinks(ctx context.Context, query squirrel.SelectBuilder) ([]domain.Link, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range links {
		tags, err := r.linkTags(ctx, links[i].ID)
		if err != nil {
			return nil, err
		}
		links[i].Tags = tags
	}
	return links, nil
}

func (r *repository) linkTags(ctx context.Context, linkID int64) ([]domain.Tag, error) {
	stmt, args, err := r.sb.Select("t.id", "t.name").
		From("tags t").
		Join("link_tags lt ON lt.tag_id = t.id").
		Where(squirrel.Eq{"lt.link_id": linkID}).
		OrderBy("t.name ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("loading tags: %w", err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func scanLink(rows *sql.Rows) (domain.Link, error) {
	var (
		l          domain.Link
		domainID   sql.NullInt64
		authority  sql.NullString
		title      sql.NullString
		validSince sql.NullTime
		validUntil sql.NullTime
		maxVisits  sql.NullInt64
		deletedAt  sql.NullTime
	)

	err := rows.Scan(
		&l.ID, &l.ShortCode, &l.OriginalURL, &domainID, &authority,
		&title, &l.TitleWasAutoResolved, &validSince, &validUntil,
		&maxVisits, &l.CreatedAt, &deletedAt,
	)
	if err != nil {
		return l, err
	}

	if domainID.Valid {
		l.Domain = &domain.Domain{ID: domainID.Int64, Authority: authority.String}
	}
	l.Title = title.String
	l.ValidSince = fromNullTime(validSince)
	l.ValidUntil = fromNullTime(validUntil)
	l.DeletedAt = fromNullTime(deletedAt)
	l.CreatedAt = l.CreatedAt.UTC()
	if maxVisits.Valid {
		v := int(maxVisits.Int64)
		l.MaxVisits = &v
	}
	return l, nil
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// The nullable* helpers return an untyped nil so squirrel renders IS NULL
// and drivers bind NULL.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullableInt64(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

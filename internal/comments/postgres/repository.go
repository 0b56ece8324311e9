// Package postgres provides PostgreSQL implementation of the comment repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/bissquit/comment-notifications/internal/comments"
	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var commentColumns = []string{
	"id",
	"base_class",
	"parent_id",
	"author_id",
	"author_name",
	"author_email",
	"body",
	"moderated",
	"notify_of_updates",
	"created_at",
	"updated_at",
}

// Repository implements comments.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new comment and fills its ID and timestamps.
func (r *Repository) Create(ctx context.Context, comment *domain.Comment) error {
	query, args, err := psql.Insert("comments").
		Columns("base_class", "parent_id", "author_id", "author_name", "author_email", "body", "moderated", "notify_of_updates").
		Values(
			comment.BaseClass,
			comment.ParentID,
			nullableString(comment.AuthorID),
			comment.AuthorName,
			comment.AuthorEmail,
			comment.Body,
			comment.Moderated,
			comment.NotifyOfUpdates,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	return r.db.QueryRow(ctx, query, args...).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
}

// Update writes all mutable fields of an existing comment.
func (r *Repository) Update(ctx context.Context, comment *domain.Comment) error {
	query, args, err := psql.Update("comments").
		SetMap(map[string]interface{}{
			"base_class":        comment.BaseClass,
			"parent_id":         comment.ParentID,
			"author_id":         nullableString(comment.AuthorID),
			"author_name":       comment.AuthorName,
			"author_email":      comment.AuthorEmail,
			"body":              comment.Body,
			"moderated":         comment.Moderated,
			"notify_of_updates": comment.NotifyOfUpdates,
			"updated_at":        sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": comment.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&comment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return comments.ErrCommentNotFound
		}
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	query, args, err := psql.Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	comment, err := scanComment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, comments.ErrCommentNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return comment, nil
}

// Find returns comments matching the filter ordered by ID.
func (r *Repository) Find(ctx context.Context, filter comments.Filter) ([]domain.Comment, error) {
	builder := psql.Select(commentColumns...).From("comments").OrderBy("id ASC")

	if where := filterConditions(filter); len(where) > 0 {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		result = append(result, *comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return result, nil
}

func filterConditions(filter comments.Filter) sq.Eq {
	where := sq.Eq{}
	if filter.BaseClass != nil {
		where["base_class"] = *filter.BaseClass
	}
	if filter.ParentID != nil {
		where["parent_id"] = *filter.ParentID
	}
	if filter.AuthorID != nil {
		where["author_id"] = *filter.AuthorID
	}
	if filter.NotifyOfUpdates != nil {
		where["notify_of_updates"] = *filter.NotifyOfUpdates
	}
	if filter.Moderated != nil {
		where["moderated"] = *filter.Moderated
	}
	return where
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var comment domain.Comment
	var authorID *string

	err := row.Scan(
		&comment.ID,
		&comment.BaseClass,
		&comment.ParentID,
		&authorID,
		&comment.AuthorName,
		&comment.AuthorEmail,
		&comment.Body,
		&comment.Moderated,
		&comment.NotifyOfUpdates,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if authorID != nil {
		comment.AuthorID = *authorID
	}
	return &comment, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

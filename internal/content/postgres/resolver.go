// Package postgres provides table-backed content resolvers.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/comment-notifications/internal/content"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TableResolver resolves content items stored in a table with id and title columns.
type TableResolver struct {
	db    *pgxpool.Pool
	table string
}

// NewTableResolver creates a resolver over the given table.
func NewTableResolver(db *pgxpool.Pool, table string) *TableResolver {
	return &TableResolver{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
	}
}

// Exists reports whether a row with the id exists.
func (r *TableResolver) Exists(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, r.table)

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s row: %w", r.table, err)
	}
	return exists, nil
}

// FetchTitle returns the title of the row with the id.
func (r *TableResolver) FetchTitle(ctx context.Context, id int64) (string, error) {
	query := fmt.Sprintf(`SELECT title FROM %s WHERE id = $1`, r.table)

	var title string
	err := r.db.QueryRow(ctx, query, id).Scan(&title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", content.ErrNotFound
		}
		return "", fmt.Errorf("get %s title: %w", r.table, err)
	}
	return title, nil
}

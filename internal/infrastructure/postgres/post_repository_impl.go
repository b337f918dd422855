package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/F1veStar3/postboard/internal/domain/entity"
	"github.com/F1veStar3/postboard/internal/domain/repository"
)

type PostRepository struct {
	db DBTX
}

func NewPostRepository(db DBTX) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, p *entity.Post) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO posts (user_id, content)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, p.UserID, p.Content)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepository) ListByUser(ctx context.Context, userID int64) ([]entity.Post, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, content, created_at
		FROM posts
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select posts: %w", err)
	}
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Post, error) {
		var p entity.Post
		err := row.Scan(&p.ID, &p.UserID, &p.Content, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) DeleteByIDAndUser(ctx context.Context, postID, userID int64) error {
	res, err := r.db.Exec(ctx, `
		DELETE FROM posts
		WHERE id = $1 AND user_id = $2
	`, postID, userID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.PostRepository = (*PostRepository)(nil)

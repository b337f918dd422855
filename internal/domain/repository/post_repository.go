package repository

import (
	"context"

	"github.com/F1veStar3/postboard/internal/domain/entity"
)

type PostRepository interface {
	Create(ctx context.Context, p *entity.Post) error
	ListByUser(ctx context.Context, userID int64) ([]entity.Post, error)
	// DeleteByIDAndUser removes the post only when userID owns it, otherwise ErrNotFound.
	DeleteByIDAndUser(ctx context.Context, postID, userID int64) error
}

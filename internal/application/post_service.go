package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/F1veStar3/postboard/internal/domain/entity"
	repo "github.com/F1veStar3/postboard/internal/domain/repository"
)

var (
	ErrPostTooLarge = errors.New("post content too large")
	ErrPostNotFound = errors.New("post not found")
)

const (
	DefaultSearchSize = 10
	MaxSearchSize     = 50
)

// PostCache is implemented by *cache.PostListCache. Set must drop the listing
// when Invalidate ran after gen was read.
type PostCache interface {
	Get(ctx context.Context, userID int64) ([]entity.Post, bool, error)
	Generation(ctx context.Context, userID int64) (int64, error)
	Set(ctx context.Context, userID, gen int64, posts []entity.Post) (bool, error)
	Invalidate(ctx context.Context, userID int64) error
}

// PostIndexer is implemented by *search.PostIndex.
type PostIndexer interface {
	Index(ctx context.Context, post entity.Post) error
	Delete(ctx context.Context, postID int64) error
	Search(ctx context.Context, userID int64, q string, size int) ([]entity.Post, error)
}

// PostService manages posts. Cache and Index are optional; their failures are
// logged and never fail the request.
type PostService struct {
	Repo     repo.PostRepository
	Cache    PostCache
	Index    PostIndexer
	MaxBytes int
	Logger   *logrus.Logger
}

func NewPostService(r repo.PostRepository, cache PostCache, index PostIndexer, maxBytes int, logger *logrus.Logger) *PostService {
	return &PostService{Repo: r, Cache: cache, Index: index, MaxBytes: maxBytes, Logger: logger}
}

// Create stores a post for userID. Content is measured in UTF-8 bytes.
func (s *PostService) Create(ctx context.Context, userID int64, content string) (*entity.Post, error) {
	if s.MaxBytes > 0 && len(content) > s.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrPostTooLarge, len(content), s.MaxBytes)
	}
	p := &entity.Post{UserID: userID, Content: content}
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	if s.Index != nil {
		if err := s.Index.Index(ctx, *p); err != nil {
			s.warn(err, "index post failed", p.ID)
		}
	}
	return p, nil
}

// List returns userID's posts in creation order.
func (s *PostService) List(ctx context.Context, userID int64) ([]entity.Post, error) {
	var (
		gen  int64
		fill bool
	)
	if s.Cache != nil {
		posts, ok, err := s.Cache.Get(ctx, userID)
		if err != nil {
			s.warn(err, "read post cache failed", 0)
		}
		if ok {
			return posts, nil
		}
		if gen, err = s.Cache.Generation(ctx, userID); err != nil {
			s.warn(err, "read post cache generation failed", 0)
		} else {
			fill = true
		}
	}

	posts, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []entity.Post{}
	}

	if fill {
		stored, err := s.Cache.Set(ctx, userID, gen, posts)
		if err != nil {
			s.warn(err, "write post cache failed", 0)
		} else if !stored && s.Logger != nil {
			s.Logger.WithField("user_id", userID).Debug("post cache fill skipped after concurrent write")
		}
	}
	return posts, nil
}

// Delete removes postID if userID owns it. Someone else's post looks the same as a missing one.
func (s *PostService) Delete(ctx context.Context, userID, postID int64) error {
	if err := s.Repo.DeleteByIDAndUser(ctx, postID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	s.invalidate(ctx, userID)
	if s.Index != nil {
		if err := s.Index.Delete(ctx, postID); err != nil {
			s.warn(err, "remove post from index failed", postID)
		}
	}
	return nil
}

// Search runs a full-text query over userID's posts. Without an index it returns nothing.
func (s *PostService) Search(ctx context.Context, userID int64, q string, size int) ([]entity.Post, error) {
	if s.Index == nil {
		return []entity.Post{}, nil
	}
	if size <= 0 || size > MaxSearchSize {
		size = DefaultSearchSize
	}
	return s.Index.Search(ctx, userID, q, size)
}

func (s *PostService) invalidate(ctx context.Context, userID int64) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, userID); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("invalidate post cache failed")
	}
}

func (s *PostService) warn(err error, msg string, postID int64) {
	if s.Logger == nil {
		return
	}
	entry := s.Logger.WithError(err)
	if postID != 0 {
		entry = entry.WithField("post_id", postID)
	}
	entry.Warn(msg)
}

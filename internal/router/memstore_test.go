package router

import (
	"context"
	"sync"
	"time"

	"github.com/F1veStar3/postboard/internal/domain/entity"
	repo "github.com/F1veStar3/postboard/internal/domain/repository"
)

// memStore is an in-memory stand-in for both Postgres repositories.
type memStore struct {
	mu         sync.Mutex
	users      []entity.User
	posts      []entity.Post
	nextUserID int64
	nextPostID int64
}

type memUserRepo struct{ s *memStore }
type memPostRepo struct{ s *memStore }

func (r memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repo.ErrConflict
		}
	}
	r.s.nextUserID++
	u.ID = r.s.nextUserID
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	r.s.users = append(r.s.users, *u)
	return nil
}

func (r memUserRepo) find(match func(entity.User) bool) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r memUserRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id })
}

func (r memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email == email })
}

func (r memUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.users {
		if r.s.users[i].ID == id {
			r.s.users[i].PasswordHash = hash
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r memPostRepo) Create(_ context.Context, p *entity.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextPostID++
	p.ID = r.s.nextPostID
	p.CreatedAt = time.Now().UTC()
	r.s.posts = append(r.s.posts, *p)
	return nil
}

func (r memPostRepo) ListByUser(_ context.Context, userID int64) ([]entity.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []entity.Post{}
	for _, p := range r.s.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPostRepo) DeleteByIDAndUser(_ context.Context, postID, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, p := range r.s.posts {
		if p.ID == postID && p.UserID == userID {
			r.s.posts = append(r.s.posts[:i], r.s.posts[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

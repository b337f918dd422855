package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/F1veStar3/postboard/internal/domain/entity"
	repo "github.com/F1veStar3/postboard/internal/domain/repository"
)

type memUsers struct {
	mu               sync.Mutex
	byEmail          map[string]*entity.User
	nextID           int64
	getErr           error
	updates          int
	conflictOnCreate bool
}

func newMemUsers() *memUsers { return &memUsers{byEmail: map[string]*entity.User{}} }

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok || m.conflictOnCreate {
		return repo.ErrConflict
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.byEmail[email]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
			m.updates++
			return nil
		}
	}
	return repo.ErrNotFound
}

type memPosts struct {
	mu     sync.Mutex
	posts  []entity.Post
	nextID int64
	lists  int

	// afterList runs once the listing is read, outside the lock
	afterList func()
}

func (m *memPosts) Create(_ context.Context, p *entity.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	m.posts = append(m.posts, *p)
	return nil
}

func (m *memPosts) ListByUser(_ context.Context, userID int64) ([]entity.Post, error) {
	m.mu.Lock()
	m.lists++
	var out []entity.Post
	for _, p := range m.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	hook := m.afterList
	m.afterList = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memPosts) DeleteByIDAndUser(_ context.Context, postID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.posts {
		if p.ID == postID && p.UserID == userID {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []any
	err  error
}

func (q *recordingQueue) PublishJSON(_ context.Context, body any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, body)
	return nil
}

type memCache struct {
	data        map[int64][]entity.Post
	gens        map[int64]int64
	invalidated []int64
	skipped     int
	err         error
}

func newMemCache() *memCache {
	return &memCache{data: map[int64][]entity.Post{}, gens: map[int64]int64{}}
}

func (c *memCache) Get(_ context.Context, userID int64) ([]entity.Post, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	p, ok := c.data[userID]
	return p, ok, nil
}

func (c *memCache) Generation(_ context.Context, userID int64) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.gens[userID], nil
}

func (c *memCache) Set(_ context.Context, userID, gen int64, posts []entity.Post) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if c.gens[userID] != gen {
		c.skipped++
		return false, nil
	}
	c.data[userID] = posts
	return true, nil
}

func (c *memCache) Invalidate(_ context.Context, userID int64) error {
	c.invalidated = append(c.invalidated, userID)
	delete(c.data, userID)
	c.gens[userID]++
	return c.err
}

type memIndex struct {
	indexed []entity.Post
	deleted []int64
	lastQ   string
	lastSz  int
	err     error
}

func (i *memIndex) Index(_ context.Context, p entity.Post) error {
	i.indexed = append(i.indexed, p)
	return i.err
}

func (i *memIndex) Delete(_ context.Context, id int64) error {
	i.deleted = append(i.deleted, id)
	return i.err
}

func (i *memIndex) Search(_ context.Context, userID int64, q string, size int) ([]entity.Post, error) {
	i.lastQ, i.lastSz = q, size
	if i.err != nil {
		return nil, i.err
	}
	var out []entity.Post
	for _, p := range i.indexed {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")

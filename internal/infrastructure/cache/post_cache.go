package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/F1veStar3/postboard/internal/domain/entity"
	"github.com/F1veStar3/postboard/pkg/helpers"
)

// genTTL bounds how long an idle user's generation counter lives. An expired
// counter reads as 0, which never matches a generation taken before a write.
const genTTL = 24 * time.Hour

// PostListCache keeps each user's post listing in Redis for a fixed TTL.
// Every write bumps a per-user generation; a fill is only stored while the
// generation it was read under is still current.
type PostListCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewPostListCache(rdb redis.Cmdable, ttl time.Duration) *PostListCache {
	return &PostListCache{rdb: rdb, ttl: ttl}
}

func postListKey(userID int64) string {
	return "posts:user:" + strconv.FormatInt(userID, 10)
}

func postGenKey(userID int64) string {
	return postListKey(userID) + ":gen"
}

// Get returns the cached listing and whether it was present.
func (c *PostListCache) Get(ctx context.Context, userID int64) ([]entity.Post, bool, error) {
	var posts []entity.Post
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, postListKey(userID), &posts)
	if err != nil || !ok {
		return nil, false, err
	}
	return posts, true, nil
}

// Generation returns the user's current write generation. Read it before
// loading the listing from the database and pass it to Set.
func (c *PostListCache) Generation(ctx context.Context, userID int64) (int64, error) {
	gen, err := c.rdb.Get(ctx, postGenKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set stores posts unless a write happened after gen was read.
func (c *PostListCache) Set(ctx context.Context, userID, gen int64, posts []entity.Post) (bool, error) {
	return helpers.RedisSetJSONIf(ctx, c.rdb, postListKey(userID), postGenKey(userID),
		strconv.FormatInt(gen, 10), posts, c.ttl)
}

// Invalidate drops the listing and bumps the generation in one transaction.
func (c *PostListCache) Invalidate(ctx context.Context, userID int64) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, postListKey(userID))
		p.Incr(ctx, postGenKey(userID))
		p.Expire(ctx, postGenKey(userID), genTTL)
		return nil
	})
	return err
}

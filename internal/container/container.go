package container

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/F1veStar3/postboard/config"
	"github.com/F1veStar3/postboard/internal/application"
	repo "github.com/F1veStar3/postboard/internal/domain/repository"
	"github.com/F1veStar3/postboard/internal/infrastructure/cache"
	pginfra "github.com/F1veStar3/postboard/internal/infrastructure/postgres"
	"github.com/F1veStar3/postboard/internal/infrastructure/search"
	"github.com/F1veStar3/postboard/pkg/helpers"
)

// Container holds the components built once at startup and shared by the
// router modules. Optional backends (ES, RabbitMQ) stay nil when disabled.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	PGPool    *pgxpool.Pool
	Redis     *redis.Client
	ES        *elasticsearch.Client
	RabbitPub *helpers.RabbitPublisher

	JWT    *helpers.JWTManager
	Hasher *helpers.PasswordHasher

	Users     repo.UserRepository
	Posts     repo.PostRepository
	PostCache *cache.PostListCache
	PostIndex *search.PostIndex
}

// Build connects every backend the configuration asks for, runs migrations and
// wires the repositories. On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (_ *Container, err error) {
	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.JWT, err = helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	c.Hasher = helpers.NewPasswordHasher(cfg.BcryptCost)

	c.PGPool, err = pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err = pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	c.Users = pginfra.NewUserRepository(c.PGPool)
	c.Posts = pginfra.NewPostRepository(c.PGPool)

	c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if pingErr := c.Redis.Ping(ctx).Err(); pingErr != nil {
		// cache and rate limits degrade gracefully
		logger.WithError(pingErr).Warn("redis not reachable at startup")
	}
	c.PostCache = cache.NewPostListCache(c.Redis, cfg.PostsCacheTTL)

	if cfg.SearchEnabled {
		c.ES, err = helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch: %w", err)
		}
		c.PostIndex = search.NewPostIndex(c.ES, cfg.ESPostsIndex)
		if ensureErr := c.PostIndex.EnsureIndex(ctx); ensureErr != nil {
			logger.WithError(ensureErr).WithField("index", cfg.ESPostsIndex).Warn("ensure posts index failed")
		}
	}

	if cfg.MailSendEnabled && cfg.RabbitMQURL != "" {
		pub, pubErr := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if pubErr != nil {
			logger.WithError(pubErr).Warn("rabbitmq unavailable; welcome emails disabled")
		} else {
			c.RabbitPub = pub
		}
	}

	helpers.LogInfo(logger, "container ready", logrus.Fields{
		"search":      c.PostIndex != nil,
		"email_queue": c.RabbitPub != nil,
	})
	return c, nil
}

// Close releases every connection the container owns. Safe on a partial container.
func (c *Container) Close() {
	c.RabbitPub.Close()
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.PGPool != nil {
		c.PGPool.Close()
	}
}

// The accessors below return untyped nil for missing backends so that
// interface nil checks downstream hold.

func (c *Container) RedisCmd() redis.Cmdable {
	if c.Redis == nil {
		return nil
	}
	return c.Redis
}

func (c *Container) EmailQueue() application.EmailQueue {
	if c.RabbitPub == nil {
		return nil
	}
	return c.RabbitPub
}

func (c *Container) PostListCache() application.PostCache {
	if c.PostCache == nil {
		return nil
	}
	return c.PostCache
}

func (c *Container) PostSearchIndex() application.PostIndexer {
	if c.PostIndex == nil {
		return nil
	}
	return c.PostIndex
}

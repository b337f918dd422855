package application

import (
	"context"
	"errors"
	"expvar"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/F1veStar3/postboard/internal/domain/entity"
	repo "github.com/F1veStar3/postboard/internal/domain/repository"
	"github.com/F1veStar3/postboard/pkg/helpers"
	"github.com/F1veStar3/postboard/pkg/mailer"
	"github.com/F1veStar3/postboard/pkg/mailer/templates"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateIdentity  = errors.New("user already exists")
)

// authStats is published under /debug/vars as "auth".
var authStats = expvar.NewMap("auth")

// CredentialHasher is implemented by *helpers.PasswordHasher.
type CredentialHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
	VerifyDummy(plain string)
	NeedsRehash(digest string) bool
}

// TokenIssuer is implemented by *helpers.JWTManager.
type TokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

// EmailQueue is implemented by *helpers.RabbitPublisher.
type EmailQueue interface {
	PublishJSON(ctx context.Context, body any) error
}

type AuthService struct {
	Users   repo.UserRepository
	Hasher  CredentialHasher
	Tokens  TokenIssuer
	Emails  EmailQueue // optional
	AppName string
	Logger  *logrus.Logger
}

func NewAuthService(users repo.UserRepository, hasher CredentialHasher, tokens TokenIssuer, emails EmailQueue, appName string, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Users:   users,
		Hasher:  hasher,
		Tokens:  tokens,
		Emails:  emails,
		AppName: appName,
		Logger:  logger,
	}
}

type AuthResult struct {
	User        *entity.User
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Register creates the account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	existing, err := s.Users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		authStats.Add("register_duplicate", 1)
		return nil, ErrDuplicateIdentity
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{Email: email, PasswordHash: hash}
	if err := s.Users.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repo.ErrConflict) {
			authStats.Add("register_duplicate", 1)
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	authStats.Add("register_ok", 1)
	s.enqueueWelcome(ctx, u)
	return res, nil
}

// Login checks the credentials. Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		s.Hasher.VerifyDummy(password)
		authStats.Add("login_failed", 1)
		return nil, ErrInvalidCredentials
	}
	if !s.Hasher.Verify(password, u.PasswordHash) {
		authStats.Add("login_failed", 1)
		return nil, ErrInvalidCredentials
	}

	if s.Hasher.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u, password)
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	authStats.Add("login_ok", 1)
	return res, nil
}

func (s *AuthService) issue(u *entity.User) (*AuthResult, error) {
	token, exp, err := s.Tokens.Issue(u.Email)
	if err != nil {
		helpers.LogError(s.Logger, "issue access token failed", err, logrus.Fields{"user_id": u.ID})
		return nil, err
	}
	return &AuthResult{User: u, AccessToken: token, TokenType: "bearer", ExpiresAt: exp}, nil
}

func (s *AuthService) rehash(ctx context.Context, u *entity.User, password string) {
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		helpers.LogError(s.Logger, "rehash password failed", err, logrus.Fields{"user_id": u.ID})
		return
	}
	if err := s.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		helpers.LogError(s.Logger, "store rehashed password failed", err, logrus.Fields{"user_id": u.ID})
		return
	}
	u.PasswordHash = hash
}

func (s *AuthService) enqueueWelcome(ctx context.Context, u *entity.User) {
	if s.Emails == nil {
		return
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: templates.Welcome,
		Data:     templates.WelcomeData(s.AppName, u.Email),
	}
	if err := s.Emails.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("enqueue welcome email failed")
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/suPer8Hu/chat-history/internal/common"
	"github.com/suPer8Hu/chat-history/internal/events"
	"github.com/suPer8Hu/chat-history/internal/logger"
	"github.com/suPer8Hu/chat-history/internal/users"
)

const (
	MinPasswordLen = 6
	// bcrypt ignores input past 72 bytes
	maxPasswordBytes = 72
)

// Result is returned by every successful sign-in path.
type Result struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

type ServiceConfig struct {
	AdminEmail string
	BcryptCost int
}

type Service struct {
	users    *users.Repo
	tokens   *TokenIssuer
	verifier IdentityVerifier
	events   events.Publisher
	log      *logger.Logger
	cfg      ServiceConfig

	// compared against when the username does not exist
	dummyHash string
}

func NewService(repo *users.Repo, tokens *TokenIssuer, verifier IdentityVerifier, pub events.Publisher, log *logger.Logger, cfg ServiceConfig) (*Service, error) {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = logger.Noop()
	}
	dummy, err := HashPassword("dummy-password-for-timing", cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: dummy hash: %w", err)
	}
	return &Service{
		users:     repo,
		tokens:    tokens,
		verifier:  verifier,
		events:    pub,
		log:       log,
		cfg:       cfg,
		dummyHash: dummy,
	}, nil
}

// FederatedSignIn verifies the assertion, upserts the identity and issues a token.
func (s *Service) FederatedSignIn(ctx context.Context, assertion string) (*Result, error) {
	if s.verifier == nil {
		return nil, fmt.Errorf("%w: federated sign-in not configured", common.ErrUpstreamIdentity)
	}
	profile, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		s.log.Info("Auth service: federated assertion rejected", "error", err)
		return nil, fmt.Errorf("%w: invalid Google token, please try again", common.ErrUpstreamIdentity)
	}

	before, _ := s.users.FindByID(ctx, "google-"+profile.Subject)

	u, err := s.users.UpsertFederatedUser(ctx, profile, s.cfg.AdminEmail)
	if err != nil {
		return nil, err
	}
	if before == nil {
		e := events.New(events.UserCreated, u.ID)
		e.Method = "google"
		events.Emit(ctx, s.events, s.log, e)
	}
	return s.result(u)
}

func (s *Service) Signup(ctx context.Context, username, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(password) < MinPasswordLen {
		return nil, fmt.Errorf("%w: username and a password of at least %d characters are required",
			common.ErrValidation, MinPasswordLen)
	}
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", common.ErrValidation, maxPasswordBytes)
	}

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateLocalUser(ctx, username, hash)
	if err != nil {
		return nil, err
	}
	s.log.Info("Auth service: user signed up", "user_id", u.ID)

	e := events.New(events.UserCreated, u.ID)
	e.Method = "password"
	events.Emit(ctx, s.events, s.log, e)

	return s.result(u)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Result, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		return nil, err
	}

	if u == nil || u.PasswordHash == nil {
		CheckPassword(s.dummyHash, password)
		return nil, common.ErrInvalidCredentials
	}
	if !CheckPassword(*u.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}
	return s.result(u)
}

func (s *Service) result(u *users.User) (*Result, error) {
	token, err := s.tokens.Issue(ClaimsFor(u))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Result{Token: token, User: u}, nil
}

func ClaimsFor(u *users.User) Claims {
	return Claims{UserID: u.ID, Role: string(u.Role), DisplayName: u.DisplayName()}
}

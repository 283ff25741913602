package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chat-history/internal/common"
	"github.com/suPer8Hu/chat-history/internal/db"
	"github.com/suPer8Hu/chat-history/internal/events"
	"github.com/suPer8Hu/chat-history/internal/logger"
	"github.com/suPer8Hu/chat-history/internal/users"
	"gorm.io/gorm"
)

type stubVerifier struct {
	profiles map[string]users.FederatedProfile
}

func (s stubVerifier) Verify(_ context.Context, assertion string) (users.FederatedProfile, error) {
	p, ok := s.profiles[assertion]
	if !ok {
		return users.FederatedProfile{}, errors.New("bad assertion")
	}
	return p, nil
}

type fixture struct {
	svc    *Service
	tokens *TokenIssuer
	repo   *users.Repo
	events *events.Recorder
	gdb    *gorm.DB
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gdb, err := db.Connect(db.DriverSQLite, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb, &users.User{}))
	t.Cleanup(func() { _ = db.Close(gdb) })

	repo := users.NewRepo(gdb)
	tokens := NewTokenIssuer("test-secret", 0)
	rec := &events.Recorder{}
	verifier := stubVerifier{profiles: map[string]users.FederatedProfile{
		"boss-token": {Subject: "boss", Email: "boss@example.com", Name: "Boss"},
		"bob-token":  {Subject: "bob", Email: "bob@example.com", Name: "Bob", Picture: "p1"},
	}}

	svc, err := NewService(repo, tokens, verifier, rec, logger.Noop(), ServiceConfig{
		AdminEmail: "boss@example.com",
		BcryptCost: 4,
	})
	require.NoError(t, err)
	return fixture{svc: svc, tokens: tokens, repo: repo, events: rec, gdb: gdb}
}

func TestSignup_ThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, "  alice ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", *res.User.Username)
	assert.Equal(t, users.RoleUser, res.User.Role)

	claims, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)

	login, err := f.svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	claims, err = f.tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	evs := f.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.UserCreated, evs[0].Type)
	assert.Equal(t, "password", evs[0].Method)
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, tc := range []struct{ user, pass string }{
		{"", "secret1"},
		{"   ", "secret1"},
		{"alice", "12345"},
		{"alice", ""},
	} {
		_, err := f.svc.Signup(ctx, tc.user, tc.pass)
		assert.ErrorIs(t, err, common.ErrValidation, "%q/%q", tc.user, tc.pass)
	}

	n, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSignup_Conflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, "alice", "different-password")
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestLogin_GenericFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, "alice", "secret1")
	require.NoError(t, err)
	name, sub := "carol", "carol-sub"
	require.NoError(t, f.gdb.Create(&users.User{
		ID: "google-carol-sub", Username: &name, GoogleID: &sub, Role: users.RoleUser,
	}).Error)

	_, wrongPass := f.svc.Login(ctx, "alice", "wrong!!")
	_, noUser := f.svc.Login(ctx, "nobody", "secret1")
	_, noHash := f.svc.Login(ctx, "carol", "secret1")

	for _, err := range []error{wrongPass, noUser, noHash} {
		require.ErrorIs(t, err, common.ErrInvalidCredentials)
		assert.Equal(t, wrongPass.Error(), err.Error())
	}
}

func TestFederatedSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.FederatedSignIn(ctx, "bob-token")
	require.NoError(t, err)
	assert.Equal(t, "google-bob", first.User.ID)

	second, err := f.svc.FederatedSignIn(ctx, "bob-token")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	claims, err := f.tokens.Verify(second.Token)
	require.NoError(t, err)
	assert.Equal(t, "Bob", claims.DisplayName)
	assert.Equal(t, "user", claims.Role)

	// only the first sign-in creates the user
	assert.Len(t, f.events.Events(), 1)
}

func TestFederatedSignIn_AdminEmail(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.FederatedSignIn(context.Background(), "boss-token")
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, res.User.Role)

	claims, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
}

func TestFederatedSignIn_InvalidAssertion(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FederatedSignIn(context.Background(), "forged")
	require.ErrorIs(t, err, common.ErrUpstreamIdentity)
}

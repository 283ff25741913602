package users

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chat-history/internal/common"
	"github.com/suPer8Hu/chat-history/internal/db"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect(db.DriverSQLite, filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb, &User{}))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func TestCreateLocalUser(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	u, err := repo.CreateLocalUser(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.Regexp(t, `^user-[0-9A-Z]{26}$`, u.ID)
	assert.Equal(t, RoleUser, u.Role)
	assert.False(t, u.IsFederated())

	_, err = repo.CreateLocalUser(ctx, "alice", "other-hash")
	require.ErrorIs(t, err, ErrUsernameTaken)
	require.ErrorIs(t, err, common.ErrConflict)

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "hash", *found.PasswordHash)
}

func TestFindByUsername_NotFound(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByID(context.Background(), "user-missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpsertFederatedUser_Idempotent(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	p := FederatedProfile{Subject: "1234", Email: "bob@example.com", Name: "Bob", Picture: "http://pic/1"}

	first, err := repo.UpsertFederatedUser(ctx, p, "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, "google-1234", first.ID)
	assert.Equal(t, RoleUser, first.Role)
	assert.True(t, first.IsFederated())

	p.Name = "Bobby"
	second, err := repo.UpsertFederatedUser(ctx, p, "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Bobby", second.DisplayName())

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stored, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bobby", *stored.Name)
}

func TestUpsertFederatedUser_Concurrent(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	p := FederatedProfile{Subject: "race", Email: "race@example.com", Name: "Racer"}

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := repo.UpsertFederatedUser(ctx, p, "")
			errs[i] = err
			if u != nil {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "google-race", ids[i])
	}
	count, err := repo.CountFederated(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestUpsertFederatedUser_AdminBootstrap(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	u, err := repo.UpsertFederatedUser(context.Background(),
		FederatedProfile{Subject: "boss", Email: "Boss@Example.com"}, "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
}

func TestUpsertFederatedUser_EmailOwnedByOtherIdentity(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	_, err := repo.UpsertFederatedUser(ctx, FederatedProfile{Subject: "a", Email: "same@example.com"}, "")
	require.NoError(t, err)

	_, err = repo.UpsertFederatedUser(ctx, FederatedProfile{Subject: "b", Email: "same@example.com"}, "")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpsertFederatedUser_RequiresSubject(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	_, err := repo.UpsertFederatedUser(context.Background(), FederatedProfile{Email: "x@example.com"}, "")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestListAllAndCounts(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepo(gdb)
	ctx := context.Background()

	old, err := repo.CreateLocalUser(ctx, "old", "h")
	require.NoError(t, err)
	require.NoError(t, gdb.Model(&User{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)

	_, err = repo.UpsertFederatedUser(ctx, FederatedProfile{Subject: "g1", Email: "g1@example.com"}, "")
	require.NoError(t, err)

	list, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "google-g1", list[0].ID)
	assert.Equal(t, old.ID, list[1].ID)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	fed, err := repo.CountFederated(ctx)
	require.NoError(t, err)
	local, err := repo.CountLocal(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.EqualValues(t, 1, fed)
	assert.EqualValues(t, 1, local)
}

func TestListAll_Empty(t *testing.T) {
	list, err := NewRepo(openTestDB(t)).ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRoleFor(t *testing.T) {
	assert.Equal(t, RoleAdmin, RoleFor(" ADMIN@x.io ", "admin@x.io"))
	assert.Equal(t, RoleUser, RoleFor("admin@x.io", ""))
	assert.Equal(t, RoleUser, RoleFor("", ""))
	assert.Equal(t, RoleUser, RoleFor("someone@x.io", "admin@x.io"))
}

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/suPer8Hu/chat-history/internal/common"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken = fmt.Errorf("%w: username already taken", common.ErrConflict)
	ErrEmailTaken    = fmt.Errorf("%w: email already registered to another account", common.ErrConflict)
	ErrNotFound      = fmt.Errorf("%w: user not found", common.ErrNotFound)
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateLocalUser(ctx context.Context, username, passwordHash string) (*User, error) {
	ulid, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           "user-" + ulid,
		Username:     &username,
		PasswordHash: &passwordHash,
		Role:         RoleUser,
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// UpsertFederatedUser inserts the identity and, when the insert hits a unique
// index, falls back to the row owning the subject. Concurrent first sign-ins
// of the same subject therefore converge on one row.
func (r *Repo) UpsertFederatedUser(ctx context.Context, p FederatedProfile, adminEmail string) (*User, error) {
	if strings.TrimSpace(p.Subject) == "" {
		return nil, fmt.Errorf("%w: federated subject required", common.ErrValidation)
	}

	u := &User{
		ID:       "google-" + p.Subject,
		GoogleID: &p.Subject,
		Email:    strPtr(strings.ToLower(strings.TrimSpace(p.Email))),
		Name:     strPtr(p.Name),
		Picture:  strPtr(p.Picture),
		Role:     RoleFor(p.Email, adminEmail),
	}

	err := r.db.WithContext(ctx).Create(u).Error
	if err == nil {
		return u, nil
	}
	if !isUniqueViolation(err) {
		return nil, err
	}

	var existing User
	if err := r.db.WithContext(ctx).
		Where("google_id = ?", p.Subject).
		First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// the conflict was on email, held by a different identity
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return r.refreshProfile(ctx, &existing, p)
}

func (r *Repo) refreshProfile(ctx context.Context, u *User, p FederatedProfile) (*User, error) {
	updates := map[string]any{}
	if p.Name != "" && deref(u.Name) != p.Name {
		updates["name"] = p.Name
	}
	if p.Picture != "" && deref(u.Picture) != p.Picture {
		updates["picture"] = p.Picture
	}
	if len(updates) == 0 {
		return u, nil
	}

	if err := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", u.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	if v, ok := updates["name"].(string); ok {
		u.Name = &v
	}
	if v, ok := updates["picture"].(string); ok {
		u.Picture = &v
	}
	return u, nil
}

func (r *Repo) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListAll returns every user, newest first.
func (r *Repo) ListAll(ctx context.Context) ([]User, error) {
	out := make([]User, 0)
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	return count(r.db.WithContext(ctx).Model(&User{}))
}

func (r *Repo) CountFederated(ctx context.Context) (int64, error) {
	return count(r.db.WithContext(ctx).Model(&User{}).Where("google_id IS NOT NULL"))
}

func (r *Repo) CountLocal(ctx context.Context) (int64, error) {
	return count(r.db.WithContext(ctx).Model(&User{}).Where("google_id IS NULL"))
}

func count(q *gorm.DB) (int64, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}

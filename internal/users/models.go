package users

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(96)" json:"id"`
	Username     *string   `gorm:"type:varchar(64);uniqueIndex" json:"username,omitempty"`
	Email        *string   `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`
	PasswordHash *string   `gorm:"type:varchar(255)" json:"-"`
	GoogleID     *string   `gorm:"column:google_id;type:varchar(64);uniqueIndex" json:"-"`
	Name         *string   `gorm:"type:varchar(255)" json:"displayName,omitempty"`
	Picture      *string   `gorm:"type:text" json:"avatarUrl,omitempty"`
	Role         Role      `gorm:"type:varchar(16);not null;default:user;index" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (User) TableName() string { return "users" }

func (u *User) IsFederated() bool { return u.GoogleID != nil }

// DisplayName prefers the provider name and falls back to the username.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	if u.Username != nil {
		return *u.Username
	}
	return ""
}

// FederatedProfile is what an identity provider vouches for.
type FederatedProfile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// RoleFor returns admin iff email matches adminEmail (case-insensitive).
func RoleFor(email, adminEmail string) Role {
	adminEmail = strings.TrimSpace(adminEmail)
	if adminEmail != "" && strings.EqualFold(strings.TrimSpace(email), adminEmail) {
		return RoleAdmin
	}
	return RoleUser
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

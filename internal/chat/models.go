package chat

import (
	"time"

	"github.com/suPer8Hu/chat-history/internal/users"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one immutable entry of a user's log.
type Message struct {
	ID        uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string      `gorm:"type:varchar(96);not null;index:idx_messages_user_ts,priority:1" json:"-"`
	User      *users.User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Role      Role        `gorm:"type:varchar(16);not null" json:"role"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time   `gorm:"not null;index:idx_messages_user_ts,priority:2" json:"timestamp"`
}

func (Message) TableName() string { return "messages" }

// NewMessage is the client supplied part of a Message.
type NewMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

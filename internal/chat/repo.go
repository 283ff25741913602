package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/chat-history/internal/common"
	"gorm.io/gorm"
)

var ErrUnknownUser = fmt.Errorf("%w: user does not exist", common.ErrNotFound)

type Repo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Append writes msgs in one transaction. Every row gets the same timestamp
// and ids follow input order, so (timestamp, id) reproduces the batch.
func (r *Repo) Append(ctx context.Context, userID string, msgs []NewMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	ts := r.now()
	rows := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, Message{
			UserID:    userID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: ts,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil && isForeignKeyViolation(err) {
		return ErrUnknownUser
	}
	return err
}

// ListByUser returns the user's messages oldest first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Message, error) {
	out := make([]Message, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Message{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteByUser removes the user's whole log and reports how many rows went.
func (r *Repo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Message{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "foreign key constraint fails")
}

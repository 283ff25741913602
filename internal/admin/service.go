package admin

import (
	"context"

	"github.com/suPer8Hu/chat-history/internal/chat"
	"github.com/suPer8Hu/chat-history/internal/users"
	"golang.org/x/sync/errgroup"
)

type Stats struct {
	TotalUsers     int64 `json:"totalUsers"`
	TotalMessages  int64 `json:"totalMessages"`
	FederatedUsers int64 `json:"federatedUsers"`
	LocalUsers     int64 `json:"localUsers"`
}

type Dashboard struct {
	Stats Stats        `json:"stats"`
	Users []users.User `json:"users"`
}

type Service struct {
	users    *users.Repo
	messages *chat.Repo
}

func NewService(u *users.Repo, m *chat.Repo) *Service {
	return &Service{users: u, messages: m}
}

// Dashboard runs the aggregates concurrently; the first failure cancels the
// rest and fails the whole call.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.Stats.TotalUsers, err = s.users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Stats.TotalMessages, err = s.messages.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Stats.FederatedUsers, err = s.users.CountFederated(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Stats.LocalUsers, err = s.users.CountLocal(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Users, err = s.users.ListAll(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// UserHistory returns any user's log oldest first; unknown users yield an
// empty list.
func (s *Service) UserHistory(ctx context.Context, userID string) ([]chat.Message, error) {
	return s.messages.ListByUser(ctx, userID)
}

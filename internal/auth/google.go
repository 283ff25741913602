package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/suPer8Hu/chat-history/internal/users"
)

// IdentityVerifier checks an external identity assertion.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (users.FederatedProfile, error)
}

var errAssertion = errors.New("assertion rejected")

const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier validates Google ID tokens through the tokeninfo endpoint.
type GoogleVerifier struct {
	ClientID string
	Endpoint string
	Client   *http.Client
	Now      func() time.Time
}

func NewGoogleVerifier(clientID, endpoint string) *GoogleVerifier {
	if endpoint == "" {
		endpoint = DefaultTokenInfoURL
	}
	return &GoogleVerifier{
		ClientID: clientID,
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
		Now:      time.Now,
	}
}

type tokenInfo struct {
	Aud           string `json:"aud"`
	Iss           string `json:"iss"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Exp           string `json:"exp"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Error         string `json:"error_description,omitempty"`
}

func (g *GoogleVerifier) Verify(ctx context.Context, assertion string) (users.FederatedProfile, error) {
	if assertion == "" {
		return users.FederatedProfile{}, fmt.Errorf("%w: empty token", errAssertion)
	}
	if g.ClientID == "" {
		return users.FederatedProfile{}, errors.New("google: GOOGLE_CLIENT_ID not configured")
	}

	u := g.Endpoint + "?id_token=" + url.QueryEscape(assertion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return users.FederatedProfile{}, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return users.FederatedProfile{}, fmt.Errorf("google: tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return users.FederatedProfile{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return users.FederatedProfile{}, fmt.Errorf("%w: tokeninfo status %d", errAssertion, resp.StatusCode)
	}

	var info tokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return users.FederatedProfile{}, fmt.Errorf("%w: decode tokeninfo: %v", errAssertion, err)
	}
	if err := g.check(info); err != nil {
		return users.FederatedProfile{}, err
	}

	return users.FederatedProfile{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}

func (g *GoogleVerifier) check(info tokenInfo) error {
	if info.Aud != g.ClientID {
		return fmt.Errorf("%w: audience mismatch", errAssertion)
	}
	if info.Iss != "accounts.google.com" && info.Iss != "https://accounts.google.com" {
		return fmt.Errorf("%w: unexpected issuer %q", errAssertion, info.Iss)
	}
	if info.Sub == "" {
		return fmt.Errorf("%w: missing subject", errAssertion)
	}
	if info.Email != "" && info.EmailVerified != "true" {
		return fmt.Errorf("%w: email not verified", errAssertion)
	}
	exp, err := strconv.ParseInt(info.Exp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad exp", errAssertion)
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	if !now().Before(time.Unix(exp, 0)) {
		return fmt.Errorf("%w: token expired", errAssertion)
	}
	return nil
}

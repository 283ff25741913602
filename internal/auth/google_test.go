package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTokenInfo(t *testing.T, payloads map[string]map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := payloads[r.URL.Query().Get("id_token")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid Value"})
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func validInfo(aud string) map[string]string {
	return map[string]string{
		"aud":            aud,
		"iss":            "https://accounts.google.com",
		"sub":            "10769150350006150715113082367",
		"email":          "bob@example.com",
		"email_verified": "true",
		"exp":            strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
		"name":           "Bob",
		"picture":        "https://lh3.googleusercontent.com/a/bob",
	}
}

func TestGoogleVerifier(t *testing.T) {
	wrongAud := validInfo("someone-else")
	badIss := validInfo("client-1")
	badIss["iss"] = "evil.example.com"
	unverified := validInfo("client-1")
	unverified["email_verified"] = "false"
	expired := validInfo("client-1")
	expired["exp"] = strconv.FormatInt(time.Now().Add(-time.Minute).Unix(), 10)

	srv := fakeTokenInfo(t, map[string]map[string]string{
		"good":       validInfo("client-1"),
		"wrong-aud":  wrongAud,
		"bad-iss":    badIss,
		"unverified": unverified,
		"expired":    expired,
	})
	v := NewGoogleVerifier("client-1", srv.URL)

	p, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "10769150350006150715113082367", p.Subject)
	assert.Equal(t, "bob@example.com", p.Email)
	assert.Equal(t, "Bob", p.Name)

	for _, tok := range []string{"", "unknown", "wrong-aud", "bad-iss", "unverified", "expired"} {
		_, err := v.Verify(context.Background(), tok)
		assert.Error(t, err, tok)
	}
}

func TestGoogleVerifier_NoClientID(t *testing.T) {
	_, err := NewGoogleVerifier("", "http://127.0.0.1:0").Verify(context.Background(), "x")
	require.Error(t, err)
}

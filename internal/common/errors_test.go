package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chat-history/internal/logger"
)

func TestError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   int
	}{
		{fmt.Errorf("%w: username required", ErrValidation), http.StatusBadRequest, CodeValidation},
		{fmt.Errorf("%w: username taken", ErrConflict), http.StatusConflict, CodeConflict},
		{ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
		{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{ErrForbidden, http.StatusForbidden, CodeForbidden},
		{fmt.Errorf("%w: bad aud", ErrUpstreamIdentity), http.StatusBadRequest, CodeUpstreamIdentity},
		{fmt.Errorf("%w: ollama: status 500", ErrUpstreamProvider), http.StatusBadGateway, CodeUpstreamProvider},
		{ErrNotFound, http.StatusNotFound, CodeNotFound},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		Error(c, logger.Noop(), tc.err)

		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(tc.code), body["code"])
		assert.NotEmpty(t, body["message"])
	}
}

func TestError_StripsSentinelPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	Error(c, logger.Noop(), fmt.Errorf("%w: username already taken", ErrConflict))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"code":40901,"message":"username already taken"}`, w.Body.String())
}

func TestError_InternalHidesDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Error(c, logger.Noop(), errors.New("sql: database is closed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database is closed")
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestNewULID(t *testing.T) {
	a, err := NewULID()
	require.NoError(t, err)
	b, err := NewULID()
	require.NoError(t, err)

	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

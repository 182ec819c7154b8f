package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

func TestHealthz(t *testing.T) {
	started := time.Now().Add(-90 * time.Second)
	h := Healthz(deps.Deps{
		Logger:    logger.NewNop(),
		StartTime: started,
		Version:   "1.2.3",
		Commit:    "abc123",
		StoreKind: "sqlite",
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body healthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "sqlite", body.Store)
	assert.Equal(t, "1.2.3", body.Build.Version)
	assert.Equal(t, "abc123", body.Build.Commit)
	assert.Empty(t, body.Build.BuildDate)
	assert.GreaterOrEqual(t, body.UptimeSeconds, int64(90))
	assert.WithinDuration(t, started, body.StartedAt, time.Second)
}

func TestQueryParams(t *testing.T) {
	q := url.Values{"n": {"12"}, "bad": {"x"}, "yes": {"true"}, "no": {"0"}}

	n, err := queryInt(q, "n")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 12, *n)

	n, err = queryInt(q, "missing")
	require.NoError(t, err)
	assert.Nil(t, n)

	_, err = queryInt(q, "bad")
	assert.ErrorIs(t, err, domain.ErrValidation)

	b, err := queryBool(q, "yes")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, *b)

	b, err = queryBool(q, "no")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.False(t, *b)

	_, err = queryBool(q, "bad")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

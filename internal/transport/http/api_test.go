package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmpmail/backend/internal/config"
	"tmpmail/backend/internal/domain"
	"tmpmail/backend/internal/middleware"
)

var addressPattern = regexp.MustCompile(`^[a-z]+-[a-z]+\.\d{4}@tmpmail\.dev$`)

func decodeList(t *testing.T, body []byte) listResponse {
	t.Helper()
	var resp listResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestAPI_ListWithoutSession(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api", "", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"emails":[],"turnstileSiteKey":"site-key"}`, rec.Body.String())
}

func TestAPI_IssueListRevoke(t *testing.T) {
	srv := newTestServer(t)

	// 签发
	rec := srv.do(http.MethodPost, "/api", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	address := rec.Body.String()
	assert.Regexp(t, addressPattern, address)
	assert.Len(t, rec.Header().Values("Set-Cookie"), 1)
	cookie := sessionCookie(t, rec)

	// 外部投递写入的邮件
	now := time.Now()
	saveEmail(t, srv.store, "t1", address, "first", now.Add(-3*time.Hour))
	saveEmail(t, srv.store, "t3", address, "third", now.Add(-3*time.Minute))
	saveEmail(t, srv.store, "t2", address, "second", now.Add(-time.Hour))
	saveEmail(t, srv.store, "other", "someone@tmpmail.dev", "not mine", now)

	rec = srv.do(http.MethodGet, "/api", cookie, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeList(t, rec.Body.Bytes())
	assert.Equal(t, "site-key", list.TurnstileSiteKey)
	assert.Equal(t, []domain.EmailView{
		{ID: "t3", Subject: "third", CreatedAt: "3 minutes ago"},
		{ID: "t2", Subject: "second", CreatedAt: "1 hour ago"},
		{ID: "t1", Subject: "first", CreatedAt: "3 hours ago"},
	}, list.Emails)

	// 解绑返回同一地址
	rec = srv.do(http.MethodDelete, "/api", cookie, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, address, rec.Body.String())
	cookie = sessionCookie(t, rec)

	rec = srv.do(http.MethodGet, "/api", cookie, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeList(t, rec.Body.Bytes()).Emails)

	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.IdentitiesIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.IdentitiesRevoked))
}

func TestAPI_IssueTwiceConflicts(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodPost, "/api", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Body.String()
	cookie := sessionCookie(t, rec)

	rec = srv.do(http.MethodPost, "/api", cookie, nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "bad request", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Values("Set-Cookie"))

	// 原有绑定不受影响
	rec = srv.do(http.MethodDelete, "/api", cookie, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, rec.Body.String())
}

func TestAPI_RevokeWithoutBinding(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodDelete, "/api", "", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "bad request", rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.IdentityConflicts.WithLabelValues("revoke")))
}

func TestAPI_StrictStatus(t *testing.T) {
	srv := newTestServer(t, withConfig(func(cfg *config.Config) { cfg.API.StrictStatus = true }))

	rec := srv.do(http.MethodDelete, "/api", "", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "bad request", rec.Body.String())
}

func TestAPI_IssueDifferentSessions(t *testing.T) {
	srv := newTestServer(t)

	first := srv.do(http.MethodPost, "/api", "", nil, nil)
	second := srv.do(http.MethodPost, "/api", "", nil, nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.NotEqual(t, first.Body.String(), second.Body.String())
}

func TestAPI_UnknownMethod(t *testing.T) {
	srv := newTestServer(t)

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			rec := srv.do(method, "/api", "", nil, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "not found", rec.Body.String())
		})
	}
}

func TestAPI_PrefixMatch(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/", "/api/emails", "/apifoo"} {
		t.Run(path, func(t *testing.T) {
			rec := srv.do(http.MethodGet, path, "", nil, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"emails":[],"turnstileSiteKey":"site-key"}`, rec.Body.String())
		})
	}

	rec := srv.do(http.MethodPut, "/apifoo", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", rec.Body.String())
}

func TestAPI_IgnoresInvalidCookie(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodDelete, "/api", "__session=forged.token.value", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_ListQueryError(t *testing.T) {
	srv := newTestServer(t, withRepository(failingRepository{err: errors.New("db down")}))

	rec := srv.do(http.MethodGet, "/api", "", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.EmailListQueries.WithLabelValues("error")))
}

func TestAPI_IssueRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: 0.2, Burst: 1})
	srv := newTestServer(t, withLimiter(limiter))

	rec := srv.do(http.MethodPost, "/api", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodPost, "/api", "", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many requests", rec.Body.String())
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))

	// 查询与解绑不受签发限流影响
	rec = srv.do(http.MethodGet, "/api", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.RateLimitBlocks.WithLabelValues("issue")))
}

func TestAPI_RejectedIssueKeepsQuota(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: 0.001, Burst: 2})
	srv := newTestServer(t, withLimiter(limiter))

	issued := srv.do(http.MethodPost, "/api", "", nil, nil)
	require.Equal(t, http.StatusOK, issued.Code)
	cookie := sessionCookie(t, issued)

	for i := 0; i < 3; i++ {
		rec := srv.do(http.MethodPost, "/api", cookie, nil, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "bad request", rec.Body.String())
	}

	// 剩余的一个令牌仍可用于新会话
	rec := srv.do(http.MethodPost, "/api", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, testutil.ToFloat64(srv.metrics.RateLimitBlocks.WithLabelValues("issue")))
	assert.Equal(t, 3.0, testutil.ToFloat64(srv.metrics.IdentityConflicts.WithLabelValues("issue")))
}

func TestAPI_CORS(t *testing.T) {
	srv := newTestServer(t, withConfig(func(cfg *config.Config) {
		cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	}))

	rec := srv.do(http.MethodGet, "/api", "", http.Header{"Origin": {"https://app.example.com"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

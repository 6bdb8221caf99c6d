package httptransport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tmpmail/backend/internal/config"
	"tmpmail/backend/internal/domain"
	"tmpmail/backend/internal/middleware"
	"tmpmail/backend/internal/monitoring"
	"tmpmail/backend/internal/render"
	"tmpmail/backend/internal/service"
	"tmpmail/backend/internal/session"
	"tmpmail/backend/internal/storage"
	"tmpmail/backend/internal/storage/memory"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const botUA = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Site: config.SiteConfig{
			Domain:           "tmpmail.dev",
			TurnstileSiteKey: "site-key",
		},
		Session: config.SessionConfig{
			Secret:     strings.Repeat("s", 32),
			CookieName: "__session",
			MaxAge:     time.Hour,
		},
	}
}

// testServer 组装路由及其依赖
type testServer struct {
	router  *gin.Engine
	metrics *monitoring.Metrics
	store   *memory.Store
}

type serverOption func(*config.Config, *RouterDependencies)

func withRenderer(r render.Renderer) serverOption {
	return func(_ *config.Config, deps *RouterDependencies) { deps.Renderer = r }
}

func withLimiter(rl *middleware.RateLimiter) serverOption {
	return func(_ *config.Config, deps *RouterDependencies) { deps.IssueLimiter = rl }
}

func withConfig(fn func(cfg *config.Config)) serverOption {
	return func(cfg *config.Config, _ *RouterDependencies) { fn(cfg) }
}

func withRepository(repo storage.EmailRepository) serverOption {
	return func(cfg *config.Config, deps *RouterDependencies) {
		deps.IdentityService = service.NewIdentityService(repo, service.NewAddressGenerator(cfg.MailDomain()))
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	cfg := testConfig()
	store := memory.NewStore()
	metrics := monitoring.NewMetricsWithRegistry(prometheus.NewRegistry())

	renderer, err := render.New()
	require.NoError(t, err)

	deps := RouterDependencies{
		Config:   cfg,
		Renderer: renderer,
		Metrics:  metrics,
		Logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	sessions, err := session.NewStore(cfg.Session)
	require.NoError(t, err)
	deps.Sessions = sessions
	if deps.IdentityService == nil {
		deps.IdentityService = service.NewIdentityService(store, service.NewAddressGenerator(cfg.MailDomain()))
	}

	return &testServer{
		router:  NewRouter(deps),
		metrics: metrics,
		store:   store,
	}
}

// do 发起请求，cookie 为上一次响应的 Set-Cookie 对应的 Cookie 头
func (s *testServer) do(method, target, cookie string, header http.Header, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("User-Agent", browserUA)
	for k, v := range header {
		req.Header[k] = v
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// sessionCookie 从响应中取出会话 Cookie 并转换为请求头格式
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "__session" {
			return c.Name + "=" + c.Value
		}
	}
	t.Fatalf("response has no session cookie: %v", rec.Header().Values("Set-Cookie"))
	return ""
}

func saveEmail(t *testing.T, store *memory.Store, id, to, subject string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, store.SaveEmail(&domain.Email{ID: id, MessageTo: to, Subject: subject, CreatedAt: createdAt}))
}

// fakeRenderer 按顺序写出 chunks 后返回 err
type fakeRenderer struct {
	mu     sync.Mutex
	chunks []string
	err    error
	pages  []render.Page
}

func (f *fakeRenderer) Render(ctx context.Context, w io.Writer, page render.Page) error {
	f.mu.Lock()
	f.pages = append(f.pages, page)
	f.mu.Unlock()

	for _, chunk := range f.chunks {
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeRenderer) lastPage() render.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pages[len(f.pages)-1]
}

// failingRepository 查询总是失败
type failingRepository struct{ err error }

func (r failingRepository) FindByRecipient(context.Context, string) ([]domain.EmailSummary, error) {
	return nil, r.err
}

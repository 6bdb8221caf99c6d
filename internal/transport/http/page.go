package httptransport

import (
	"bytes"
	"crypto/subtle"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mssola/useragent"
	"github.com/x-way/crawlerdetect"
	"go.uber.org/zap"

	"tmpmail/backend/internal/config"
	"tmpmail/backend/internal/domain"
	"tmpmail/backend/internal/locale"
	"tmpmail/backend/internal/middleware"
	"tmpmail/backend/internal/monitoring"
	"tmpmail/backend/internal/render"
	"tmpmail/backend/internal/session"
)

// shellSize 首次提交响应前缓冲的字节数，在此之前出现的渲染错误仍可改为 500
const shellSize = 4 << 10

const readChunkSize = 32 << 10

// PageHandler 处理所有非 /api 请求，输出流式 HTML
type PageHandler struct {
	api      *APIHandler
	gate     *Gate
	renderer render.Renderer
	sessions *session.Store
	site     config.SiteConfig
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewPageHandler 创建页面处理器
func NewPageHandler(
	api *APIHandler,
	renderer render.Renderer,
	sessions *session.Store,
	cfg *config.Config,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *PageHandler {
	return &PageHandler{
		api:      api,
		gate:     NewGate(cfg.Site.Password),
		renderer: renderer,
		sessions: sessions,
		site:     cfg.Site,
		metrics:  metrics,
		logger:   logger,
	}
}

// Serve 页面入口
func (h *PageHandler) Serve(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api") {
		h.api.Dispatch(c)
		return
	}

	lang, rest, ok := locale.FromPath(path)
	if !ok {
		lang = locale.English
	}
	route := resolveRoute(rest)
	sess := h.sessions.Get(c.GetHeader("Cookie"))

	switch c.Request.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodPost:
		if route == render.RouteAuth {
			h.authAction(c, sess, lang)
			return
		}
		h.methodNotAllowed(c)
		return
	default:
		h.methodNotAllowed(c)
		return
	}

	if location, reason := h.gate.Check(path, c.GetHeader("Accept-Language"), sess); location != "" {
		h.metrics.RecordPageRedirect(reason)
		c.Redirect(http.StatusFound, location)
		return
	}

	status := http.StatusOK
	if route == render.RouteNotFound {
		status = http.StatusNotFound
	}

	page := render.Page{
		Route:            route,
		Locale:           lang,
		TurnstileSiteKey: h.site.TurnstileSiteKey,
		PasswordEnabled:  h.site.Password != "",
	}

	if email, bound := sess.Email(); bound {
		page.Email = email
		if route == render.RouteHome {
			emails, err := h.inbox(c, sess)
			if err != nil {
				InternalError(c)
				return
			}
			page.Emails = emails
		}
	}

	h.stream(c, status, page)
}

// inbox 查询首页要展示的邮件列表
func (h *PageHandler) inbox(c *gin.Context, sess *session.Session) ([]domain.EmailView, error) {
	start := time.Now()
	emails, err := h.api.identities.List(c.Request.Context(), sess)
	h.metrics.RecordEmailList(time.Since(start), err)
	if err != nil {
		h.logger.Error("list emails for page failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		return nil, err
	}
	return emails, nil
}

// resolveRoute 将去掉语言段后的路径映射到页面路由
func resolveRoute(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	switch path {
	case "/", "":
		return render.RouteHome
	case "/auth":
		return render.RouteAuth
	default:
		return render.RouteNotFound
	}
}

// authAction 校验提交的密码，成功后写入会话并跳回首页
func (h *PageHandler) authAction(c *gin.Context, sess *session.Session, lang string) {
	home := locale.Prefix(lang, "/")
	if h.site.Password == "" {
		c.Redirect(http.StatusFound, home)
		return
	}

	password := c.PostForm("password")
	if subtle.ConstantTimeCompare([]byte(password), []byte(h.site.Password)) != 1 {
		h.logger.Info("password rejected", zap.String("ip", c.ClientIP()))
		h.stream(c, http.StatusUnauthorized, render.Page{
			Route:           render.RouteAuth,
			Locale:          lang,
			PasswordEnabled: true,
			Error:           "auth.invalid",
		})
		return
	}

	sess.SetPassword(password)
	setCookie, err := h.sessions.Commit(sess)
	if err != nil {
		h.logger.Error("commit session failed", zap.Error(err))
		InternalError(c)
		return
	}
	c.Writer.Header().Add("Set-Cookie", setCookie)
	c.Redirect(http.StatusFound, home)
}

func (h *PageHandler) methodNotAllowed(c *gin.Context) {
	c.Header("Allow", "GET, HEAD")
	PlainText(c, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}

// stream 渲染页面并边渲染边写出
//
// 爬虫请求等待渲染完成后一次性写出。渲染错误若发生在响应提交之前，状态码改为 500，
// 已渲染的部分内容照常写出；提交之后的错误只记录日志。
func (h *PageHandler) stream(c *gin.Context, status int, page render.Page) {
	bot := isBot(c.Request.UserAgent())
	c.Header("Content-Type", contentTypeHTML)

	pr, pw := io.Pipe()
	defer pr.Close()

	ctx := c.Request.Context()
	go func() {
		pw.CloseWithError(h.renderer.Render(ctx, pw, page))
	}()

	var (
		pending   bytes.Buffer
		committed bool
		renderErr error
		chunk     = make([]byte, readChunkSize)
	)

	for {
		n, err := pr.Read(chunk)
		if n > 0 {
			if committed {
				if _, werr := c.Writer.Write(chunk[:n]); werr != nil {
					// 客户端已断开，关闭管道让渲染结束
					return
				}
				c.Writer.Flush()
			} else {
				pending.Write(chunk[:n])
				if !bot && pending.Len() >= shellSize {
					c.Status(status)
					if _, werr := c.Writer.Write(pending.Bytes()); werr != nil {
						return
					}
					c.Writer.Flush()
					pending.Reset()
					committed = true
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			renderErr = err
			break
		}
	}

	if renderErr != nil {
		h.logger.Error("render page failed",
			zap.String("route", page.Route),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Bool("committed", committed),
			zap.Error(renderErr),
		)
		if !committed {
			status = http.StatusInternalServerError
		}
	}
	h.metrics.RecordPageRender(page.Route, bot, renderErr)

	if committed {
		return
	}
	c.Status(status)
	c.Writer.WriteHeaderNow()
	if pending.Len() > 0 {
		_, _ = c.Writer.Write(pending.Bytes())
	}
}

// isBot 判断是否为爬虫或脚本客户端，这类请求拿到的是完整文档
//
// crawlerdetect 覆盖常见爬虫、无头浏览器和 HTTP 库，useragent 补充其自身识别的爬虫。
func isBot(ua string) bool {
	return crawlerdetect.IsCrawler(ua) || useragent.New(ua).Bot()
}

package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tmpmail/backend/internal/config"
	"tmpmail/backend/internal/domain"
	"tmpmail/backend/internal/middleware"
	"tmpmail/backend/internal/monitoring"
	"tmpmail/backend/internal/service"
	"tmpmail/backend/internal/session"
)

// listResponse GET /api 的响应体
type listResponse struct {
	Emails           []domain.EmailView `json:"emails"`
	TurnstileSiteKey string             `json:"turnstileSiteKey"`
}

// APIHandler 处理 /api 前缀下的请求，按 HTTP 方法分派
type APIHandler struct {
	identities   *service.IdentityService
	sessions     *session.Store
	site         config.SiteConfig
	strictStatus bool
	limiter      *middleware.RateLimiter
	metrics      *monitoring.Metrics
	logger       *zap.Logger
}

// NewAPIHandler 创建 API 处理器，limiter 为 nil 时不限流
func NewAPIHandler(
	identities *service.IdentityService,
	sessions *session.Store,
	cfg *config.Config,
	limiter *middleware.RateLimiter,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		identities:   identities,
		sessions:     sessions,
		site:         cfg.Site,
		strictStatus: cfg.API.StrictStatus,
		limiter:      limiter,
		metrics:      metrics,
		logger:       logger,
	}
}

// Dispatch GET 查询邮件，POST 签发地址，DELETE 解绑地址，其余方法 404
func (h *APIHandler) Dispatch(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet:
		h.listEmails(c)
	case http.MethodPost:
		h.issueIdentity(c)
	case http.MethodDelete:
		h.revokeIdentity(c)
	default:
		NotFound(c)
	}
}

func (h *APIHandler) listEmails(c *gin.Context) {
	sess := h.sessions.Get(c.GetHeader("Cookie"))

	start := time.Now()
	emails, err := h.identities.List(c.Request.Context(), sess)
	h.metrics.RecordEmailList(time.Since(start), err)
	if err != nil {
		h.logger.Error("list emails failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		InternalError(c)
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Emails:           emails,
		TurnstileSiteKey: h.site.TurnstileSiteKey,
	})
}

func (h *APIHandler) issueIdentity(c *gin.Context) {
	sess := h.sessions.Get(c.GetHeader("Cookie"))

	// 已绑定的会话直接拒绝，不消耗该 IP 的签发配额
	if _, bound := sess.Email(); bound {
		h.preconditionFailed(c, "issue", service.ErrAlreadyBound)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		h.metrics.RecordRateLimitBlock("issue")
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfter()))
		TooManyRequests(c)
		return
	}

	address, err := h.identities.Issue(sess)
	if err != nil {
		h.preconditionFailed(c, "issue", err)
		return
	}

	if !h.commit(c, sess) {
		return
	}
	h.metrics.RecordIdentityIssued()
	PlainText(c, http.StatusOK, address)
}

func (h *APIHandler) revokeIdentity(c *gin.Context) {
	sess := h.sessions.Get(c.GetHeader("Cookie"))
	address, err := h.identities.Revoke(sess)
	if err != nil {
		h.preconditionFailed(c, "revoke", err)
		return
	}

	if !h.commit(c, sess) {
		return
	}
	h.metrics.RecordIdentityRevoked()
	PlainText(c, http.StatusOK, address)
}

func (h *APIHandler) preconditionFailed(c *gin.Context, operation string, err error) {
	if !isPreconditionError(err) {
		h.logger.Error("identity operation failed", zap.String("operation", operation), zap.Error(err))
		InternalError(c)
		return
	}

	h.metrics.RecordIdentityConflict(operation)
	PlainText(c, preconditionStatus(h.strictStatus), MsgBadRequest)
}

// commit 写回会话 Cookie，失败时已写出 500
func (h *APIHandler) commit(c *gin.Context, sess *session.Session) bool {
	setCookie, err := h.sessions.Commit(sess)
	if err != nil {
		h.logger.Error("commit session failed", zap.Error(err))
		InternalError(c)
		return false
	}
	c.Writer.Header().Add("Set-Cookie", setCookie)
	return true
}

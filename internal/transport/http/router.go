package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tmpmail/backend/internal/config"
	"tmpmail/backend/internal/health"
	"tmpmail/backend/internal/middleware"
	"tmpmail/backend/internal/monitoring"
	"tmpmail/backend/internal/render"
	"tmpmail/backend/internal/service"
	"tmpmail/backend/internal/session"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config          *config.Config
	IdentityService *service.IdentityService
	Sessions        *session.Store
	Renderer        render.Renderer
	IssueLimiter    *middleware.RateLimiter // 为 nil 时不限流
	Metrics         *monitoring.Metrics
	Health          *health.HealthChecker // 为 nil 时不注册 /healthz
	Logger          *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.HTTPMetrics(deps.Metrics))
	router.Use(middleware.SecurityHeaders())

	apiHandler := NewAPIHandler(deps.IdentityService, deps.Sessions, deps.Config, deps.IssueLimiter, deps.Metrics, deps.Logger)
	pageHandler := NewPageHandler(apiHandler, deps.Renderer, deps.Sessions, deps.Config, deps.Metrics, deps.Logger)

	// 基础设施路由
	if deps.Health != nil {
		router.GET("/healthz/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/healthz/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	router.StaticFileFS(render.ScriptPath, "app.js", http.FS(render.Assets()))

	api := router.Group("/api")
	if cors := newCORS(deps.Config.CORS); cors != nil {
		api.Use(cors)
	}
	{
		api.Any("", apiHandler.Dispatch)
		api.Any("/*rest", apiHandler.Dispatch)
	}

	// 其余路径全部交给页面处理
	router.NoRoute(pageHandler.Serve)

	return router
}

// newCORS 未配置来源时返回 nil，/api 只接受同源请求
func newCORS(cfg config.CORSConfig) gin.HandlerFunc {
	if len(cfg.AllowedOrigins) == 0 {
		return nil
	}

	corsConfig := gincors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			corsConfig.AllowCredentials = false
			break
		}
	}
	return gincors.New(corsConfig)
}

package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 地址指标
	IdentitiesIssued  prometheus.Counter
	IdentitiesRevoked prometheus.Counter
	IdentityConflicts *prometheus.CounterVec

	// 邮件列表指标
	EmailListQueries  *prometheus.CounterVec
	EmailListDuration prometheus.Histogram

	// 页面指标
	PageRenders      *prometheus.CounterVec
	PageRenderErrors prometheus.Counter
	PageRedirects    *prometheus.CounterVec

	// 错误指标
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec

	// 系统指标
	DatabaseConnections prometheus.Gauge
}

// NewMetrics 创建监控指标并注册到新的 Registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMetricsWithRegistry(reg)
}

// NewMetricsWithRegistry 在指定 Registry 上创建指标
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	started := time.Now()

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tmpmail_uptime_seconds",
			Help: "Seconds since the process started",
		},
		func() float64 { return time.Since(started).Seconds() },
	)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmpmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tmpmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tmpmail_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),

		IdentitiesIssued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tmpmail_identities_issued_total",
				Help: "Total number of addresses bound to a session",
			},
		),

		IdentitiesRevoked: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tmpmail_identities_revoked_total",
				Help: "Total number of addresses unbound from a session",
			},
		),

		IdentityConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmpmail_identity_precondition_failures_total",
				Help: "Issue or revoke requests rejected by the session state",
			},
			[]string{"operation"},
		),

		EmailListQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmpmail_email_list_queries_total",
				Help: "Email list queries by result",
			},
			[]string{"result"},
		),

		EmailListDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tmpmail_email_list_duration_seconds",
				Help:    "Email list query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		PageRenders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmpmail_page_renders_total",
				Help: "Rendered pages by route and client kind",
			},
			[]string{"route", "client"},
		),

		PageRenderErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tmpmail_page_render_errors_total",
				Help: "Page renders that failed",
			},
		),

		PageRedirects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmpmail_page_redirects_total",
				Help: "Redirects issued by the page gate",
			},
			[]string{"reason"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tmpmail_panics_total",
				Help: "Total number of recovered panics",
			},
		),

		RateLimitBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmpmail_rate_limit_blocks_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"limit_type"},
		),

		DatabaseConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tmpmail_database_connections",
				Help: "Connections currently held by the database pool",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordIdentityIssued 记录地址签发
func (m *Metrics) RecordIdentityIssued() {
	m.IdentitiesIssued.Inc()
}

// RecordIdentityRevoked 记录地址解绑
func (m *Metrics) RecordIdentityRevoked() {
	m.IdentitiesRevoked.Inc()
}

// RecordIdentityConflict 记录前置条件失败
func (m *Metrics) RecordIdentityConflict(operation string) {
	m.IdentityConflicts.WithLabelValues(operation).Inc()
}

// RecordEmailList 记录邮件列表查询
func (m *Metrics) RecordEmailList(duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EmailListQueries.WithLabelValues(result).Inc()
	m.EmailListDuration.Observe(duration.Seconds())
}

// RecordPageRender 记录页面渲染
func (m *Metrics) RecordPageRender(route string, bot bool, err error) {
	client := "browser"
	if bot {
		client = "bot"
	}
	m.PageRenders.WithLabelValues(route, client).Inc()
	if err != nil {
		m.PageRenderErrors.Inc()
	}
}

// RecordPageRedirect 记录页面跳转
func (m *Metrics) RecordPageRedirect(reason string) {
	m.PageRedirects.WithLabelValues(reason).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数
func (m *Metrics) UpdateDatabaseConnections(count int) {
	m.DatabaseConnections.Set(float64(count))
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tmpmail/backend/internal/monitoring"
)

// pageEndpoint 未匹配路由（页面）统一使用的指标标签
const pageEndpoint = "page"

// HTTPMetrics HTTP 指标中间件
func HTTPMetrics(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = pageEndpoint
		}

		metrics.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			int64(c.Writer.Size()),
		)
	}
}

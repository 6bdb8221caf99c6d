package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// /api 的错误响应体均为纯文本
const (
	MsgBadRequest       = "bad request"
	MsgNotFound         = "not found"
	MsgTooManyRequests  = "too many requests"
	MsgInternalError    = "internal server error"
	MsgMethodNotAllowed = "method not allowed"
)

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeHTML = "text/html"
)

// PlainText 纯文本响应
func PlainText(c *gin.Context, status int, body string) {
	c.Data(status, contentTypeText, []byte(body))
}

// NotFound 未知方法或路径（404）
func NotFound(c *gin.Context) {
	PlainText(c, http.StatusNotFound, MsgNotFound)
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context) {
	PlainText(c, http.StatusInternalServerError, MsgInternalError)
}

// TooManyRequests 触发限流（429）
func TooManyRequests(c *gin.Context) {
	PlainText(c, http.StatusTooManyRequests, MsgTooManyRequests)
}

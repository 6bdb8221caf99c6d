package httptransport

import (
	"errors"
	"net/http"

	"tmpmail/backend/internal/service"
)

// preconditionStatus 会话状态不满足签发/解绑条件时的状态码
//
// strict 为 true 时沿用旧版本的 500。
func preconditionStatus(strict bool) int {
	if strict {
		return http.StatusInternalServerError
	}
	return http.StatusConflict
}

// isPreconditionError 判断是否为会话绑定状态导致的失败
func isPreconditionError(err error) bool {
	return errors.Is(err, service.ErrAlreadyBound) || errors.Is(err, service.ErrNotBound)
}

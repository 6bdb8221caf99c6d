package httptransport

import (
	"crypto/subtle"
	"strings"

	"tmpmail/backend/internal/locale"
	"tmpmail/backend/internal/session"
)

// 跳转原因，用于日志与指标
const (
	redirectPassword = "password"
	redirectLocale   = "locale"
)

// Gate 页面渲染前的检查：先校验共享密码，再按 Accept-Language 跳转语言路径
type Gate struct {
	password string
}

// NewGate 创建页面检查，password 为空表示不启用密码
func NewGate(password string) *Gate {
	return &Gate{password: password}
}

// Check 返回跳转地址及原因，location 为空表示继续渲染
func (g *Gate) Check(path, acceptLanguage string, sess *session.Session) (location, reason string) {
	if g.password != "" &&
		subtle.ConstantTimeCompare([]byte(sess.Password()), []byte(g.password)) != 1 &&
		!strings.Contains(path, "auth") {
		return "/auth", redirectPassword
	}

	if _, _, ok := locale.FromPath(path); ok {
		return "", ""
	}

	// 只有简体中文会跳转，其余语言（包括 en）按默认语言渲染
	if locale.Negotiate(acceptLanguage) == locale.SimplifiedChinese {
		return "/" + locale.SimplifiedChinese + path, redirectLocale
	}
	return "", ""
}

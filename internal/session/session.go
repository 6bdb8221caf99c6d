package session

import (
	"errors"
	"net/http"
	"time"

	"tmpmail/backend/internal/config"
)

// Data 是会话中保存的键值，空字符串表示未设置
type Data struct {
	Email    string
	Password string
}

// Session 是单个请求内可修改的会话，只有 Commit 之后才会写回 Cookie。
type Session struct {
	data Data
}

// Email 返回当前绑定的邮箱地址
func (s *Session) Email() (string, bool) {
	return s.data.Email, s.data.Email != ""
}

// SetEmail 绑定邮箱地址
func (s *Session) SetEmail(email string) {
	s.data.Email = email
}

// UnsetEmail 解除绑定并返回原地址
func (s *Session) UnsetEmail() string {
	email := s.data.Email
	s.data.Email = ""
	return email
}

// Password 返回会话中保存的访问密码
func (s *Session) Password() string {
	return s.data.Password
}

// SetPassword 保存访问密码
func (s *Session) SetPassword(password string) {
	s.data.Password = password
}

// Store 基于 Cookie 的会话存储，Cookie 本身就是存储。
type Store struct {
	codec  *Codec
	name   string
	maxAge time.Duration
	secure bool
}

// NewStore 根据会话配置创建存储
func NewStore(cfg config.SessionConfig) (*Store, error) {
	if cfg.CookieName == "" {
		return nil, errors.New("session cookie name is required")
	}

	codec, err := NewCodec(cfg.Secret, cfg.MaxAge)
	if err != nil {
		return nil, err
	}

	return &Store{
		codec:  codec,
		name:   cfg.CookieName,
		maxAge: cfg.MaxAge,
		secure: cfg.Secure,
	}, nil
}

// Get 从请求的 Cookie 头恢复会话，Cookie 缺失或无效时返回空会话
func (s *Store) Get(cookieHeader string) *Session {
	if cookieHeader == "" {
		return &Session{}
	}

	// http.Request.Cookie 会跳过格式错误的条目，其他 Cookie 不影响会话读取
	req := &http.Request{Header: http.Header{"Cookie": {cookieHeader}}}
	c, err := req.Cookie(s.name)
	if err != nil {
		return &Session{}
	}
	return &Session{data: s.codec.Decode(c.Value)}
}

// Commit 序列化会话，返回 Set-Cookie 头的值
func (s *Store) Commit(sess *Session) (string, error) {
	value, err := s.codec.Encode(sess.data)
	if err != nil {
		return "", err
	}

	cookie := &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.maxAge / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	return cookie.String(), nil
}

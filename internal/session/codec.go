package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "tmpmail session cookie v1"

// claims 是 Cookie 中携带的会话数据
type claims struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	jwt.RegisteredClaims
}

// Codec 负责会话数据与 Cookie 值之间的编解码，不涉及 HTTP。
type Codec struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCodec 从密钥派生 HMAC 签名 key
func NewCodec(secret string, maxAge time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}

	return &Codec{key: key, maxAge: maxAge, now: time.Now}, nil
}

// Encode 将会话数据签名为 Cookie 值
func (c *Codec) Encode(data Data) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:    data.Email,
		Password: data.Password,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Decode 校验并解析 Cookie 值
//
// 签名无效、过期或格式错误时返回空会话，与没有 Cookie 的请求等价。
func (c *Codec) Decode(value string) Data {
	if value == "" {
		return Data{}
	}

	parsed := &claims{}
	_, err := jwt.ParseWithClaims(value, parsed, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Data{}
	}

	return Data{Email: parsed.Email, Password: parsed.Password}
}

package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrEmailTooLong     = errors.New("email address too long")
	ErrLocalPartTooLong = errors.New("local part too long (max 64 chars)")
	ErrInvalidLocalPart = errors.New("invalid local part format")
	ErrDomainTooLong    = errors.New("domain too long (max 253 chars)")
	ErrInvalidDomain    = errors.New("invalid domain format")
)

// RFC 5322 邮箱地址长度限制
const (
	MaxEmailLength     = 254
	MaxLocalPartLength = 64
	MaxDomainLength    = 253
)

var (
	localPartRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*[a-z0-9]$|^[a-z0-9]$`)

	// 域名验证（支持子域名，至少两级）
	domainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)
)

// ValidateDomain 验证生成地址使用的域名，只接受小写
func ValidateDomain(domain string) error {
	if len(domain) > MaxDomainLength {
		return ErrDomainTooLong
	}
	if !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}
	return nil
}

// ValidateAddress 验证邮箱地址格式
func ValidateAddress(address string) error {
	if len(address) > MaxEmailLength {
		return ErrEmailTooLong
	}

	localPart, domain, ok := strings.Cut(address, "@")
	if !ok || strings.Contains(domain, "@") {
		return ErrInvalidEmail
	}
	if len(localPart) > MaxLocalPartLength {
		return ErrLocalPartTooLong
	}
	if !localPartRegex.MatchString(localPart) {
		return ErrInvalidLocalPart
	}
	if err := ValidateDomain(domain); err != nil {
		return err
	}

	if _, err := mail.ParseAddress(address); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

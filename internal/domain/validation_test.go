package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		domain string
		want   error
	}{
		{"tmpmail.dev", nil},
		{"mail.example.co.uk", nil},
		{"a-b.example.com", nil},
		{"localhost", ErrInvalidDomain},
		{"-bad.com", ErrInvalidDomain},
		{"bad-.com", ErrInvalidDomain},
		{"double..dot.com", ErrInvalidDomain},
		{"Upper.com", ErrInvalidDomain},
		{"space .com", ErrInvalidDomain},
		{strings.Repeat("a.", 127) + "com", ErrDomainTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateDomain(tt.domain))
		})
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    error
	}{
		{"生成格式", "brave-otter.0042@tmpmail.dev", nil},
		{"缺少 @", "brave-otter.0042", ErrInvalidEmail},
		{"多个 @", "a@b@tmpmail.dev", ErrInvalidEmail},
		{"本地部分为空", "@tmpmail.dev", ErrInvalidLocalPart},
		{"本地部分以点结尾", "otter.@tmpmail.dev", ErrInvalidLocalPart},
		{"本地部分过长", strings.Repeat("a", 65) + "@tmpmail.dev", ErrLocalPartTooLong},
		{"域名非法", "otter@tmpmail", ErrInvalidDomain},
		{"整体过长", strings.Repeat("a", 60) + "@" + strings.Repeat("b", 200) + ".dev", ErrEmailTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateAddress(tt.address))
		})
	}
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"

	"tmpmail/backend/internal/domain"
	"tmpmail/backend/internal/session"
	"tmpmail/backend/internal/storage"
)

var (
	// ErrAlreadyBound 会话已经绑定了邮箱
	ErrAlreadyBound = errors.New("session already has an email")
	// ErrNotBound 会话没有绑定邮箱
	ErrNotBound = errors.New("session has no email")
)

// IdentityService 负责会话与邮箱地址的绑定、解绑以及邮件列表查询。
//
// 签发地址不会写数据库，地址只决定外部投递进程写入的邮件归属。
type IdentityService struct {
	emails    storage.EmailRepository
	addresses *AddressGenerator
	now       func() time.Time
}

// NewIdentityService 创建身份服务
func NewIdentityService(emails storage.EmailRepository, addresses *AddressGenerator) *IdentityService {
	return &IdentityService{
		emails:    emails,
		addresses: addresses,
		now:       time.Now,
	}
}

// Issue 为未绑定的会话生成并绑定新地址
func (s *IdentityService) Issue(sess *session.Session) (string, error) {
	if _, ok := sess.Email(); ok {
		return "", ErrAlreadyBound
	}

	address := s.addresses.Generate()
	sess.SetEmail(address)
	return address, nil
}

// Revoke 解除会话绑定的地址并返回该地址
func (s *IdentityService) Revoke(sess *session.Session) (string, error) {
	if _, ok := sess.Email(); !ok {
		return "", ErrNotBound
	}
	return sess.UnsetEmail(), nil
}

// List 查询会话当前地址收到的邮件
//
// 未绑定地址时按空收件人查询，结果通常为空列表。
// CreatedAt 在响应时转换为相对时间，不会写回存储。
func (s *IdentityService) List(ctx context.Context, sess *session.Session) ([]domain.EmailView, error) {
	to, _ := sess.Email()

	summaries, err := s.emails.FindByRecipient(ctx, to)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]domain.EmailView, 0, len(summaries))
	for _, e := range summaries {
		views = append(views, domain.EmailView{
			ID:        e.ID,
			Subject:   e.Subject,
			CreatedAt: humanize.RelTime(e.CreatedAt, now, "ago", "from now"),
		})
	}
	return views, nil
}

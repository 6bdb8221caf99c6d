package storage

import (
	"context"

	"tmpmail/backend/internal/domain"
)

// EmailRepository 定义邮件读取操作。
//
// FindByRecipient 返回收件人等于 to 的全部邮件，按 CreatedAt 倒序，
// 只包含 {ID, Subject, CreatedAt}。没有匹配时返回空切片而不是 nil。
type EmailRepository interface {
	FindByRecipient(ctx context.Context, to string) ([]domain.EmailSummary, error)
}

// Store 是具体存储后端需要实现的完整接口。
type Store interface {
	EmailRepository
	Ping(ctx context.Context) error
	Close() error
}

// ConnectionCounter 可报告连接池大小的存储后端
type ConnectionCounter interface {
	OpenConnections() int
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tmpmail/backend/internal/domain"
)

const findByRecipientSQL = `SELECT id, subject, created_at FROM emails WHERE message_to = $1 ORDER BY created_at DESC`

// Store 基于 pgx 连接池的邮件存储实现
type Store struct {
	client *Client
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// FindByRecipient 按收件人查询邮件列表
func (s *Store) FindByRecipient(ctx context.Context, to string) ([]domain.EmailSummary, error) {
	rows, err := s.client.Pool().Query(ctx, findByRecipientSQL, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}

	emails, err := pgx.CollectRows(rows, scanSummary)
	if err != nil {
		return nil, fmt.Errorf("failed to scan emails: %w", err)
	}
	if emails == nil {
		emails = []domain.EmailSummary{}
	}
	return emails, nil
}

func scanSummary(row pgx.CollectableRow) (domain.EmailSummary, error) {
	var e domain.EmailSummary
	err := row.Scan(&e.ID, &e.Subject, &e.CreatedAt)
	return e, err
}

// Ping 检查数据库健康状态
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close 关闭连接池
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

// OpenConnections 连接池当前持有的连接数
func (s *Store) OpenConnections() int {
	return int(s.client.Stats().TotalConns())
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tmpmail/backend/internal/domain"
)

// Store 使用内存保存邮件数据，主要用于开发验证和测试。
//
// 生产环境中邮件由外部投递进程写入数据库；这里的 SaveEmail 扮演投递进程的角色。
type Store struct {
	mu          sync.RWMutex
	emails      map[string]*domain.Email // emailID -> email
	byRecipient map[string][]string      // messageTo -> emailIDs
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		emails:      make(map[string]*domain.Email),
		byRecipient: make(map[string][]string),
	}
}

// SaveEmail 写入一封邮件，ID 为空时自动生成。
func (s *Store) SaveEmail(email *domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if email.ID == "" {
		email.ID = uuid.NewString()
	}

	copied := *email
	if existing, ok := s.emails[copied.ID]; ok {
		if existing.MessageTo == copied.MessageTo {
			s.emails[copied.ID] = &copied
			return nil
		}
		s.removeFromRecipientLocked(existing.MessageTo, existing.ID)
	}
	s.byRecipient[copied.MessageTo] = append(s.byRecipient[copied.MessageTo], copied.ID)
	s.emails[copied.ID] = &copied
	return nil
}

func (s *Store) removeFromRecipientLocked(to, id string) {
	ids := s.byRecipient[to]
	for i, existing := range ids {
		if existing == id {
			s.byRecipient[to] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byRecipient[to]) == 0 {
		delete(s.byRecipient, to)
	}
}

// FindByRecipient 按收件人查询邮件，按创建时间倒序。
func (s *Store) FindByRecipient(ctx context.Context, to string) ([]domain.EmailSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRecipient[to]
	result := make([]domain.EmailSummary, 0, len(ids))
	for _, id := range ids {
		if email, ok := s.emails[id]; ok {
			result = append(result, email.Summary())
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// Count 返回邮件总数
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.emails)
}

// Ping 内存存储始终可用
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close 内存存储无需释放资源
func (s *Store) Close() error {
	return nil
}

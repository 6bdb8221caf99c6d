package hybrid

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"tmpmail/backend/internal/domain"
	"tmpmail/backend/internal/storage"
	"tmpmail/backend/internal/storage/redis"
)

// Store 混合存储实现，数据库为准，Redis 缓存邮件列表
//
// 缓存不可用时直接读取数据库，不影响请求结果。
type Store struct {
	db    storage.Store
	cache *redis.Cache
	log   *zap.Logger
}

// NewStore 创建混合存储实例
func NewStore(db storage.Store, cache *redis.Cache, log *zap.Logger) *Store {
	return &Store{db: db, cache: cache, log: log}
}

// FindByRecipient 先查缓存，未命中时查询数据库并回填
func (s *Store) FindByRecipient(ctx context.Context, to string) ([]domain.EmailSummary, error) {
	emails, err := s.cache.GetEmailList(ctx, to)
	if err == nil {
		return emails, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		s.log.Warn("email list cache read failed", zap.String("to", to), zap.Error(err))
	}

	emails, err = s.db.FindByRecipient(ctx, to)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetEmailList(ctx, to, emails); err != nil {
		s.log.Warn("email list cache write failed", zap.String("to", to), zap.Error(err))
	}
	return emails, nil
}

// Ping 检查底层数据库
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close 关闭底层数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// OpenConnections 返回底层数据库的连接数，不支持时为 0
func (s *Store) OpenConnections() int {
	if c, ok := s.db.(storage.ConnectionCounter); ok {
		return c.OpenConnections()
	}
	return 0
}

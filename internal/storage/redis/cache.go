package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"tmpmail/backend/internal/domain"
)

// ErrCacheMiss 缓存中没有对应数据
var ErrCacheMiss = errors.New("cache miss")

// Cache 缓存按收件人查询的邮件列表
type Cache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewCache 创建邮件列表缓存
func NewCache(rdb *goredis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func emailListKey(to string) string {
	return fmt.Sprintf("emails:to:%s", to)
}

// GetEmailList 获取缓存的邮件列表
func (c *Cache) GetEmailList(ctx context.Context, to string) ([]domain.EmailSummary, error) {
	data, err := c.rdb.Get(ctx, emailListKey(to)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var emails []domain.EmailSummary
	if err := json.Unmarshal(data, &emails); err != nil {
		return nil, err
	}
	if emails == nil {
		emails = []domain.EmailSummary{}
	}
	return emails, nil
}

// SetEmailList 缓存邮件列表
func (c *Cache) SetEmailList(ctx context.Context, to string, emails []domain.EmailSummary) error {
	data, err := json.Marshal(emails)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, emailListKey(to), data, c.ttl).Err()
}

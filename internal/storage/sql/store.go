package sql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tmpmail/backend/internal/config"
	"tmpmail/backend/internal/domain"
	pgstore "tmpmail/backend/internal/storage/postgres"
)

// Store SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）
type Store struct {
	db     *sql.DB
	gormDB *gorm.DB
}

// NewStore 根据配置打开数据库连接并创建存储
//
// cfg.Type 为 "mysql" 或 "postgres"，分别使用 go-sql-driver/mysql 与 lib/pq 驱动。
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	if cfg.Type != "mysql" && cfg.Type != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", cfg.Type)
	}

	if migrationFor(cfg) == migrateVersioned {
		if err := pgstore.MigrateUp(cfg.DSN); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(cfg.Type, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var dialector gorm.Dialector
	if cfg.Type == "mysql" {
		dialector = mysql.New(mysql.Config{Conn: db})
	} else {
		dialector = postgres.New(postgres.Config{Conn: db})
	}

	store, err := newStore(db, dialector)
	if err != nil {
		db.Close()
		return nil, err
	}

	if migrationFor(cfg) == migrateModel {
		if err := store.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return store, nil
}

type migration int

const (
	migrateNone migration = iota
	migrateModel
	migrateVersioned
)

// migrationFor 选择启动时的建表方式
//
// PostgreSQL 与 pgx 后端共用内嵌的版本化迁移，避免 AutoMigrate 改写迁移建出的列和索引；
// MySQL 没有版本化迁移，按模型建表。DSN 需为 postgres:// 格式。
func migrationFor(cfg config.DatabaseConfig) migration {
	if !cfg.AutoMigrate {
		return migrateNone
	}
	if cfg.Type == "postgres" {
		return migrateVersioned
	}
	return migrateModel
}

// newStore 基于已打开的连接初始化 GORM
func newStore(db *sql.DB, dialector gorm.Dialector) (*Store, error) {
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	return &Store{db: db, gormDB: gormDB}, nil
}

// Migrate 按模型创建或更新 emails 表，仅用于 MySQL
func (s *Store) Migrate() error {
	return s.gormDB.AutoMigrate(&domain.Email{})
}

// FindByRecipient 按收件人查询邮件列表
func (s *Store) FindByRecipient(ctx context.Context, to string) ([]domain.EmailSummary, error) {
	emails := make([]domain.EmailSummary, 0)
	err := s.gormDB.WithContext(ctx).
		Model(&domain.Email{}).
		Select("id", "subject", "created_at").
		Where("message_to = ?", to).
		Order("created_at DESC").
		Find(&emails).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	return emails, nil
}

// Ping 检查数据库健康状态
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.PingContext(ctx)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// OpenConnections 当前打开的连接数
func (s *Store) OpenConnections() int {
	return s.db.Stats().OpenConnections
}

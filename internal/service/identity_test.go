package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tmpmail/backend/internal/domain"
	"tmpmail/backend/internal/session"
	"tmpmail/backend/internal/storage/memory"
)

// MockEmailRepository 模拟邮件存储
type MockEmailRepository struct {
	mock.Mock
}

func (m *MockEmailRepository) FindByRecipient(ctx context.Context, to string) ([]domain.EmailSummary, error) {
	args := m.Called(ctx, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EmailSummary), args.Error(1)
}

var addressPattern = regexp.MustCompile(`^[a-z]+-[a-z]+\.\d{4}@tmpmail\.dev$`)

func TestAddressGenerator_Format(t *testing.T) {
	gen := NewAddressGenerator("tmpmail.dev")

	for i := 0; i < 50; i++ {
		address := gen.Generate()
		assert.Regexp(t, addressPattern, address)
		assert.NoError(t, domain.ValidateAddress(address))
	}
	assert.Equal(t, "tmpmail.dev", gen.Domain())
}

func TestAddressGenerator_Unique(t *testing.T) {
	gen := NewAddressGenerator("tmpmail.dev")

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		seen[gen.Generate()] = struct{}{}
	}
	// 名称与四位数字组合，200 次内出现少量碰撞也说明生成器异常
	assert.GreaterOrEqual(t, len(seen), 199)
}

func TestIdentityService_IssueAndRevoke(t *testing.T) {
	svc := NewIdentityService(memory.NewStore(), NewAddressGenerator("tmpmail.dev"))
	sess := &session.Session{}

	t.Run("签发地址并绑定", func(t *testing.T) {
		address, err := svc.Issue(sess)
		require.NoError(t, err)
		assert.Regexp(t, addressPattern, address)

		bound, ok := sess.Email()
		assert.True(t, ok)
		assert.Equal(t, address, bound)
	})

	t.Run("重复签发失败且不修改已绑定地址", func(t *testing.T) {
		before, _ := sess.Email()

		_, err := svc.Issue(sess)
		assert.ErrorIs(t, err, ErrAlreadyBound)

		after, _ := sess.Email()
		assert.Equal(t, before, after)
	})

	t.Run("解绑返回同一个地址", func(t *testing.T) {
		before, _ := sess.Email()

		revoked, err := svc.Revoke(sess)
		require.NoError(t, err)
		assert.Equal(t, before, revoked)

		_, ok := sess.Email()
		assert.False(t, ok)
	})

	t.Run("未绑定时解绑失败", func(t *testing.T) {
		_, err := svc.Revoke(sess)
		assert.ErrorIs(t, err, ErrNotBound)
	})
}

func TestIdentityService_IssueDiffersAcrossSessions(t *testing.T) {
	svc := NewIdentityService(memory.NewStore(), NewAddressGenerator("tmpmail.dev"))

	first, err := svc.Issue(&session.Session{})
	require.NoError(t, err)
	second, err := svc.Issue(&session.Session{})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestIdentityService_List(t *testing.T) {
	store := memory.NewStore()
	svc := NewIdentityService(store, NewAddressGenerator("tmpmail.dev"))
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	sess := &session.Session{}
	sess.SetEmail("me.0001@tmpmail.dev")

	require.NoError(t, store.SaveEmail(&domain.Email{ID: "t1", MessageTo: "me.0001@tmpmail.dev", Subject: "oldest", CreatedAt: now.Add(-3 * time.Hour)}))
	require.NoError(t, store.SaveEmail(&domain.Email{ID: "t3", MessageTo: "me.0001@tmpmail.dev", Subject: "newest", CreatedAt: now.Add(-3 * time.Minute)}))
	require.NoError(t, store.SaveEmail(&domain.Email{ID: "t2", MessageTo: "me.0001@tmpmail.dev", Subject: "middle", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.SaveEmail(&domain.Email{ID: "x", MessageTo: "someone.else@tmpmail.dev", CreatedAt: now}))

	views, err := svc.List(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, domain.EmailView{ID: "t3", Subject: "newest", CreatedAt: "3 minutes ago"}, views[0])
	assert.Equal(t, domain.EmailView{ID: "t2", Subject: "middle", CreatedAt: "1 hour ago"}, views[1])
	assert.Equal(t, domain.EmailView{ID: "t1", Subject: "oldest", CreatedAt: "3 hours ago"}, views[2])
}

func TestIdentityService_ListWithoutBinding(t *testing.T) {
	repo := new(MockEmailRepository)
	repo.On("FindByRecipient", mock.Anything, "").Return([]domain.EmailSummary{}, nil)
	svc := NewIdentityService(repo, NewAddressGenerator("tmpmail.dev"))

	views, err := svc.List(context.Background(), &session.Session{})
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
	repo.AssertExpectations(t)
}

func TestIdentityService_ListPropagatesError(t *testing.T) {
	repo := new(MockEmailRepository)
	boom := errors.New("db down")
	repo.On("FindByRecipient", mock.Anything, "a@tmpmail.dev").Return(nil, boom)
	svc := NewIdentityService(repo, NewAddressGenerator("tmpmail.dev"))

	sess := &session.Session{}
	sess.SetEmail("a@tmpmail.dev")

	_, err := svc.List(context.Background(), sess)
	assert.ErrorIs(t, err, boom)
}

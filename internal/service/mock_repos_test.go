package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"campus-hub/backend/internal/identity"
	"campus-hub/backend/internal/model"
	"campus-hub/backend/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
	// 注入点
	failSetVerified  bool
	setVerifiedCalls int
}

// fixedReadTime mock 中标记已读时使用的固定时间戳
var fixedReadTime = mustParseTime("2026-03-01T10:00:00Z")

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "test-user-" + user.StudentID
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByStudentID(_ context.Context, studentID string) (*model.User, error) {
	for _, u := range m.users {
		if u.StudentID == studentID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		match := true
		if filters != nil {
			if filters.Batch != "" && u.Batch != filters.Batch {
				match = false
			}
			if filters.Role != "" && u.Role != filters.Role {
				match = false
			}
		}
		if match {
			all = append(all, *u)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids) // 保证测试可重复
	return ids, nil
}

func (m *mockUserRepo) ListIDsByBatch(_ context.Context, batch string) ([]string, error) {
	var ids []string
	for id, u := range m.users {
		if u.Batch == batch {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockUserRepo) SetEmailVerified(_ context.Context, userID string, verified bool) error {
	m.setVerifiedCalls++
	if m.failSetVerified {
		return errors.New("mock: 写入失败")
	}
	u, ok := m.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.EmailVerified = verified
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications map[string]*model.Notification
	// 注入点
	failUpsert  bool
	upsertCalls int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[string]*model.Notification)}
}

func (m *mockNotificationRepo) Upsert(_ context.Context, n *model.Notification) error {
	m.upsertCalls++
	if m.failUpsert {
		return errors.New("mock: 正本写入失败")
	}
	// 冲突时保持首次写入不变
	if _, ok := m.notifications[n.NotificationID]; !ok {
		copied := *n
		m.notifications[n.NotificationID] = &copied
	}
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return n, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) List(_ context.Context, offset, limit int) ([]model.Notification, int64, error) {
	var all []model.Notification
	for _, n := range m.notifications {
		all = append(all, *n)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) ListByCategory(_ context.Context, category string) ([]model.Notification, error) {
	var result []model.Notification
	for _, n := range m.notifications {
		if n.Category == category {
			result = append(result, *n)
		}
	}
	return result, nil
}

// ── Mock InboxRepository ──

type mockInboxRepo struct {
	mu      sync.Mutex
	entries map[string]*model.InboxEntry // key: recipientID + "/" + notificationID
	// 注入点：批次提交的第 N 次调用失败（从 1 计）；0 表示不失败
	failOnCall  int
	failAlways  bool
	upsertCalls int
	batchSizes  []int
}

func newMockInboxRepo() *mockInboxRepo {
	return &mockInboxRepo{entries: make(map[string]*model.InboxEntry)}
}

func inboxKey(recipientID, notificationID string) string {
	return recipientID + "/" + notificationID
}

func (m *mockInboxRepo) BatchUpsert(_ context.Context, entries []model.InboxEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertCalls++
	m.batchSizes = append(m.batchSizes, len(entries))
	if m.failAlways || (m.failOnCall > 0 && m.upsertCalls == m.failOnCall) {
		return errors.New("mock: 批次提交失败")
	}

	for i := range entries {
		e := entries[i]
		key := inboxKey(e.RecipientID, e.NotificationID)
		if existing, ok := m.entries[key]; ok {
			// 合并写：仅更新内容快照列，接收者本地状态保持不变
			existing.Title = e.Title
			existing.Body = e.Body
			existing.Category = e.Category
			existing.Link = e.Link
			existing.SenderID = e.SenderID
			existing.SenderName = e.SenderName
			continue
		}
		m.entries[key] = &e
	}
	return nil
}

func (m *mockInboxRepo) GetEntry(_ context.Context, recipientID, notificationID string) (*model.InboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[inboxKey(recipientID, notificationID)]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInboxRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]model.InboxEntry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.InboxEntry
	for _, e := range m.entries {
		if e.RecipientID != recipientID {
			continue
		}
		if unreadOnly && e.IsRead {
			continue
		}
		all = append(all, *e)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockInboxRepo) MarkRead(_ context.Context, recipientID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[inboxKey(recipientID, notificationID)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.IsRead = true
	if e.ReadAt == nil {
		now := fixedReadTime
		e.ReadAt = &now
	}
	return nil
}

func (m *mockInboxRepo) SetReaction(_ context.Context, recipientID, notificationID, reaction string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[inboxKey(recipientID, notificationID)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Reaction = reaction
	return nil
}

func (m *mockInboxRepo) ReadStats(_ context.Context, notificationIDs []string) (map[string]repository.NotificationReadStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := make(map[string]repository.NotificationReadStats)
	for _, id := range notificationIDs {
		var s repository.NotificationReadStats
		s.NotificationID = id
		for _, e := range m.entries {
			if e.NotificationID != id {
				continue
			}
			s.Delivered++
			if e.IsRead {
				s.Read++
			}
		}
		stats[id] = s
	}
	return stats, nil
}

// ── Mock Identity Provider ──

type mockIdentityProvider struct {
	verified map[string]bool
	failRead bool
	// 记录最近一次调用是否要求强制刷新
	lastForceRefresh bool
	calls            int
}

func newMockIdentityProvider() *mockIdentityProvider {
	return &mockIdentityProvider{verified: make(map[string]bool)}
}

func (m *mockIdentityProvider) CurrentUser(_ context.Context, userID string, forceRefresh bool) (*identity.UserInfo, error) {
	m.calls++
	m.lastForceRefresh = forceRefresh
	if m.failRead {
		return nil, errors.New("mock: 身份提供方不可达")
	}
	v, ok := m.verified[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return &identity.UserInfo{ID: userID, EmailVerified: v}, nil
}

// ── 测试辅助 ──

func mustParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestRepo(user *mockUserRepo, notification *mockNotificationRepo, inbox *mockInboxRepo) *repository.Repository {
	if user == nil {
		user = newMockUserRepo()
	}
	if notification == nil {
		notification = newMockNotificationRepo()
	}
	if inbox == nil {
		inbox = newMockInboxRepo()
	}
	return &repository.Repository{
		User:         user,
		Notification: notification,
		Inbox:        inbox,
	}
}

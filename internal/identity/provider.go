package identity

import (
	"context"
	"errors"
)

// ErrUserNotFound 身份提供方无此用户
var ErrUserNotFound = errors.New("身份提供方中不存在该用户")

// UserInfo 身份提供方返回的账户状态
type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Provider 身份提供方边界接口
//
// 身份提供方是 email_verified 标记的唯一权威来源；
// users 表中的同名字段只是缓存副本。
type Provider interface {
	// CurrentUser 获取账户当前状态
	// forceRefresh 为 true 时绕过会话缓存直读权威源，
	// 以便观察到带外完成的邮箱验证（如用户在其他标签页点击验证链接）
	CurrentUser(ctx context.Context, userID string, forceRefresh bool) (*UserInfo, error)
}

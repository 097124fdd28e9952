package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"campus-hub/backend/config"
)

const defaultTimeout = 5 * time.Second

// HTTPProvider 基于 HTTP 的身份提供方客户端
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider 创建身份提供方 HTTP 客户端
func NewHTTPProvider(cfg *config.IdentityConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// CurrentUser 查询账户当前状态
func (p *HTTPProvider) CurrentUser(ctx context.Context, userID string, forceRefresh bool) (*UserInfo, error) {
	endpoint := fmt.Sprintf("%s/v1/accounts/%s", p.baseURL, url.PathEscape(userID))
	if forceRefresh {
		endpoint += "?refresh=true"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("构造身份提供方请求失败: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求身份提供方失败: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("身份提供方返回异常状态: HTTP %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("解析身份提供方响应失败: %w", err)
	}

	return &info, nil
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"campus-hub/backend/internal/dto"
	"campus-hub/backend/internal/service"
	"campus-hub/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult      *dto.TokenResponse
	loginErr         error
	registerResult   *dto.TokenResponse
	registerErr      error
	refreshResult    *dto.TokenResponse
	refreshErr       error
	logoutErr        error
	getCurrentResult *dto.UserResponse
	getCurrentErr    error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.TokenResponse, error) {
	return m.registerResult, m.registerErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, _ string) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, _ string, _ time.Time) error {
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.getCurrentResult, m.getCurrentErr
}

// ── Mock NotificationService ──

type mockNotificationService struct {
	sendResult      *dto.SendNotificationResponse
	sendErr         error
	redeliverResult *dto.DistributionResult
	redeliverErr    error
	listResult      []dto.NotificationResponse
	listTotal       int64
	listErr         error
	inboxResult     []dto.InboxEntryResponse
	inboxTotal      int64
	inboxErr        error
	markReadResult  *dto.InboxEntryResponse
	markReadErr     error
	setReactionErr  error
}

func (m *mockNotificationService) AuthorAndSend(_ context.Context, _ *dto.SendNotificationRequest, _ string) (*dto.SendNotificationResponse, error) {
	return m.sendResult, m.sendErr
}
func (m *mockNotificationService) Redeliver(_ context.Context, _ string) (*dto.DistributionResult, error) {
	return m.redeliverResult, m.redeliverErr
}
func (m *mockNotificationService) List(_ context.Context, _ *dto.PaginationRequest) ([]dto.NotificationResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockNotificationService) ListInbox(_ context.Context, _ string, _ *dto.InboxListRequest) ([]dto.InboxEntryResponse, int64, error) {
	return m.inboxResult, m.inboxTotal, m.inboxErr
}
func (m *mockNotificationService) MarkRead(_ context.Context, _, _ string) (*dto.InboxEntryResponse, error) {
	return m.markReadResult, m.markReadErr
}
func (m *mockNotificationService) SetReaction(_ context.Context, _, _, _ string) error {
	return m.setReactionErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
	calendar string
	calErr   error
}

func (m *mockExportService) ExportDeliveryReport(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) EventCalendar(_ context.Context) (string, error) {
	return m.calendar, m.calErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	c.Set("user_id", "test-user-id")
	c.Set("role", "admin")
	c.Set("batch", "2023")
	c.Set("token_jti", "test-jti")
	c.Set("token_exp", time.Now().Add(15*time.Minute))
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "user@example.com",
		Password: "Test1234",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "user@example.com",
		Password: "wrong",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{registerErr: service.ErrEmailExists})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/register", jsonBody(dto.RegisterRequest{
		Name:      "Test User",
		StudentID: "2024001",
		Email:     "user@example.com",
		Password:  "Test12345",
		Batch:     "2024",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11002 {
		t.Errorf("expected error code 11002, got %d", resp.Code)
	}
}

func TestAuthHandler_RefreshToken_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(map[string]string{}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	r := gin.New()
	r.GET("/auth/me", h.Me)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// NotificationHandler Tests
// ═══════════════════════════════════════════════════════════

func validSendBody() io.Reader {
	return jsonBody(dto.SendNotificationRequest{
		Title:        "Test Notification",
		Body:         "body text",
		Category:     "general",
		AudienceType: "public",
	})
}

func TestNotificationHandler_Send_Success(t *testing.T) {
	mock := &mockNotificationService{
		sendResult: &dto.SendNotificationResponse{
			NotificationID: "n-1",
			Message:        "已送达 3 位接收者",
			Distribution: &dto.DistributionResult{
				NotificationID:  "n-1",
				TotalRecipients: 3,
				Delivered:       3,
			},
		},
	}
	h := NewNotificationHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/notifications", validSendBody())
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/notifications", func(c *gin.Context) {
		setAuth(c)
		h.Send(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestNotificationHandler_Send_ValidationErrorDetails(t *testing.T) {
	mock := &mockNotificationService{
		sendErr: &service.ValidationError{
			Fields: []dto.FieldError{
				{Field: "title", Reason: "标题不能为空"},
				{Field: "category", Reason: "分类无效"},
			},
		},
	}
	h := NewNotificationHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/notifications", validSendBody())
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/notifications", func(c *gin.Context) {
		setAuth(c)
		h.Send(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 13001 {
		t.Errorf("expected error code 13001, got %d", resp.Code)
	}
	// 字段级错误清单在 details 中返回
	details, ok := resp.Details.([]interface{})
	if !ok || len(details) != 2 {
		t.Errorf("expected 2 field errors in details, got %v", resp.Details)
	}
}

func TestNotificationHandler_Redeliver_NotFound(t *testing.T) {
	mock := &mockNotificationService{redeliverErr: service.ErrNotificationNotFound}
	h := NewNotificationHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/notifications/missing/redeliver", nil)

	r := gin.New()
	r.POST("/notifications/:id/redeliver", func(c *gin.Context) {
		setAuth(c)
		h.Redeliver(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestNotificationHandler_MarkRead_NotFound(t *testing.T) {
	mock := &mockNotificationService{markReadErr: service.ErrInboxEntryNotFound}
	h := NewNotificationHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/inbox/n-1/read", nil)

	r := gin.New()
	r.PUT("/inbox/:notification_id/read", func(c *gin.Context) {
		setAuth(c)
		h.MarkRead(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 13005 {
		t.Errorf("expected error code 13005, got %d", resp.Code)
	}
}

func TestNotificationHandler_SetReaction_InvalidValue(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/inbox/n-1/reaction", jsonBody(dto.SetReactionRequest{
		Reaction: "angry", // 不在 oneof 列表中
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/inbox/:notification_id/reaction", func(c *gin.Context) {
		setAuth(c)
		h.SetReaction(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestNotificationHandler_ListInbox_Success(t *testing.T) {
	mock := &mockNotificationService{
		inboxResult: []dto.InboxEntryResponse{
			{NotificationID: "n-1", Title: "Test", IsRead: false},
		},
		inboxTotal: 1,
	}
	h := NewNotificationHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/inbox?unread_only=true", nil)

	r := gin.New()
	r.GET("/inbox", func(c *gin.Context) {
		setAuth(c)
		h.ListInbox(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestNotificationHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"SenderNotFound", service.ErrSenderNotFound, 401, 10002},
		{"AudienceTypeInvalid", service.ErrAudienceTypeInvalid, 400, 13002},
		{"AudienceTargetMissing", service.ErrAudienceTargetMissing, 400, 13003},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockNotificationService{sendErr: tt.err}
			h := NewNotificationHandler(mock)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/notifications", validSendBody())
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.POST("/notifications", func(c *gin.Context) {
				setAuth(c)
				h.Send(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			resp := parseResponse(w)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_DeliveryReport_Success(t *testing.T) {
	mock := &mockExportService{
		buf:      bytes.NewBufferString("excel content"),
		filename: "notification-report-20260301.xlsx",
	}
	h := NewExportHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/export/notifications", nil)

	r := gin.New()
	r.GET("/export/notifications", h.ExportDeliveryReport)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	ct := w.Header().Get("Content-Type")
	if ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type: %s", ct)
	}
	if w.Header().Get("Content-Disposition") == "" {
		t.Error("expected Content-Disposition header")
	}
}

func TestExportHandler_DeliveryReport_Empty(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoNotifications})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/export/notifications", nil)

	r := gin.New()
	r.GET("/export/notifications", h.ExportDeliveryReport)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestExportHandler_EventCalendar_Success(t *testing.T) {
	h := NewExportHandler(&mockExportService{
		calendar: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/notifications/events.ics", nil)

	r := gin.New()
	r.GET("/notifications/events.ics", h.EventCalendar)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("BEGIN:VCALENDAR")) {
		t.Error("expected iCalendar body")
	}
}

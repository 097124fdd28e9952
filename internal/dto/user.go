package dto

// ── 用户模块 DTO ──

// UserResponse 用户信息响应
type UserResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StudentID     string `json:"student_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Role          string `json:"role"`
	Batch         string `json:"batch"`
	CreatedAt     string `json:"created_at"`
}

// UserListRequest 用户列表查询参数（受众目录查询面）
type UserListRequest struct {
	PaginationRequest
	Batch   string `form:"batch"   binding:"omitempty,max=20"`
	Role    string `form:"role"    binding:"omitempty,oneof=admin moderator member"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// UpdateProfileRequest 更新个人档案请求
type UpdateProfileRequest struct {
	Name  *string `json:"name"  binding:"omitempty,min=2,max=50"`
	Batch *string `json:"batch" binding:"omitempty,max=20"`
}

package model

// User 用户档案表 — 对应 users
//
// EmailVerified 是身份提供方权威验证标记的本地缓存副本，
// 供站内其他模块直接查询而无需触达身份提供方。
// 该副本可能与权威源漂移（例如用户在其他标签页点击验证链接），
// 由会话建立时的对账流程修复，方向仅为 false → true。
type User struct {
	UserID        string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name          string `gorm:"type:varchar(100);not null"                     json:"name"`
	StudentID     string `gorm:"type:varchar(20);not null"                      json:"student_id"`
	Email         string `gorm:"type:varchar(255);not null"                     json:"email"`
	EmailVerified bool   `gorm:"not null;default:false"                         json:"email_verified"`
	PasswordHash  string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role          string `gorm:"type:varchar(20);not null;default:'member'"     json:"role"`
	Batch         string `gorm:"type:varchar(20);not null;default:''"           json:"batch"`
	SoftDeleteModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// ── 角色枚举 ──

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

// CanBroadcast 是否具备发送通知的管理权限
func (u *User) CanBroadcast() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}

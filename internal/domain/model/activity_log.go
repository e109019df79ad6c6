package model

import "time"

// ユーザー行動の種類
type ActivityAction string

const (
	ActivityLoginSuccess  ActivityAction = "LOGIN_SUCCESS"
	ActivityLoginFailed   ActivityAction = "LOGIN_FAILED"
	ActivityAccountLocked ActivityAction = "ACCOUNT_LOCKED"
	ActivityLogout        ActivityAction = "LOGOUT"
	ActivityForceLogout   ActivityAction = "FORCE_LOGOUT"
)

// 認証まわりの行動ログ。
// 「いつ」「誰が」「どこから」を残す。
type ActivityLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64          `gorm:"not null;index" json:"user_id"`
	Action    ActivityAction `gorm:"type:varchar(50);not null;index" json:"action"`
	IP        string         `gorm:"type:varchar(64)" json:"ip"`
	UserAgent string         `gorm:"type:varchar(512)" json:"user_agent"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

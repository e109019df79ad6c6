package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type UserListFilter struct {
	Page  int
	Limit int
	Q     string
}

type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) (int64, error)
	List(ctx context.Context, f UserListFilter) ([]model.User, int64, error)

	//ログイン失敗カウンタとロック状態の更新
	UpdateLockState(ctx context.Context, userID int64, failedCount int, lockedUntil *time.Time) error
	//ログイン成功時（カウンタリセット＋最終ログイン）
	RecordLogin(ctx context.Context, userID int64, at time.Time) error

	SetActive(ctx context.Context, userID int64, active bool) error
	//token_versionを+1して既発行トークンを全部無効化する
	BumpTokenVersion(ctx context.Context, userID int64) error
}

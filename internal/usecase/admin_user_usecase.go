package usecase

import (
	"context"
	"errors"
	"fmt"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AdminUserUsecase struct {
	userRepo  repo.UserRepository
	rtRepo    repo.RefreshTokenRepository
	auditRepo repo.AuditLogRepository
	clock     Clock
}

func NewAdminUserUsecase(
	userRepo repo.UserRepository,
	rtRepo repo.RefreshTokenRepository,
	auditRepo repo.AuditLogRepository,
	clock Clock,
) *AdminUserUsecase {
	return &AdminUserUsecase{
		userRepo:  userRepo,
		rtRepo:    rtRepo,
		auditRepo: auditRepo,
		clock:     clock,
	}
}

type AdminUserOutput struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"is_active"`
	LastLoginAt *string `json:"last_login_at"`
}

type AdminUserListOutput struct {
	Items []AdminUserOutput `json:"items"`
	Total int64             `json:"total"`
}

func (u *AdminUserUsecase) List(ctx context.Context, f repo.UserListFilter) (AdminUserListOutput, error) {
	if f.Page < 1 {
		return AdminUserListOutput{}, NewValidationError("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminUserListOutput{}, NewValidationError("invalid limit")
	}

	users, total, err := u.userRepo.List(ctx, f)
	if err != nil {
		return AdminUserListOutput{}, NewInternalError()
	}

	outs := make([]AdminUserOutput, 0, len(users))
	for _, usr := range users {
		out := AdminUserOutput{
			ID:       usr.ID,
			Email:    usr.Email,
			Role:     string(usr.Role),
			IsActive: usr.IsActive,
		}
		if usr.LastLoginAt != nil {
			s := usr.LastLoginAt.Format("2006-01-02T15:04:05Z07:00")
			out.LastLoginAt = &s
		}
		outs = append(outs, out)
	}
	return AdminUserListOutput{Items: outs, Total: total}, nil
}

// SetActive は凍結/解除。凍結時は既発行トークンも無効化する。
func (u *AdminUserUsecase) SetActive(ctx context.Context, actorAdminUserID int64, targetUserID int64, active bool) error {
	if actorAdminUserID <= 0 {
		return NewUnauthorizedError()
	}
	if targetUserID <= 0 {
		return NewNotFoundError()
	}
	//自分自身は凍結できない
	if actorAdminUserID == targetUserID && !active {
		return NewInvalidStateError("cannot deactivate yourself")
	}

	target, err := u.userRepo.FindByID(ctx, targetUserID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError()
	}
	if err != nil {
		return NewInternalError()
	}

	if err := u.userRepo.SetActive(ctx, targetUserID, active); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError()
		}
		return NewInternalError()
	}

	if !active {
		if err := u.forceLogout(ctx, targetUserID); err != nil {
			return err
		}
	}

	u.writeAudit(ctx, actorAdminUserID, model.AuditActionUpdateUser, targetUserID,
		fmt.Sprintf(`{"is_active":%t}`, target.IsActive),
		fmt.Sprintf(`{"is_active":%t}`, active),
	)
	return nil
}

// ForceLogout はtoken_versionを上げて全端末を落とす。
func (u *AdminUserUsecase) ForceLogout(ctx context.Context, actorAdminUserID int64, targetUserID int64) error {
	if actorAdminUserID <= 0 {
		return NewUnauthorizedError()
	}
	if targetUserID <= 0 {
		return NewNotFoundError()
	}

	if _, err := u.userRepo.FindByID(ctx, targetUserID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError()
		}
		return NewInternalError()
	}

	if err := u.forceLogout(ctx, targetUserID); err != nil {
		return err
	}

	u.writeAudit(ctx, actorAdminUserID, model.AuditActionForceLogout, targetUserID, "", "")
	return nil
}

func (u *AdminUserUsecase) forceLogout(ctx context.Context, userID int64) error {
	if err := u.userRepo.BumpTokenVersion(ctx, userID); err != nil {
		return NewInternalError()
	}
	if err := u.rtRepo.RevokeAllForUser(ctx, userID, u.clock.Now()); err != nil {
		return NewInternalError()
	}
	return nil
}

func (u *AdminUserUsecase) writeAudit(ctx context.Context, actorID int64, action model.AuditAction, resourceID int64, before, after string) {
	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceUser,
		ResourceID:   resourceID,
		BeforeJSON:   before,
		AfterJSON:    after,
		CreatedAt:    u.clock.Now(),
	})
}

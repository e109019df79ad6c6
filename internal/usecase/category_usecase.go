package usecase

import (
	"context"
	"errors"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type CategoryUsecase struct {
	categoryRepo repo.CategoryRepository
	auditRepo    repo.AuditLogRepository
	clock        Clock
}

func NewCategoryUsecase(categoryRepo repo.CategoryRepository, auditRepo repo.AuditLogRepository, clock Clock) *CategoryUsecase {
	return &CategoryUsecase{categoryRepo: categoryRepo, auditRepo: auditRepo, clock: clock}
}

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (u *CategoryUsecase) List(ctx context.Context) ([]model.Category, error) {
	items, err := u.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, NewInternalError()
	}
	if items == nil {
		items = []model.Category{}
	}
	return items, nil
}

// 管理者のカテゴリ作成
func (u *CategoryUsecase) Create(ctx context.Context, actorAdminUserID int64, in CategoryInput) (model.Category, error) {
	if actorAdminUserID <= 0 {
		return model.Category{}, NewUnauthorizedError()
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 {
		return model.Category{}, NewValidationError("invalid name")
	}

	c := model.Category{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
	}
	id, err := u.categoryRepo.Create(ctx, c)
	if errors.Is(err, repo.ErrConflict) {
		return model.Category{}, NewInvalidStateError("category already exists")
	}
	if err != nil {
		return model.Category{}, NewInternalError()
	}
	c.ID = id

	u.writeAudit(ctx, actorAdminUserID, model.AuditActionCreateCategory, id, "", c.Name)
	return c, nil
}

func (u *CategoryUsecase) Update(ctx context.Context, actorAdminUserID int64, categoryID int64, in CategoryInput) error {
	if actorAdminUserID <= 0 {
		return NewUnauthorizedError()
	}
	if categoryID <= 0 {
		return NewNotFoundError()
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 {
		return NewValidationError("invalid name")
	}

	before, err := u.categoryRepo.FindByID(ctx, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError()
	}
	if err != nil {
		return NewInternalError()
	}

	err = u.categoryRepo.Update(ctx, model.Category{
		ID:          categoryID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
	})
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError()
	}
	if err != nil {
		return NewInternalError()
	}

	u.writeAudit(ctx, actorAdminUserID, model.AuditActionUpdateCategory, categoryID, before.Name, name)
	return nil
}

func (u *CategoryUsecase) Delete(ctx context.Context, actorAdminUserID int64, categoryID int64) error {
	if actorAdminUserID <= 0 {
		return NewUnauthorizedError()
	}
	if categoryID <= 0 {
		return NewNotFoundError()
	}

	err := u.categoryRepo.Delete(ctx, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError()
	}
	if err != nil {
		return NewInternalError()
	}

	u.writeAudit(ctx, actorAdminUserID, model.AuditActionDeleteCategory, categoryID, "", "")
	return nil
}

// 監査ログは失敗しても本処理を止めない
func (u *CategoryUsecase) writeAudit(ctx context.Context, actorID int64, action model.AuditAction, resourceID int64, before, after string) {
	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceCategory,
		ResourceID:   resourceID,
		BeforeJSON:   before,
		AfterJSON:    after,
		CreatedAt:    u.clock.Now(),
	})
}

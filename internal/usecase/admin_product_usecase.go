package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AdminProductUsecase struct {
	tx           repo.TransactionManager
	productRepo  repo.ProductRepository
	categoryRepo repo.CategoryRepository
	invRepo      repo.InventoryRepository
	auditRepo    repo.AuditLogRepository
	clock        Clock
}

func NewAdminProductUsecase(
	tx repo.TransactionManager,
	productRepo repo.ProductRepository,
	categoryRepo repo.CategoryRepository,
	invRepo repo.InventoryRepository,
	auditRepo repo.AuditLogRepository,
	clock Clock,
) *AdminProductUsecase {
	return &AdminProductUsecase{
		tx:           tx,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		invRepo:      invRepo,
		auditRepo:    auditRepo,
		clock:        clock,
	}
}

type AdminProductInput struct {
	CategoryID  int64    `json:"category_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Stock       int64    `json:"stock"`
	Colors      []string `json:"colors"`
	Material    string   `json:"material"`
	PictureURL  string   `json:"picture_url"`
	IsActive    bool     `json:"is_active"`
}

type AdjustStockInput struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

func validateAdminProductInput(in AdminProductInput) error {
	if strings.TrimSpace(in.Name) == "" || len(in.Name) > 255 {
		return NewValidationError("invalid name")
	}
	if in.CategoryID <= 0 {
		return NewValidationError("invalid category_id")
	}
	if in.Price < 0 {
		return NewValidationError("invalid price")
	}
	if in.Stock < 0 {
		return NewValidationError("invalid stock")
	}
	return nil
}

// 管理者の商品一覧は非公開も見える
func (u *AdminProductUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewValidationError("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewValidationError("invalid limit")
	}

	items, total, err := u.productRepo.List(ctx, repo.ListProductsFilter{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          in.Q,
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Sort:       in.Sort,
		OnlyActive: false,
	})
	if err != nil {
		return ProductListOutput{}, NewInternalError()
	}

	outs := make([]ProductOutput, 0, len(items))
	for _, p := range items {
		outs = append(outs, toProductOutput(p))
	}
	return ProductListOutput{Items: outs, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

func (u *AdminProductUsecase) Create(ctx context.Context, actorAdminUserID int64, in AdminProductInput) (ProductOutput, error) {
	if actorAdminUserID <= 0 {
		return ProductOutput{}, NewUnauthorizedError()
	}
	if err := validateAdminProductInput(in); err != nil {
		return ProductOutput{}, err
	}

	//カテゴリ存在チェック
	if _, err := u.categoryRepo.FindByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ProductOutput{}, NewValidationError("unknown category")
		}
		return ProductOutput{}, NewInternalError()
	}

	p := model.Product{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Colors:      in.Colors,
		Material:    strings.TrimSpace(in.Material),
		PictureURL:  strings.TrimSpace(in.PictureURL),
		IsActive:    in.IsActive,
	}

	id, err := u.productRepo.Create(ctx, p)
	if err != nil {
		return ProductOutput{}, NewInternalError()
	}
	p.ID = id

	u.writeAudit(ctx, actorAdminUserID, model.AuditActionCreateProduct, id, nil, p)
	return toProductOutput(p), nil
}

func (u *AdminProductUsecase) Update(ctx context.Context, actorAdminUserID int64, productID int64, in AdminProductInput) error {
	if actorAdminUserID <= 0 {
		return NewUnauthorizedError()
	}
	if productID <= 0 {
		return NewNotFoundError()
	}
	if err := validateAdminProductInput(in); err != nil {
		return err
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError()
	}
	if err != nil {
		return NewInternalError()
	}

	if _, err := u.categoryRepo.FindByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewValidationError("unknown category")
		}
		return NewInternalError()
	}

	after := model.Product{
		ID:          productID,
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Colors:      in.Colors,
		Material:    strings.TrimSpace(in.Material),
		PictureURL:  strings.TrimSpace(in.PictureURL),
		IsActive:    in.IsActive,
	}
	if err := u.productRepo.Update(ctx, after); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError()
		}
		return NewInternalError()
	}

	u.writeAudit(ctx, actorAdminUserID, model.AuditActionUpdateProduct, productID, before, after)
	return nil
}

func (u *AdminProductUsecase) Delete(ctx context.Context, actorAdminUserID int64, productID int64) error {
	if actorAdminUserID <= 0 {
		return NewUnauthorizedError()
	}
	if productID <= 0 {
		return NewNotFoundError()
	}

	if err := u.productRepo.Delete(ctx, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError()
		}
		return NewInternalError()
	}

	u.writeAudit(ctx, actorAdminUserID, model.AuditActionDeleteProduct, productID, nil, nil)
	return nil
}

// AdjustStock は在庫の増減。履歴と監査ログを必ず残す。
func (u *AdminProductUsecase) AdjustStock(ctx context.Context, actorAdminUserID int64, productID int64, in AdjustStockInput) error {
	if actorAdminUserID <= 0 {
		return NewUnauthorizedError()
	}
	if productID <= 0 {
		return NewNotFoundError()
	}
	if in.Delta == 0 {
		return NewValidationError("delta must not be zero")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return NewValidationError("reason is required")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError()
		}
		if err != nil {
			return NewInternalError()
		}

		if in.Delta > 0 {
			if err := r.Inventory().IncreaseStock(ctx, productID, in.Delta); err != nil {
				return NewInternalError()
			}
		} else {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, productID, -in.Delta)
			if err != nil {
				return NewInternalError()
			}
			if !ok {
				return NewValidationError("stock would go negative")
			}
		}

		now := u.clock.Now()
		if err := r.Inventory().RecordAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			AdminUserID: actorAdminUserID,
			Delta:       in.Delta,
			Reason:      strings.TrimSpace(in.Reason),
			CreatedAt:   now,
		}); err != nil {
			return NewInternalError()
		}

		beforeJSON, _ := json.Marshal(map[string]int64{"stock": p.Stock})
		afterJSON, _ := json.Marshal(map[string]int64{"stock": p.Stock + in.Delta})
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    now,
		})
	})
}

func (u *AdminProductUsecase) writeAudit(ctx context.Context, actorID int64, action model.AuditAction, resourceID int64, before, after interface{}) {
	var beforeJSON, afterJSON string
	if before != nil {
		b, _ := json.Marshal(before)
		beforeJSON = string(b)
	}
	if after != nil {
		b, _ := json.Marshal(after)
		afterJSON = string(b)
	}
	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   resourceID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    u.clock.Now(),
	})
}

package usecase

import (
	"context"
	"errors"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AddressUsecase struct {
	addressRepo repo.AddressRepository
}

func NewAddressUsecase(addressRepo repo.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addressRepo: addressRepo}
}

type AddressInput struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
}

func validateAddressInput(in AddressInput) error {
	if strings.TrimSpace(in.FullName) == "" {
		return NewValidationError("full_name is required")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return NewValidationError("phone is required")
	}
	if strings.TrimSpace(in.Line1) == "" {
		return NewValidationError("line1 is required")
	}
	if strings.TrimSpace(in.City) == "" {
		return NewValidationError("city is required")
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return NewValidationError("postal_code is required")
	}
	return nil
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]model.Address, error) {
	if userID <= 0 {
		return nil, NewUnauthorizedError()
	}

	items, err := u.addressRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewInternalError()
	}
	if items == nil {
		items = []model.Address{}
	}
	return items, nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, in AddressInput) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, NewUnauthorizedError()
	}
	if err := validateAddressInput(in); err != nil {
		return model.Address{}, err
	}

	a := model.Address{
		UserID:     userID,
		FullName:   strings.TrimSpace(in.FullName),
		Phone:      strings.TrimSpace(in.Phone),
		Line1:      strings.TrimSpace(in.Line1),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
	}

	id, err := u.addressRepo.Create(ctx, a)
	if err != nil {
		return model.Address{}, NewInternalError()
	}
	a.ID = id

	if in.IsDefault {
		if err := u.addressRepo.SetDefault(ctx, userID, id); err != nil {
			return model.Address{}, NewInternalError()
		}
		a.IsDefault = true
	}

	return a, nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, in AddressInput) error {
	if userID <= 0 {
		return NewUnauthorizedError()
	}
	if addressID <= 0 {
		return NewNotFoundError()
	}
	if err := validateAddressInput(in); err != nil {
		return err
	}

	existing, err := u.addressRepo.FindByID(ctx, addressID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError()
	}
	if err != nil {
		return NewInternalError()
	}
	//他人の住所は「存在しない扱い」にする
	if existing.UserID != userID {
		return NewNotFoundError()
	}

	err = u.addressRepo.Update(ctx, model.Address{
		ID:         addressID,
		FullName:   strings.TrimSpace(in.FullName),
		Phone:      strings.TrimSpace(in.Phone),
		Line1:      strings.TrimSpace(in.Line1),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
	})
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError()
	}
	if err != nil {
		return NewInternalError()
	}

	if in.IsDefault {
		if err := u.addressRepo.SetDefault(ctx, userID, addressID); err != nil {
			return NewInternalError()
		}
	}
	return nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return NewUnauthorizedError()
	}
	if addressID <= 0 {
		return NewNotFoundError()
	}

	existing, err := u.addressRepo.FindByID(ctx, addressID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError()
	}
	if err != nil {
		return NewInternalError()
	}
	if existing.UserID != userID {
		return NewNotFoundError()
	}

	if err := u.addressRepo.Delete(ctx, addressID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError()
		}
		return NewInternalError()
	}
	return nil
}

package customers

import (
	"context"
	"errors"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, shopID int64, req CreateCustomerRequest) (*Customer, error) {
	customer := Customer{
		ShopID:   shopID,
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
		Notes:    req.Notes,
		IsActive: true,
	}

	id, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return s.repo.Get(ctx, shopID, id)
}

func (s *Service) Update(ctx context.Context, shopID, id int64, req UpdateCustomerRequest) (*Customer, error) {
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, shopID, id, updates); err != nil {
			return nil, fmt.Errorf("update customer: %w", err)
		}
	}
	return s.repo.Get(ctx, shopID, id)
}

// Delete removes a customer record. Customers with an outstanding
// balance are refused; their ledger history must be settled first.
func (s *Service) Delete(ctx context.Context, shopID, id int64) error {
	deleted, err := s.repo.DeleteIfSettled(ctx, shopID, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if deleted {
		return nil
	}
	existing, err := s.repo.Get(ctx, shopID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete customer: %w", err)
	}
	if !existing.Balance.IsZero() {
		return ErrOutstandingBalance
	}
	// Settled between the delete and the re-read; one more attempt.
	deleted, err = s.repo.DeleteIfSettled(ctx, shopID, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if !deleted {
		return ErrOutstandingBalance
	}
	return nil
}

func (s *Service) Get(ctx context.Context, shopID, id int64) (*Customer, error) {
	return s.repo.Get(ctx, shopID, id)
}

func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	return s.repo.List(ctx, req)
}

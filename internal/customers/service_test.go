package customers

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	customers map[int64]Customer
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: make(map[int64]Customer)}
}

func (r *memoryRepo) Get(ctx context.Context, shopID, id int64) (*Customer, error) {
	c, ok := r.customers[id]
	if !ok || c.ShopID != shopID {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *memoryRepo) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	var out []Customer
	for _, c := range r.customers {
		if c.ShopID != req.ShopID {
			continue
		}
		if req.IsActive != nil && c.IsActive != *req.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, customer Customer) (int64, error) {
	r.nextID++
	customer.ID = r.nextID
	customer.Balance = decimal.Zero
	customer.TotalCredit = decimal.Zero
	customer.TotalPaid = decimal.Zero
	customer.IsActive = true
	r.customers[customer.ID] = customer
	return customer.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, shopID, id int64, updates map[string]interface{}) error {
	c, ok := r.customers[id]
	if !ok || c.ShopID != shopID {
		return ErrNotFound
	}
	if v, ok := updates["name"]; ok {
		c.Name = v.(string)
	}
	if v, ok := updates["is_active"]; ok {
		c.IsActive = v.(bool)
	}
	r.customers[id] = c
	return nil
}

func (r *memoryRepo) DeleteIfSettled(ctx context.Context, shopID, id int64) (bool, error) {
	c, ok := r.customers[id]
	if !ok || c.ShopID != shopID {
		return false, nil
	}
	if !c.Balance.IsZero() {
		return false, nil
	}
	delete(r.customers, id)
	return true, nil
}

func TestCreateAndGet(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateCustomerRequest{Name: "Aye Aye"})
	require.NoError(t, err)
	require.Equal(t, "Aye Aye", created.Name)
	require.True(t, created.Balance.IsZero())
	require.True(t, created.IsActive)

	got, err := svc.Get(ctx, 1, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	// A different shop cannot see the record.
	_, err = svc.Get(ctx, 2, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCustomer(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateCustomerRequest{Name: "Old Name"})
	require.NoError(t, err)

	name := "New Name"
	inactive := false
	updated, err := svc.Update(ctx, 1, created.ID, UpdateCustomerRequest{Name: &name, IsActive: &inactive})
	require.NoError(t, err)
	require.Equal(t, "New Name", updated.Name)
	require.False(t, updated.IsActive)
}

func TestDeleteSettledCustomer(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateCustomerRequest{Name: "Settled"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, created.ID))

	_, err = svc.Get(ctx, 1, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteWithOutstandingBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateCustomerRequest{Name: "Debtor"})
	require.NoError(t, err)

	c := repo.customers[created.ID]
	c.Balance = decimal.RequireFromString("150")
	repo.customers[created.ID] = c

	err = svc.Delete(ctx, 1, created.ID)
	require.ErrorIs(t, err, ErrOutstandingBalance)

	_, err = svc.Get(ctx, 1, created.ID)
	require.NoError(t, err, "refused delete must keep the record")
}

func TestDeleteMissingCustomer(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	err := svc.Delete(context.Background(), 1, 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersByShop(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, 1, CreateCustomerRequest{Name: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, 2, CreateCustomerRequest{Name: "other shop"})
	require.NoError(t, err)

	list, total, err := svc.List(ctx, ListCustomersRequest{ShopID: 1})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, list, 3)
}

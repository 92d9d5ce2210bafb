package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	items     map[string]*Item
	orderRefs map[string]int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]*Item), orderRefs: make(map[string]int)}
}

func (r *memoryRepo) Create(ctx context.Context, it *Item) error {
	for _, cur := range r.items {
		if cur.ItemCode == it.ItemCode {
			return ErrCodeTaken
		}
	}
	cp := *it
	cp.CreatedAt = time.Now().UTC()
	r.items[it.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	it, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *memoryRepo) List(ctx context.Context, q Query) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if !it.Hidden {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListAll(ctx context.Context) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		out = append(out, *it)
	}
	return out, nil
}

func (r *memoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if it.OwnerID != nil && *it.OwnerID == ownerID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *memoryRepo) Update(ctx context.Context, it *Item) error {
	cur, ok := r.items[it.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range r.items {
		if id != it.ID && other.ItemCode == it.ItemCode {
			return ErrCodeTaken
		}
	}
	cp := *it
	now := time.Now().UTC()
	cp.UpdatedAt = &now
	cp.CreatedAt = cur.CreatedAt
	r.items[it.ID] = &cp
	return nil
}

func (r *memoryRepo) CountOrderRefs(ctx context.Context, itemID string) (int, error) {
	return r.orderRefs[itemID], nil
}

func (r *memoryRepo) Hide(ctx context.Context, id string) error {
	it, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	it.Hidden = true
	it.Quantity = 0
	return nil
}

func (r *memoryRepo) HardDelete(ctx context.Context, id string) (bool, error) {
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func (r *memoryRepo) OwnerStats(ctx context.Context, ownerID string) (*OwnerStats, error) {
	s := &OwnerStats{TotalValue: decimal.Zero}
	for _, it := range r.items {
		if it.OwnerID == nil || *it.OwnerID != ownerID {
			continue
		}
		s.TotalItems++
		s.TotalQuantity += it.Quantity
		s.TotalValue = s.TotalValue.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		if it.Quantity == 0 {
			s.OutOfStock++
		}
	}
	return s, nil
}

func (r *memoryRepo) SalesStats(ctx context.Context, itemID string) (*SalesStats, error) {
	return &SalesStats{TotalRevenue: decimal.Zero}, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	owner := "owner-1"

	_, err := svc.Create(ctx, &owner, CreateInput{Name: "Sword", ItemCode: "SW-1", Price: dec("10.00"), Quantity: 3})
	require.NoError(t, err)

	_, err = svc.Create(ctx, &owner, CreateInput{Name: "Other Sword", ItemCode: "SW-1", Price: dec("12.00"), Quantity: 1})
	require.ErrorIs(t, err, ErrCodeTaken)
}

func TestCreateAppliesDefaults(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	it, err := svc.Create(context.Background(), nil, CreateInput{Name: "Potion", ItemCode: "PO-1", Price: dec("2.50"), Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, "Common", it.Rarity)
	require.Equal(t, "Other", it.Category)
	require.Nil(t, it.OwnerID)
	require.False(t, it.Hidden)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, CreateInput{Name: "", ItemCode: "X", Price: dec("1.00")})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(ctx, nil, CreateInput{Name: "X", ItemCode: "X", Price: dec("-1.00")})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(ctx, nil, CreateInput{Name: "X", ItemCode: "X", Price: dec("1.00"), Quantity: -1})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestUpdateOwnership(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	owner := "owner-1"

	it, err := svc.Create(ctx, &owner, CreateInput{Name: "Shield", ItemCode: "SH-1", Price: dec("20.00"), Quantity: 2})
	require.NoError(t, err)

	name := "Tower Shield"
	_, err = svc.Update(ctx, "someone-else", false, it.ID, UpdateInput{Name: &name})
	require.ErrorIs(t, err, ErrNotFound)

	updated, err := svc.Update(ctx, owner, false, it.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Tower Shield", updated.Name)

	// admin may edit anything
	price := dec("25.00")
	updated, err = svc.Update(ctx, "admin-1", true, it.ID, UpdateInput{Price: &price})
	require.NoError(t, err)
	require.True(t, updated.Price.Equal(dec("25.00")))
}

func TestDeleteHardWhenUnreferenced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	owner := "owner-1"

	it, err := svc.Create(ctx, &owner, CreateInput{Name: "Bow", ItemCode: "BW-1", Price: dec("15.00"), Quantity: 1})
	require.NoError(t, err)

	out, err := svc.Delete(ctx, owner, false, it.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeDeleted, out)

	_, err = repo.GetByID(ctx, it.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteHidesWhenOrdered(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	owner := "owner-1"

	it, err := svc.Create(ctx, &owner, CreateInput{Name: "Helm", ItemCode: "HM-1", Price: dec("30.00"), Quantity: 4})
	require.NoError(t, err)
	repo.orderRefs[it.ID] = 2

	out, err := svc.Delete(ctx, owner, false, it.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeHidden, out)

	kept, err := repo.GetByID(ctx, it.ID)
	require.NoError(t, err)
	require.True(t, kept.Hidden)
	require.Zero(t, kept.Quantity)

	// hidden items fall out of the public listing
	listed, err := repo.List(ctx, Query{})
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestDeleteMissing(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Delete(context.Background(), "u", true, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

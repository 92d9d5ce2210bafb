package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalid = errors.New("invalid item")

// DeleteOutcome tells the caller whether a delete hid the item or removed it.
type DeleteOutcome int

const (
	OutcomeHidden DeleteOutcome = iota
	OutcomeDeleted
)

func (o DeleteOutcome) String() string {
	if o == OutcomeDeleted {
		return "deleted"
	}
	return "hidden"
}

const (
	defaultImageURL = "https://via.placeholder.com/300"
	defaultRarity   = "Common"
	defaultCategory = "Other"
)

// Service owns item lifecycle policy: code uniqueness, ownership checks, and
// the soft-hide rule for items referenced by order history.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

type CreateInput struct {
	Name        string
	Description string
	ItemCode    string
	Price       decimal.Decimal
	Quantity    int
	ImageURL    string
	Rarity      string
	Category    string
}

// Create inserts a new item. ownerID is nil for system items.
func (s *Service) Create(ctx context.Context, ownerID *string, in CreateInput) (*Item, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.ItemCode)
	if name == "" || code == "" {
		return nil, fmt.Errorf("%w: name and item code are required", ErrInvalid)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalid)
	}

	it := &Item{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		ItemCode:    code,
		Price:       in.Price,
		Quantity:    in.Quantity,
		ImageURL:    in.ImageURL,
		Rarity:      in.Rarity,
		Category:    in.Category,
		OwnerID:     ownerID,
	}
	if it.ImageURL == "" {
		it.ImageURL = defaultImageURL
	}
	if it.Rarity == "" {
		it.Rarity = defaultRarity
	}
	if it.Category == "" {
		it.Category = defaultCategory
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

type UpdateInput struct {
	Name        *string
	Description *string
	ItemCode    *string
	Price       *decimal.Decimal
	Quantity    *int
	ImageURL    *string
	Rarity      *string
	Category    *string
	Hidden      *bool
}

// Update applies the provided fields. Non-admin actors may only touch their own
// items; an item owned by someone else reads as not found.
func (s *Service) Update(ctx context.Context, actorID string, isAdmin bool, id string, in UpdateInput) (*Item, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !ownedBy(it, actorID) {
		return nil, ErrNotFound
	}

	if in.Name != nil {
		it.Name = *in.Name
	}
	if in.Description != nil {
		it.Description = *in.Description
	}
	if in.ItemCode != nil {
		it.ItemCode = *in.ItemCode
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must not be negative", ErrInvalid)
		}
		it.Price = *in.Price
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalid)
		}
		it.Quantity = *in.Quantity
	}
	if in.ImageURL != nil {
		it.ImageURL = *in.ImageURL
	}
	if in.Rarity != nil {
		it.Rarity = *in.Rarity
	}
	if in.Category != nil {
		it.Category = *in.Category
	}
	if in.Hidden != nil {
		if !isAdmin {
			return nil, fmt.Errorf("%w: visibility is admin-managed", ErrInvalid)
		}
		it.Hidden = *in.Hidden
	}
	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Delete hides the item when any order line references it and removes it
// otherwise. Hard deletes cascade the item out of user carts.
func (s *Service) Delete(ctx context.Context, actorID string, isAdmin bool, id string) (DeleteOutcome, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if !isAdmin && !ownedBy(it, actorID) {
		return 0, ErrNotFound
	}

	refs, err := s.repo.CountOrderRefs(ctx, id)
	if err != nil {
		return 0, err
	}
	if refs > 0 {
		if err := s.repo.Hide(ctx, id); err != nil {
			return 0, err
		}
		return OutcomeHidden, nil
	}

	ok, err := s.repo.HardDelete(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	return OutcomeDeleted, nil
}

func ownedBy(it *Item, userID string) bool {
	return it.OwnerID != nil && *it.OwnerID == userID
}

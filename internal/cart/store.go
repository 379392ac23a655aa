// Package cart implements the session/account scoped cart store. Lines are
// ordinary relational rows keyed by the owner identity; clearing is the only
// destructive operation and is performed by the checkout orchestrator after
// the payment link has been issued, never before.
package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velora/bizportal/internal/catalog"
	"github.com/velora/bizportal/internal/models"
)

var (
	ErrEmptyCart   = errors.New("cart is empty")
	ErrInvalidCart = errors.New("cart contains an unpayable line")
	ErrNotFound    = errors.New("cart line not found")
)

type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// AddLine inserts a line or, when the same reference is already in the cart,
// merges by bumping the quantity. The unit price is the caller's catalog
// snapshot and is not re-read afterwards.
func (s *Store) AddLine(ctx context.Context, id models.Identity, ref catalog.ItemRef, kind models.ItemKind, quantity uint, unitPrice decimal.Decimal) (*models.CartLine, error) {
	if quantity < 1 {
		quantity = 1
	}

	var item models.CartLine
	tx := s.DB.WithContext(ctx).
		Where("owner_key = ? AND item_code = ?", id.Key(), ref.Code()).
		First(&item)
	if tx.Error == nil {
		item.Quantity += quantity
		if err := s.DB.WithContext(ctx).Save(&item).Error; err != nil {
			return nil, err
		}
		return &item, nil
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, tx.Error
	}

	newItem := models.CartLine{
		OwnerKey:  id.Key(),
		ItemCode:  ref.Code(),
		ItemKind:  kind,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	if internalID, ok := ref.InternalID(); ok {
		newItem.ItemID = &internalID
	}
	if err := s.DB.WithContext(ctx).Create(&newItem).Error; err != nil {
		return nil, err
	}
	return &newItem, nil
}

func (s *Store) UpdateQuantity(ctx context.Context, id models.Identity, lineID uint, quantity uint) (*models.CartLine, error) {
	if quantity < 1 {
		return nil, ErrInvalidCart
	}
	var item models.CartLine
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND owner_key = ?", lineID, id.Key()).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	item.Quantity = quantity
	if err := s.DB.WithContext(ctx).Save(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveOne decrements a line's quantity, deleting the line when it reaches
// zero. Returns the surviving line, or nil when the line was deleted.
func (s *Store) RemoveOne(ctx context.Context, id models.Identity, lineID uint) (*models.CartLine, error) {
	var item models.CartLine
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND owner_key = ?", lineID, id.Key()).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if item.Quantity > 1 {
		item.Quantity -= 1
		if err := s.DB.WithContext(ctx).Save(&item).Error; err != nil {
			return nil, err
		}
		return &item, nil
	}

	if err := s.DB.WithContext(ctx).Delete(&item).Error; err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Store) RemoveLine(ctx context.Context, id models.Identity, lineID uint) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND owner_key = ?", lineID, id.Key()).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, id models.Identity) error {
	return s.DB.WithContext(ctx).
		Where("owner_key = ?", id.Key()).
		Delete(&models.CartLine{}).Error
}

// Snapshot returns the cart lines in insertion order.
func (s *Store) Snapshot(ctx context.Context, id models.Identity) ([]models.CartLine, error) {
	var items []models.CartLine
	if err := s.DB.WithContext(ctx).
		Where("owner_key = ?", id.Key()).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ValidateSnapshot flags the states that make a cart unpayable: no lines at
// all, or any line whose snapshotted unit price is not strictly positive.
func ValidateSnapshot(lines []models.CartLine) error {
	if len(lines) == 0 {
		return ErrEmptyCart
	}
	for i := range lines {
		if !lines[i].UnitPrice.IsPositive() {
			return ErrInvalidCart
		}
		if lines[i].Quantity < 1 {
			return ErrInvalidCart
		}
	}
	return nil
}

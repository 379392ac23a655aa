// Package order is the durable side of checkout: orders, their lines, the
// payment attempt audit trail and the advisory recovery marker.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velora/bizportal/internal/models"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrIllegalTransition = errors.New("illegal order status transition")
	ErrDuplicateCheckout = errors.New("duplicate checkout attempt")
)

type Repo struct {
	DB *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{DB: db}
}

// CreateOrderWithLines persists the order and all of its lines in one
// transaction: either everything commits or nothing does. A reused
// idempotency key trips the unique index and surfaces as
// ErrDuplicateCheckout instead of a second order.
func (r *Repo) CreateOrderWithLines(ctx context.Context, o *models.Order, lines []models.OrderLine) (uint, error) {
	o.Status = StatusPending.String()
	o.CreatedAt = time.Now().UTC()

	txErr := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = o.ID
			if err := tx.Create(&lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if isUniqueViolation(txErr) {
			return 0, fmt.Errorf("%w: idempotency key already used", ErrDuplicateCheckout)
		}
		return 0, txErr
	}
	o.Lines = lines
	return o.ID, nil
}

func (r *Repo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).
		Preload("Lines").
		Preload("Attempts").
		First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repo) ListOrders(ctx context.Context, ownerAccount string, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("owner_account = ?", ownerAccount).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SetStatus applies one transition of the order state machine. Transitions
// out of a terminal status, or any pair the machine does not allow, are
// rejected with ErrIllegalTransition.
func (r *Repo) SetStatus(ctx context.Context, id uint, to Status) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		from := Status(o.Status)
		if !CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
		}
		return tx.Model(&o).Update("status", to.String()).Error
	})
}

// AppendPaymentAttempt records one gateway call. Attempts are insert-only; a
// retry appends a fresh row with its own transaction id.
func (r *Repo) AppendPaymentAttempt(ctx context.Context, orderID uint, attempt *models.PaymentAttempt) error {
	attempt.OrderID = orderID
	attempt.CreatedAt = time.Now().UTC()
	return r.DB.WithContext(ctx).Create(attempt).Error
}

// SaveRecoveryMarker upserts the advisory {last order, last total} record for
// an identity. Best effort diagnostics, never authoritative.
func (r *Repo) SaveRecoveryMarker(ctx context.Context, id models.Identity, orderID uint, total decimal.Decimal) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var marker models.RecoveryMarker
		err := tx.Where("owner_key = ?", id.Key()).First(&marker).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			marker = models.RecoveryMarker{
				OwnerKey:       id.Key(),
				LastOrderID:    orderID,
				LastOrderTotal: total,
				UpdatedAt:      time.Now().UTC(),
			}
			return tx.Create(&marker).Error
		}
		if err != nil {
			return err
		}
		marker.LastOrderID = orderID
		marker.LastOrderTotal = total
		marker.UpdatedAt = time.Now().UTC()
		return tx.Save(&marker).Error
	})
}

func (r *Repo) LatestRecoveryMarker(ctx context.Context, id models.Identity) (*models.RecoveryMarker, error) {
	var marker models.RecoveryMarker
	err := r.DB.WithContext(ctx).Where("owner_key = ?", id.Key()).First(&marker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &marker, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

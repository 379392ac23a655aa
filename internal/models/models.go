package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Identity is the owner of a cart: an authenticated account or an anonymous
// session, exactly one of the two.
type Identity struct {
	AccountID *uuid.UUID
	SessionID string
}

// Key returns the single cart-owner key rows are indexed by.
func (i Identity) Key() string {
	if i.AccountID != nil {
		return "acct:" + i.AccountID.String()
	}
	return "sess:" + i.SessionID
}

func (i Identity) Authenticated() bool {
	return i.AccountID != nil
}

type ItemKind string

const (
	ItemKindProduct ItemKind = "product"
	ItemKindService ItemKind = "service"
)

type CartLine struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OwnerKey  string          `gorm:"index;not null"              json:"-"`
	ItemID    *string         `gorm:"type:uuid"                   json:"item_id,omitempty"`
	ItemCode  string          `gorm:"not null"                    json:"item_code"`
	ItemKind  ItemKind        `gorm:"not null"                    json:"item_kind"`
	Quantity  uint            `gorm:"default:1;check:quantity>0"  json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
}

type Customer struct {
	Name    string `gorm:"not null" json:"name"`
	Email   string `gorm:"not null" json:"email"`
	Phone   string `gorm:"not null" json:"phone"`
	Address string `json:"address,omitempty"`
}

type Order struct {
	ID             uint             `gorm:"primaryKey"                  json:"id"`
	OwnerAccount   *uuid.UUID       `gorm:"type:uuid;index"             json:"owner_account,omitempty"`
	Customer       Customer         `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`
	Subtotal       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	TotalAmount    decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Status         string           `gorm:"not null;index"              json:"status"`
	IdempotencyKey *string          `gorm:"uniqueIndex"                 json:"-"`
	CreatedAt      time.Time        `gorm:"not null"                    json:"created_at"`
	Lines          []OrderLine      `gorm:"foreignKey:OrderID"          json:"lines,omitempty"`
	Attempts       []PaymentAttempt `gorm:"foreignKey:OrderID"          json:"attempts,omitempty"`
}

// OrderLine rows are immutable once the owning order is created. ItemID is
// NULL when the cart entry came from an external catalog code that does not
// map to an internal key; ItemCode keeps the raw code for display.
type OrderLine struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ItemID    *string         `gorm:"type:uuid"                   json:"item_id,omitempty"`
	ItemCode  string          `gorm:"not null"                    json:"item_code"`
	ItemKind  ItemKind        `gorm:"not null"                    json:"item_kind"`
	Quantity  uint            `gorm:"default:1;check:quantity>0"  json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
}

// PaymentAttempt is one outbound gateway call, insert-only. A retry creates a
// new row, never updates an old one.
type PaymentAttempt struct {
	ID                    uint      `gorm:"primaryKey"      json:"id"`
	OrderID               uint      `gorm:"index;not null"  json:"order_id"`
	ExternalTransactionID string    `gorm:"uniqueIndex;not null" json:"external_transaction_id"`
	PaylinkURL            string    `json:"paylink_url,omitempty"`
	GatewayResponseRaw    string    `json:"-"`
	CreatedAt             time.Time `gorm:"not null" json:"created_at"`
}

// RecoveryMarker is the advisory last-order record written after order
// persistence, read by support tooling when a payment redirect is interrupted.
// Never a source of truth.
type RecoveryMarker struct {
	ID             uint            `gorm:"primaryKey"       json:"id"`
	OwnerKey       string          `gorm:"uniqueIndex;not null" json:"-"`
	LastOrderID    uint            `gorm:"not null"         json:"last_order_id"`
	LastOrderTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"last_order_total"`
	UpdatedAt      time.Time       `gorm:"not null"         json:"updated_at"`
}

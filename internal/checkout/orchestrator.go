// Package checkout drives a cart through validation, pricing, order
// persistence and the payment gateway call. The pipeline is strictly
// sequential: the order is durably committed before the gateway is called, so
// a confirmation callback always has an order to land on.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/velora/bizportal/internal/cart"
	"github.com/velora/bizportal/internal/events"
	"github.com/velora/bizportal/internal/metrics"
	"github.com/velora/bizportal/internal/models"
	"github.com/velora/bizportal/internal/order"
	"github.com/velora/bizportal/internal/payment"
	"github.com/velora/bizportal/internal/pricing"
	"github.com/velora/bizportal/pkg/logging"
)

var (
	ErrValidation    = errors.New("validation")
	ErrPersistence   = errors.New("order persistence")
	ErrPaymentFailed = errors.New("payment failed")
)

type CartStore interface {
	Snapshot(ctx context.Context, id models.Identity) ([]models.CartLine, error)
	Clear(ctx context.Context, id models.Identity) error
}

type OrderRepo interface {
	CreateOrderWithLines(ctx context.Context, o *models.Order, lines []models.OrderLine) (uint, error)
	SetStatus(ctx context.Context, id uint, to order.Status) error
	AppendPaymentAttempt(ctx context.Context, orderID uint, attempt *models.PaymentAttempt) error
	SaveRecoveryMarker(ctx context.Context, id models.Identity, orderID uint, total decimal.Decimal) error
}

type Gateway interface {
	RequestPaymentLink(ctx context.Context, req payment.LinkRequest) (*payment.PaymentLink, error)
}

type Orchestrator struct {
	Cart    CartStore
	Repo    OrderRepo
	Gateway Gateway
	Events  events.Publisher
	Metrics *metrics.CheckoutMetrics
}

type CheckoutRequest struct {
	Identity       models.Identity
	Customer       models.Customer
	IdempotencyKey string
}

type CheckoutResult struct {
	OrderID    uint            `json:"order_id"`
	Total      decimal.Decimal `json:"total"`
	PaylinkURL string          `json:"paylink_url"`
}

// Checkout runs one attempt end to end. On any failure before persistence no
// durable state exists; after persistence the order is left in a non-corrupt
// status and the cart is preserved so the caller can retry with a fresh
// attempt.
func (o *Orchestrator) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("handler", "checkout")

	lines, err := o.Cart.Snapshot(ctx, req.Identity)
	if err != nil {
		o.Metrics.Observe("persistence_failed")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := validateRequest(req.Customer, lines); err != nil {
		o.Metrics.Observe("validation_failed")
		return nil, err
	}

	totals := pricing.Price(lines)

	ord := &models.Order{
		OwnerAccount: req.Identity.AccountID,
		Customer:     req.Customer,
		Subtotal:     totals.Subtotal,
		TaxAmount:    totals.Tax,
		TotalAmount:  totals.Total,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		ord.IdempotencyKey = &key
	}

	orderID, err := o.Repo.CreateOrderWithLines(ctx, ord, buildOrderLines(lines))
	if err != nil {
		if errors.Is(err, order.ErrDuplicateCheckout) {
			o.Metrics.Observe("duplicate")
			return nil, err
		}
		o.Metrics.Observe("persistence_failed")
		l.Error("checkout_persist_error", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	o.emit(ctx, "order_created", orderID, order.StatusPending)

	// Advisory marker; its failure must not fail a checkout whose order
	// already exists.
	if err := o.Repo.SaveRecoveryMarker(ctx, req.Identity, orderID, totals.Total); err != nil {
		l.Warn("recovery_marker_error", "order_id", orderID, "error", err)
	}

	token := newIdempotencyToken(orderID)
	start := time.Now()
	link, err := o.Gateway.RequestPaymentLink(ctx, payment.LinkRequest{
		OrderID:          orderID,
		Amount:           totals.Total,
		Description:      fmt.Sprintf("Order #%d", orderID),
		CustomerEmail:    req.Customer.Email,
		IdempotencyToken: token,
	})
	o.Metrics.ObserveGatewayLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, o.failPayment(ctx, l, orderID, token, err)
	}

	attempt := &models.PaymentAttempt{
		ExternalTransactionID: token,
		PaylinkURL:            link.URL,
		GatewayResponseRaw:    link.Raw,
	}
	if err := o.Repo.AppendPaymentAttempt(ctx, orderID, attempt); err != nil {
		l.Error("payment_attempt_record_error", "order_id", orderID, "error", err)
	}

	if err := o.Repo.SetStatus(ctx, orderID, order.StatusAwaitingPayment); err != nil {
		o.Metrics.Observe("persistence_failed")
		l.Error("checkout_status_error", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	o.emit(ctx, "payment_link_issued", orderID, order.StatusAwaitingPayment)

	// The cart is cleared only now, after the order and link both exist.
	if err := o.Cart.Clear(ctx, req.Identity); err != nil {
		l.Error("cart_clear_error", "order_id", orderID, "error", err)
	}

	o.Metrics.Observe("completed")
	l.Info("checkout_completed", "order_id", orderID, "total", totals.Total.StringFixed(2))
	return &CheckoutResult{
		OrderID:    orderID,
		Total:      totals.Total,
		PaylinkURL: link.URL,
	}, nil
}

// failPayment applies the post-persistence failure policy: the order flips to
// failed, the failed attempt is recorded, the cart stays untouched, and the
// caller gets a retryable error with the gateway failure preserved.
func (o *Orchestrator) failPayment(ctx context.Context, l *slog.Logger, orderID uint, token string, gatewayErr error) error {
	attempt := &models.PaymentAttempt{
		ExternalTransactionID: token,
		GatewayResponseRaw:    gatewayErr.Error(),
	}
	if err := o.Repo.AppendPaymentAttempt(ctx, orderID, attempt); err != nil {
		l.Error("payment_attempt_record_error", "order_id", orderID, "error", err)
	}

	if err := o.Repo.SetStatus(ctx, orderID, order.StatusFailed); err != nil {
		l.Error("checkout_status_error", "order_id", orderID, "error", err)
	}
	o.emit(ctx, "payment_failed", orderID, order.StatusFailed)

	if payment.IsTimeout(gatewayErr) {
		// Outcome unknown; the confirmation callback is the authority.
		o.Metrics.Observe("gateway_timeout")
		l.Error("checkout_gateway_timeout", "order_id", orderID, "error", gatewayErr)
	} else {
		o.Metrics.Observe("payment_failed")
		l.Warn("checkout_payment_failed", "order_id", orderID, "error", gatewayErr)
	}
	return fmt.Errorf("%w: %w", ErrPaymentFailed, gatewayErr)
}

// ConfirmPayment handles the asynchronous server-to-server confirmation,
// moving the order from awaiting_payment to paid.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, orderID uint) error {
	if err := o.Repo.SetStatus(ctx, orderID, order.StatusPaid); err != nil {
		return err
	}
	o.emit(ctx, "payment_confirmed", orderID, order.StatusPaid)
	return nil
}

// CancelStale is the operational path for orders whose confirmation never
// arrived: awaiting_payment to cancelled.
func (o *Orchestrator) CancelStale(ctx context.Context, orderID uint) error {
	if err := o.Repo.SetStatus(ctx, orderID, order.StatusCancelled); err != nil {
		return err
	}
	o.emit(ctx, "order_cancelled", orderID, order.StatusCancelled)
	return nil
}

func (o *Orchestrator) emit(ctx context.Context, eventType string, orderID uint, status order.Status) {
	if o.Events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := o.Events.Publish(pubCtx, events.TransitionEvent{
		Type:    eventType,
		OrderID: orderID,
		Status:  status.String(),
	})
	if err != nil {
		logging.FromContext(ctx).Error("event publish error", "type", eventType, "order_id", orderID, "error", err)
	}
}

func buildOrderLines(lines []models.CartLine) []models.OrderLine {
	out := make([]models.OrderLine, 0, len(lines))
	for i := range lines {
		out = append(out, models.OrderLine{
			ItemID:    lines[i].ItemID,
			ItemCode:  lines[i].ItemCode,
			ItemKind:  lines[i].ItemKind,
			Quantity:  lines[i].Quantity,
			UnitPrice: lines[i].UnitPrice,
			LineTotal: pricing.LineTotal(lines[i]),
		})
	}
	return out
}

func newIdempotencyToken(orderID uint) string {
	return fmt.Sprintf("ORDER-%d-%d", orderID, time.Now().UnixNano())
}

func validateRequest(customer models.Customer, lines []models.CartLine) error {
	if customer.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if !emailRe.MatchString(customer.Email) {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if !phoneRe.MatchString(customer.Phone) {
		return fmt.Errorf("%w: invalid phone", ErrValidation)
	}
	if err := cart.ValidateSnapshot(lines); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

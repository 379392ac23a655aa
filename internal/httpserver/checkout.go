package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/velora/bizportal/internal/checkout"
	"github.com/velora/bizportal/internal/models"
	"github.com/velora/bizportal/internal/order"
	"github.com/velora/bizportal/pkg/logging"
)

type CheckoutHTTP struct {
	ID           *IdentityResolver
	Orchestrator *checkout.Orchestrator
}

type checkoutRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	IdempotencyKey string `json:"idempotency_key"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (h *CheckoutHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.post")

	id := h.ID.Identity(c)

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "reason", "invalid body", "error", err)
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "invalid body"})
	}

	result, err := h.Orchestrator.Checkout(ctx, checkout.CheckoutRequest{
		Identity: id,
		Customer: models.Customer{
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Address: req.Address,
		},
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return checkoutError(c, l, err)
	}

	l.Info("checkout_success", "order_id", result.OrderID)
	return c.JSON(http.StatusOK, result)
}

func checkoutError(c echo.Context, l *slog.Logger, err error) error {
	switch {
	case errors.Is(err, checkout.ErrValidation):
		l.Warn("checkout_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: err.Error()})
	case errors.Is(err, order.ErrDuplicateCheckout):
		l.Warn("checkout_error", "status", 409, "error", err)
		return c.JSON(http.StatusConflict, errorResponse{Kind: "duplicate", Message: "checkout already submitted"})
	case errors.Is(err, checkout.ErrPaymentFailed):
		l.Warn("checkout_error", "status", 502, "error", err)
		return c.JSON(http.StatusBadGateway, errorResponse{Kind: "payment_failed", Message: "payment could not be started, please try again"})
	default:
		l.Error("checkout_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Kind: "internal", Message: "try again later"})
	}
}

type confirmRequest struct {
	OrderID uint `json:"order_id"`
}

// ConfirmPayment is the gateway's server-to-server confirmation callback.
func (h *CheckoutHTTP) ConfirmPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.confirm")

	var req confirmRequest
	if err := c.Bind(&req); err != nil || req.OrderID == 0 {
		l.Warn("confirm_error", "status", 400, "reason", "invalid body")
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "invalid body"})
	}

	if err := h.Orchestrator.ConfirmPayment(ctx, req.OrderID); err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			l.Warn("confirm_error", "status", 404, "order_id", req.OrderID)
			return c.JSON(http.StatusNotFound, errorResponse{Kind: "not_found", Message: "order not found"})
		case errors.Is(err, order.ErrIllegalTransition):
			l.Warn("confirm_error", "status", 409, "order_id", req.OrderID, "error", err)
			return c.JSON(http.StatusConflict, errorResponse{Kind: "conflict", Message: "order is not awaiting payment"})
		default:
			l.Error("confirm_error", "status", 500, "order_id", req.OrderID, "error", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Kind: "internal", Message: "try again later"})
		}
	}

	l.Info("payment_confirmed", "order_id", req.OrderID)
	return c.NoContent(http.StatusNoContent)
}

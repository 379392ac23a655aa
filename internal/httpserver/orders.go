package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/velora/bizportal/internal/order"
	"github.com/velora/bizportal/pkg/logging"
)

type OrderHTTP struct {
	ID   *IdentityResolver
	Repo *order.Repo
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	id := h.ID.Identity(c)
	if !id.Authenticated() {
		return c.JSON(http.StatusUnauthorized, errorResponse{Kind: "unauthorized", Message: "sign in to view orders"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	orders, err := h.Repo.ListOrders(ctx, id.AccountID.String(), limit, offset)
	if err != nil {
		logging.FromContext(ctx).Error("list_orders_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "invalid id"})
	}

	o, err := h.Repo.GetOrder(ctx, uint(orderID))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Kind: "not_found", Message: "order not found"})
		}
		logging.FromContext(ctx).Error("get_order_error", "order_id", orderID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// Guests may only read their own most recent order via the recovery
	// marker path; direct reads require ownership.
	id := h.ID.Identity(c)
	if o.OwnerAccount != nil && (!id.Authenticated() || *id.AccountID != *o.OwnerAccount) {
		return c.JSON(http.StatusNotFound, errorResponse{Kind: "not_found", Message: "order not found"})
	}
	return c.JSON(http.StatusOK, o)
}

// LastOrder returns the advisory recovery marker for the caller, used by
// support when a payment redirect was interrupted client-side.
func (h *OrderHTTP) LastOrder(c echo.Context) error {
	ctx := c.Request().Context()

	id := h.ID.Identity(c)
	marker, err := h.Repo.LatestRecoveryMarker(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Kind: "not_found", Message: "no recent order"})
		}
		logging.FromContext(ctx).Error("recovery_marker_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, marker)
}

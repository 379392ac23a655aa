package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/velora/bizportal/internal/cart"
	"github.com/velora/bizportal/internal/catalog"
	"github.com/velora/bizportal/internal/models"
)

type CartHTTP struct {
	ID    *IdentityResolver
	Store *cart.Store
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	id := h.ID.Identity(c)

	items, err := h.Store.Snapshot(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

type addLineRequest struct {
	ItemRef   string          `json:"item_ref"`
	ItemKind  models.ItemKind `json:"item_kind"`
	Quantity  uint            `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// AddToCart snapshots the catalog-supplied unit price onto the line; the
// price is not re-read at checkout.
func (h *CartHTTP) AddToCart(c echo.Context) error {
	id := h.ID.Identity(c)

	var req addLineRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "invalid body"})
	}
	if req.ItemKind != models.ItemKindProduct && req.ItemKind != models.ItemKindService {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "item_kind must be product or service"})
	}
	if req.ItemRef == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "item_ref required"})
	}
	if req.UnitPrice.IsNegative() {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "unit_price must not be negative"})
	}

	line, err := h.Store.AddLine(c.Request().Context(), id, catalog.ParseRef(req.ItemRef), req.ItemKind, req.Quantity, req.UnitPrice)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, line)
}

type updateQuantityRequest struct {
	Quantity uint `json:"quantity"`
}

func (h *CartHTTP) UpdateQuantity(c echo.Context) error {
	id := h.ID.Identity(c)

	lineID, err := strconv.Atoi(c.Param("id"))
	if err != nil || lineID <= 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "invalid id"})
	}

	var req updateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "invalid body"})
	}

	line, err := h.Store.UpdateQuantity(c.Request().Context(), id, uint(lineID), req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrNotFound):
			return c.JSON(http.StatusNotFound, errorResponse{Kind: "not_found", Message: "cart line not found"})
		case errors.Is(err, cart.ErrInvalidCart):
			return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "quantity must be >= 1"})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, line)
}

func (h *CartHTTP) RemoveOneFromCart(c echo.Context) error {
	id := h.ID.Identity(c)

	lineID, err := strconv.Atoi(c.Param("id"))
	if err != nil || lineID <= 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "invalid id"})
	}

	line, err := h.Store.RemoveOne(c.Request().Context(), id, uint(lineID))
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Kind: "not_found", Message: "cart line not found"})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if line == nil {
		return c.JSON(http.StatusOK, map[string]any{"deleted_line": lineID})
	}
	return c.JSON(http.StatusOK, line)
}

func (h *CartHTTP) RemoveLineFromCart(c echo.Context) error {
	id := h.ID.Identity(c)

	lineID, err := strconv.Atoi(c.Param("id"))
	if err != nil || lineID <= 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Kind: "validation", Message: "invalid id"})
	}

	if err := h.Store.RemoveLine(c.Request().Context(), id, uint(lineID)); err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Kind: "not_found", Message: "cart line not found"})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	remaining, err := h.Store.Snapshot(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, remaining)
}

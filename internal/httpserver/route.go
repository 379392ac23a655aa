package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/velora/bizportal/internal/metrics"
)

type Deps struct {
	CheckoutHandler *CheckoutHTTP
	CartHandler     *CartHTTP
	OrderHandler    *OrderHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api")

	api.POST("/checkout", d.CheckoutHandler.Checkout)
	api.POST("/payments/confirm", d.CheckoutHandler.ConfirmPayment)

	carts := api.Group("/cart")
	carts.GET("", d.CartHandler.GetCart)
	carts.POST("", d.CartHandler.AddToCart)
	carts.PATCH("/:id", d.CartHandler.UpdateQuantity)
	carts.DELETE("/:id", d.CartHandler.RemoveLineFromCart)
	carts.DELETE("/:id/one", d.CartHandler.RemoveOneFromCart)

	orders := api.Group("/orders")
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/last", d.OrderHandler.LastOrder)
	orders.GET("/:id", d.OrderHandler.GetOrder)
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/memohai/storefront/internal/catalog"
)

// ProductsHandler serves the catalog.
type ProductsHandler struct {
	store catalog.Store
	cache *catalog.Cache
}

// ProductListResponse is the /products body.
type ProductListResponse struct {
	Items []catalog.Product `json:"items"`
}

// NewProductsHandler creates the products handler.
func NewProductsHandler(store catalog.Store, cache *catalog.Cache) *ProductsHandler {
	return &ProductsHandler{store: store, cache: cache}
}

// Register mounts the product routes.
func (h *ProductsHandler) Register(e *echo.Echo) {
	group := e.Group("/products")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("/cache/invalidate", h.Invalidate)
}

// List godoc
// @Summary List products
// @Description Lists active products from the cached catalog snapshot.
// @Tags products
// @Param category query string false "Category filter"
// @Success 200 {object} ProductListResponse
// @Failure 503 {object} ErrorResponse
// @Router /products [get]
func (h *ProductsHandler) List(c echo.Context) error {
	snap, err := h.cache.Get(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		requestLog(c, "products").Error("list products failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "catalog unavailable")
	}
	items := snap.Products
	if items == nil {
		items = []catalog.Product{}
	}
	return c.JSON(http.StatusOK, ProductListResponse{Items: items})
}

// Get godoc
// @Summary Get product
// @Tags products
// @Param id path int true "Product ID"
// @Success 200 {object} catalog.Product
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /products/{id} [get]
func (h *ProductsHandler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	product, err := h.store.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, product)
}

// Invalidate godoc
// @Summary Drop cached catalog snapshots
// @Description Call after editing products so the assistant sees the change before the cache TTL.
// @Tags products
// @Success 204
// @Router /products/cache/invalidate [post]
func (h *ProductsHandler) Invalidate(c echo.Context) error {
	h.cache.Invalidate()
	requestLog(c, "products").Info("catalog cache invalidated by request")
	return c.NoContent(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-automation/internal/common/httpx"
	"restaurant-automation/internal/common/middleware"
	"restaurant-automation/internal/domain"
	"restaurant-automation/internal/microservices/order/service"
)

type OrderHandler struct {
	service service.OrderServiceInterface
}

func NewOrderHandler(s service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: s}
}

// Register mounts order intake and menu routes on rg.
func (oh *OrderHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/orders", oh.AddOrder)
	rg.POST("/menu-items", oh.AddMenuItem)
	rg.GET("/menu-items", oh.ListMenu)
}

// AddOrder handles POST /api/v1/orders
func (oh *OrderHandler) AddOrder(c *gin.Context) {
	var req domain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	resp, err := oh.service.AddOrder(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, resp)
}

// AddMenuItem handles POST /api/v1/menu-items
func (oh *OrderHandler) AddMenuItem(c *gin.Context) {
	var req domain.CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	item, err := oh.service.AddMenuItem(c.Request.Context(), req)
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, item)
}

func (oh *OrderHandler) ListMenu(c *gin.Context) {
	items, err := oh.service.ListMenu(c.Request.Context())
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, items)
}

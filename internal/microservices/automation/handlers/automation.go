package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-automation/internal/common/httpx"
	"restaurant-automation/internal/common/middleware"
	"restaurant-automation/internal/connections/objectstore"
	"restaurant-automation/internal/domain"
	"restaurant-automation/internal/microservices/automation/service"
)

type OrderGetter interface {
	GetOrder(ctx context.Context, id uint) (domain.Order, error)
	GetBillByOrder(ctx context.Context, orderID uint) (domain.Bill, error)
}

type AutomationHandler struct {
	svc    service.AutomationServiceInterface
	orders OrderGetter
	// nil when no receipt archive is configured
	receipts objectstore.ReceiptArchiveInterface
}

func NewAutomationHandler(svc service.AutomationServiceInterface, orders OrderGetter, receipts objectstore.ReceiptArchiveInterface) *AutomationHandler {
	return &AutomationHandler{svc: svc, orders: orders, receipts: receipts}
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type overrideStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

// Register mounts read-only routes on public and mutating routes on staff.
func (h *AutomationHandler) Register(public, staff *gin.RouterGroup) {
	public.GET("/automation/enabled", h.GetEnabled)
	public.GET("/kitchen/sequence", h.GetSequence)
	public.GET("/orders/:id/bill/receipt", h.GetReceipt)

	staff.PUT("/automation/enabled", h.SetEnabled)
	staff.POST("/orders/:id/automation", h.Start)
	staff.DELETE("/orders/:id/automation", h.Cancel)
	staff.PUT("/orders/:id/status", h.OverrideStatus)
	staff.POST("/orders/:id/bill/pay", h.PayBill)
}

func (h *AutomationHandler) GetEnabled(c *gin.Context) {
	httpx.OK(c, http.StatusOK, gin.H{"enabled": h.svc.IsGlobalEnabled()})
}

func (h *AutomationHandler) SetEnabled(c *gin.Context) {
	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	h.svc.SetGlobalEnabled(*req.Enabled)
	httpx.OK(c, http.StatusOK, gin.H{"enabled": h.svc.IsGlobalEnabled()})
}

func (h *AutomationHandler) GetSequence(c *gin.Context) {
	seq, err := h.svc.GetRecommendedSequence(c.Request.Context())
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, seq)
}

// Start handles POST /orders/:id/automation. Starting an already automated
// order is accepted and changes nothing.
func (h *AutomationHandler) Start(c *gin.Context) {
	id, ok := httpx.IDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.StartAutomation(c.Request.Context(), id); err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusAccepted, gin.H{"order_id": id, "automated": h.svc.IsAutomated(id)})
}

func (h *AutomationHandler) Cancel(c *gin.Context) {
	id, ok := httpx.IDParam(c, "id")
	if !ok {
		return
	}
	httpx.OK(c, http.StatusOK, gin.H{"order_id": id, "cancelled": h.svc.CancelAutomation(id)})
}

func (h *AutomationHandler) OverrideStatus(c *gin.Context) {
	id, ok := httpx.IDParam(c, "id")
	if !ok {
		return
	}
	var req overrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	order, err := h.svc.OverrideStatus(c.Request.Context(), id, req.Status, middleware.Actor(c))
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, order)
}

func (h *AutomationHandler) PayBill(c *gin.Context) {
	id, ok := httpx.IDParam(c, "id")
	if !ok {
		return
	}
	bill, err := h.svc.PayBill(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, bill)
}

// GetReceipt returns a short-lived link to the archived receipt.
func (h *AutomationHandler) GetReceipt(c *gin.Context) {
	id, ok := httpx.IDParam(c, "id")
	if !ok {
		return
	}
	if h.receipts == nil {
		httpx.Fail(c, http.StatusNotFound, "NOT_FOUND", "receipt archive is not configured")
		return
	}
	ctx := c.Request.Context()
	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	if _, err := h.orders.GetBillByOrder(ctx, id); err != nil {
		httpx.FromError(c, err)
		return
	}
	url, err := h.receipts.ReceiptURL(ctx, order.Number)
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, gin.H{"order_number": order.Number, "url": url})
}

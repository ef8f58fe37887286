package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-automation/internal/common/httpx"
	"restaurant-automation/internal/microservices/tracker/service"
)

type TrackerHandler struct {
	service service.TrackerServiceInterface
}

func NewTrackerHandler(svc service.TrackerServiceInterface) *TrackerHandler {
	return &TrackerHandler{service: svc}
}

func (h *TrackerHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/orders/:id", h.GetOrder)
	rg.GET("/orders/:id/status", h.GetStatus)
	rg.GET("/orders/:id/timeline", h.GetTimeline)
	rg.GET("/kitchen/load", h.GetKitchenLoad)
}

func (h *TrackerHandler) GetOrder(c *gin.Context) {
	id, ok := httpx.IDParam(c, "id")
	if !ok {
		return
	}
	v, err := h.service.GetOrderView(c.Request.Context(), id)
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, v)
}

func (h *TrackerHandler) GetStatus(c *gin.Context) {
	id, ok := httpx.IDParam(c, "id")
	if !ok {
		return
	}
	v, err := h.service.GetOrderStatus(c.Request.Context(), id)
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, v)
}

// GetTimeline handles GET /orders/:id/timeline?limit=&offset=
func (h *TrackerHandler) GetTimeline(c *gin.Context) {
	id, ok := httpx.IDParam(c, "id")
	if !ok {
		return
	}
	limit := httpx.IntQuery(c, "limit", service.DefaultTimelineLimit)
	offset := httpx.IntQuery(c, "offset", 0)
	tl, err := h.service.GetOrderTimeline(c.Request.Context(), id, limit, offset)
	if err != nil {
		httpx.FromError(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, tl)
}

func (h *TrackerHandler) GetKitchenLoad(c *gin.Context) {
	httpx.OK(c, http.StatusOK, h.service.KitchenLoad())
}

package automation

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"restaurant-automation/internal/common/config"
	"restaurant-automation/internal/common/httpx"
	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/common/middleware"
	"restaurant-automation/internal/connections/objectstore"
	automationhandlers "restaurant-automation/internal/microservices/automation/handlers"
	"restaurant-automation/internal/microservices/automation/service"
	orderhandlers "restaurant-automation/internal/microservices/order/handlers"
	ordersvc "restaurant-automation/internal/microservices/order/service"
	trackerhandler "restaurant-automation/internal/microservices/tracker/handler"
	trackersvc "restaurant-automation/internal/microservices/tracker/service"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	HTTP       config.HTTPConfig
	Auth0      config.Auth0Config
	Orders     ordersvc.OrderServiceInterface
	Tracker    trackersvc.TrackerServiceInterface
	Automation service.AutomationServiceInterface
	Reader     automationhandlers.OrderGetter
	Receipts   objectstore.ReceiptArchiveInterface
	Events     gin.HandlerFunc
	Health     map[string]HealthCheck
	Logger     *logger.Logger
}

func NewRouter(d RouterDeps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(d.Logger))

	if len(d.HTTP.AllowedOrigins) > 0 {
		cc := cors.Config{
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{middleware.HeaderRequestID},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}
		if containsWildcard(d.HTTP.AllowedOrigins) {
			cc.AllowAllOrigins = true
		} else {
			cc.AllowOrigins = d.HTTP.AllowedOrigins
		}
		if err := cc.Validate(); err != nil {
			return nil, err
		}
		r.Use(cors.New(cc))
	}

	staffChain, err := middleware.Protect(d.Auth0, d.Logger)
	if err != nil {
		return nil, err
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	staff := api.Group("", staffChain...)
	api.GET("/health", health(d.Health))
	if d.Events != nil {
		api.GET("/events", d.Events)
	}

	orderhandlers.NewOrderHandler(d.Orders).Register(api)
	trackerhandler.NewTrackerHandler(d.Tracker).Register(api)
	automationhandlers.NewAutomationHandler(d.Automation, d.Reader, d.Receipts).Register(api, staff)
	return r, nil
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status := gin.H{}
		ok := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				ok = false
				continue
			}
			status[name] = "ok"
		}
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "data": status})
			return
		}
		httpx.OK(c, http.StatusOK, status)
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

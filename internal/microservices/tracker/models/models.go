package models

import (
	"time"

	"restaurant-automation/internal/domain"
)

// OrderView is the staff-facing snapshot of an order with its kitchen and
// billing side.
type OrderView struct {
	Order               domain.Order          `json:"order"`
	Ticket              *domain.KitchenTicket `json:"kitchen_ticket,omitempty"`
	Bill                *domain.Bill          `json:"bill,omitempty"`
	Automated           bool                  `json:"automated"`
	EstimatedCompletion *time.Time            `json:"estimated_completion,omitempty"` // created_at + estimate
}

type StatusView struct {
	OrderID     uint               `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Status      domain.OrderStatus `json:"status"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type Timeline struct {
	OrderID uint                      `json:"order_id"`
	Events  []domain.ActivityLogEntry `json:"events"`
	Limit   int                       `json:"limit"`
	Offset  int                       `json:"offset"`
}

type KitchenLoad struct {
	ActiveTickets int64   `json:"active_tickets"`
	Capacity      int     `json:"capacity"`
	Load          float64 `json:"load"`
}

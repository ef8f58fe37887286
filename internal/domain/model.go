package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusBilled    OrderStatus = "billed"
	// StatusCancelled is only ever set by staff; automation never produces it.
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusBilled, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool { return s == StatusBilled || s == StatusCancelled }

// Channel is where the order came from. Notifications go back the same way.
type Channel string

const (
	ChannelManual   Channel = "manual"
	ChannelWeb      Channel = "web"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelZomato   Channel = "zomato"
	ChannelSwiggy   Channel = "swiggy"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelManual, ChannelWeb, ChannelWhatsApp, ChannelSMS, ChannelZomato, ChannelSwiggy:
		return true
	}
	return false
}

// ThirdPartyDelivery reports whether the order was placed through a delivery aggregator.
func (c Channel) ThirdPartyDelivery() bool { return c == ChannelZomato || c == ChannelSwiggy }

type Order struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	Number               string          `gorm:"uniqueIndex;not null" json:"order_number"`
	CustomerName         string          `gorm:"not null" json:"customer_name"`
	CustomerContact      string          `json:"customer_contact,omitempty"`
	Channel              Channel         `gorm:"type:varchar(32);not null;index" json:"channel"`
	Status               OrderStatus     `gorm:"type:varchar(32);not null;index" json:"status"`
	Notes                string          `gorm:"type:text" json:"notes,omitempty"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Priority             int             `gorm:"not null" json:"priority"`
	EstimatedPrepMinutes int             `json:"estimated_prep_minutes"`
	AutomationEnabled    bool            `gorm:"not null" json:"automation_enabled"`
	Items                []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is owned by exactly one order. UnitPrice is the menu price at the
// moment of ordering and is never rewritten.
type OrderItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index" json:"order_id"`
	MenuItemID uint            `gorm:"not null;index" json:"menu_item_id"`
	Name       string          `gorm:"not null" json:"name"`
	Quantity   int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

// BeforeUpdate keeps historical prices intact.
func (OrderItem) BeforeUpdate(*gorm.DB) error { return ErrImmutable }

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal is the sum of line totals, the only valid value of Order.TotalAmount.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

type MenuItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (MenuItem) TableName() string { return "menu_items" }

type TicketStatus string

const (
	TicketPending    TicketStatus = "pending"
	TicketInProgress TicketStatus = "in_progress"
	TicketCompleted  TicketStatus = "completed"
)

// KitchenTicket is the kitchen-facing side of an order.
type KitchenTicket struct {
	ID                   uint         `gorm:"primaryKey" json:"id"`
	OrderID              uint         `gorm:"not null;uniqueIndex" json:"order_id"`
	Status               TicketStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	Priority             int          `gorm:"not null" json:"priority"`
	Urgent               bool         `gorm:"not null" json:"urgent"`
	EstimatedPrepMinutes int          `json:"estimated_prep_minutes"`
	StartedAt            *time.Time   `json:"started_at,omitempty"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

func (KitchenTicket) TableName() string { return "kitchen_tickets" }

func (t KitchenTicket) Active() bool {
	return t.Status == TicketPending || t.Status == TicketInProgress
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type Bill struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"tax_rate"`
	Tax           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(32);not null" json:"payment_status"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Bill) TableName() string { return "bills" }

// NewBill prices an order: tax is applied to the sum of line totals, amounts
// are rounded to cents.
func NewBill(orderID uint, items []OrderItem, taxRate decimal.Decimal) Bill {
	subtotal := ItemsTotal(items).Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return Bill{
		OrderID:       orderID,
		Subtotal:      subtotal,
		TaxRate:       taxRate,
		Tax:           tax,
		Discount:      decimal.Zero,
		Total:         subtotal.Add(tax),
		PaymentStatus: PaymentPending,
	}
}

// ActivityLogEntry is an append-only audit record.
type ActivityLogEntry struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	Action     string      `gorm:"not null" json:"action"`
	FromStatus OrderStatus `gorm:"type:varchar(32)" json:"from_status,omitempty"`
	ToStatus   OrderStatus `gorm:"type:varchar(32)" json:"to_status,omitempty"`
	Actor      string      `gorm:"not null" json:"actor"`
	Details    string      `gorm:"type:text" json:"details,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (ActivityLogEntry) TableName() string { return "activity_log" }

func (ActivityLogEntry) BeforeUpdate(*gorm.DB) error { return ErrImmutable }

const (
	ActivityOrderCreated       = "order_created"
	ActivityAutomationStarted  = "automation_started"
	ActivityAutomationCanceled = "automation_cancelled"
	ActivityStatusChanged      = "status_changed"
	ActivityBillCreated        = "bill_created"
	ActivityBillPaid           = "bill_paid"
	ActivityAutomationStalled  = "automation_stalled"
)

// Models lists every table for migrations.
func Models() []any {
	return []any{&MenuItem{}, &Order{}, &OrderItem{}, &KitchenTicket{}, &Bill{}, &ActivityLogEntry{}}
}

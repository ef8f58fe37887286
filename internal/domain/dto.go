package domain

type CreateOrderItem struct {
	MenuItemID uint `json:"menu_item_id" binding:"required"`
	Quantity   int  `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	CustomerName      string            `json:"customer_name" binding:"required"`
	CustomerContact   string            `json:"customer_contact"`
	Channel           Channel           `json:"channel" binding:"required"`
	Notes             string            `json:"notes"`
	AutomationEnabled *bool             `json:"automation_enabled"`
	Items             []CreateOrderItem `json:"items" binding:"required,min=1,dive"`
}

type CreateOrderResponse struct {
	ID          uint        `json:"id"`
	OrderNumber string      `json:"order_number"`
	Status      OrderStatus `json:"status"`
	TotalAmount string      `json:"total_amount"`
	Automated   bool        `json:"automated"`
}

type CreateMenuItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Price       string `json:"price" binding:"required"`
}

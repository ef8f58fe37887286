package adapters

import (
	"fmt"

	"restaurant-automation/internal/domain"
)

func confirmationText(o domain.Order) string {
	text := fmt.Sprintf("Hi %s, we received your order %s (total %s).", o.CustomerName, o.Number, o.TotalAmount.StringFixed(2))
	if o.EstimatedPrepMinutes > 0 {
		text += fmt.Sprintf(" Estimated preparation time: %d min.", o.EstimatedPrepMinutes)
	}
	return text
}

func statusText(o domain.Order, s domain.OrderStatus) string {
	switch s {
	case domain.StatusPreparing:
		return fmt.Sprintf("Your order %s is being prepared.", o.Number)
	case domain.StatusReady:
		return fmt.Sprintf("Your order %s is ready.", o.Number)
	case domain.StatusCompleted:
		return fmt.Sprintf("Order %s has been served. Enjoy your meal!", o.Number)
	case domain.StatusCancelled:
		return fmt.Sprintf("Order %s was cancelled.", o.Number)
	}
	return fmt.Sprintf("Order %s is now %s.", o.Number, s)
}

func billText(o domain.Order, b domain.Bill) string {
	return fmt.Sprintf("Bill for %s: subtotal %s, tax %s, total %s.",
		o.Number, b.Subtotal.StringFixed(2), b.Tax.StringFixed(2), b.Total.StringFixed(2))
}

func feedbackText(o domain.Order) string {
	return fmt.Sprintf("Thanks, %s! How was order %s? Reply with a rating from 1 to 5.", o.CustomerName, o.Number)
}

package domain

import "time"

type EventKind string

const (
	EventConfirmed         EventKind = "confirmed"
	EventStatusChanged     EventKind = "status_changed"
	EventBilled            EventKind = "billed"
	EventFeedbackRequested EventKind = "feedback_requested"
)

// Event is what the dispatcher fans out to a channel. Status is set for status_changed.
type Event struct {
	Kind   EventKind   `json:"kind"`
	Status OrderStatus `json:"status,omitempty"`
}

func Confirmed() Event                  { return Event{Kind: EventConfirmed} }
func StatusChanged(s OrderStatus) Event { return Event{Kind: EventStatusChanged, Status: s} }
func Billed() Event                     { return Event{Kind: EventBilled, Status: StatusBilled} }
func FeedbackRequested() Event          { return Event{Kind: EventFeedbackRequested} }

func (e Event) String() string {
	if e.Status != "" {
		return string(e.Kind) + ":" + string(e.Status)
	}
	return string(e.Kind)
}

// EventForStatus maps a newly observed status to the event customers get.
func EventForStatus(s OrderStatus) Event {
	if s == StatusBilled {
		return Billed()
	}
	return StatusChanged(s)
}

type BroadcastType string

const (
	BroadcastOrderCreated      BroadcastType = "order_created"
	BroadcastOrderUpdated      BroadcastType = "order_updated"
	BroadcastAutomationStalled BroadcastType = "automation_stalled"
	BroadcastNotification      BroadcastType = "notification"
)

// BroadcastEvent is pushed to connected UI clients.
type BroadcastEvent struct {
	Type        BroadcastType `json:"type"`
	OrderID     uint          `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	Status      OrderStatus   `json:"status,omitempty"`
	Message     string        `json:"message,omitempty"`
	At          time.Time     `json:"at"`
}

func OrderBroadcast(t BroadcastType, o Order, at time.Time) BroadcastEvent {
	return BroadcastEvent{Type: t, OrderID: o.ID, OrderNumber: o.Number, Status: o.Status, At: at}
}

// OrderAcceptedMessage is published on orders_topic by channel parsers once an
// order has been accepted and persisted.
type OrderAcceptedMessage struct {
	OrderID     uint    `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	Channel     Channel `json:"channel"`
}

// NotificationMessage is the payload channel gateways consume from notifications_topic.
type NotificationMessage struct {
	OrderNumber     string      `json:"order_number"`
	CustomerName    string      `json:"customer_name"`
	CustomerContact string      `json:"customer_contact"`
	Channel         Channel     `json:"channel"`
	Kind            EventKind   `json:"kind"`
	Status          OrderStatus `json:"status,omitempty"`
	Text            string      `json:"text"`
	Total           string      `json:"total,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}

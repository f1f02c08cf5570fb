package model

// --- Order structures (matching the backend JSON) ---

// OrderStatus is the backend's order lifecycle state.
type OrderStatus string

const (
	// Delivery lifecycle.
	StatusPlaced         OrderStatus = "PLACED"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusRejected       OrderStatus = "REJECTED"

	// Dine-in lifecycle.
	StatusPending    OrderStatus = "PENDING"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusLive       OrderStatus = "LIVE"
)

// TimingsCompleted on Order.Timings means the kitchen preparation
// countdown of a PREPARING order has elapsed.
const TimingsCompleted = "COMPLETED"

// Order is an immutable snapshot read from the backend. The agent never
// mutates order state directly, only through status-update calls the
// backend applies authoritatively.
type Order struct {
	ID          int         `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	Username    string      `json:"username,omitempty"`
	OrderStatus OrderStatus `json:"orderStatus"`
	// Timings carries the backend's wire spelling.
	Timings      string      `json:"timmimgs,omitempty"`
	OrderItems   []OrderItem `json:"orderItems"`
	BusinessName string      `json:"businessName"`
	TotalAmount  float64     `json:"totalAmount"`
	UpdatedDate  string      `json:"updatedDate"`
}

type OrderItem struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description,omitempty"`
}

// OrdersPage is the envelope of the orders-by-status query.
type OrdersPage struct {
	Data struct {
		Content       []Order `json:"content"`
		TotalElements int     `json:"totalElements"`
	} `json:"data"`
}

// KotResponse is the envelope of the mark-items-sent-to-kot call.
type KotResponse struct {
	Success bool `json:"success"`
}

// StatusUpdate announces an accept/reject transition the panel performed,
// so other screens can refresh their order lists.
type StatusUpdate struct {
	OrderNumber string
	Status      OrderStatus
}

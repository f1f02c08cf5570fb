package model

// OrderType tags a PrintJob so the renderer's header branch is checked at
// compile time instead of sniffing dynamic payload shapes.
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeDineIn   OrderType = "dine-in"
)

// PrintJob is the ephemeral value handed to the renderer and the print
// orchestrator. It is built immediately before a print attempt and
// discarded afterwards, never cached.
type PrintJob struct {
	OrderType            OrderType
	RecentlyUpdatedItems []OrderItem
	RestaurantName       string
	OrderNumber          string
	OrderID              int
	Status               string

	// Dine-in only.
	TableID           int
	CurrentKotNumber  int
	KotHistoryNumbers []int
}

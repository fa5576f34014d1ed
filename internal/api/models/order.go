package models

// CreateOrderRequest is the request body for POST /v1/orders.
// Delivery fees are never accepted from the client; they are recomputed
// from the destination.
type CreateOrderRequest struct {
	Items       []OrderItemInput `json:"items"`
	Customer    CustomerInput    `json:"customer"`
	Destination *Point           `json:"destination,omitempty"`
}

// OrderItemInput is one cart line.
type OrderItemInput struct {
	MenuItemID string `json:"menuItemId"`
	Title      string `json:"title"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

// CustomerInput holds the contact details entered at checkout.
type CustomerInput struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Comment *string `json:"comment,omitempty"`
}

// Order is the response representation of a placed order.
type Order struct {
	ID            string        `json:"id"`
	Status        string        `json:"status"`
	Items         []OrderItem   `json:"items"`
	Customer      CustomerInput `json:"customer"`
	Destination   Point         `json:"destination"`
	DistanceKm    float64       `json:"distanceKm"`
	TotalMinutes  int           `json:"totalMinutes"`
	Window        string        `json:"window"`
	ItemsCents    int64         `json:"itemsCents"`
	DeliveryCents int64         `json:"deliveryCents"`
	TotalCents    int64         `json:"totalCents"`
	FreeDelivery  bool          `json:"freeDelivery"`
	CreatedAt     Timestamp     `json:"createdAt"`
}

// OrderItem is one line of a placed order.
type OrderItem struct {
	MenuItemID string `json:"menuItemId"`
	Title      string `json:"title"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

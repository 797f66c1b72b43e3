package domain

import "time"

type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is the read model the task generator needs from the order book.
type Order struct {
	ID                  string
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       string
	EventDate           *time.Time
	DeliveryDate        *time.Time
	Items               []OrderItem
	Total               float64
	SpecialInstructions string
	Notes               string
	DeliveryAddress     string
}

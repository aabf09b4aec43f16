package types

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID               uuid.UUID   `json:"id"`
	ProductID        uuid.UUID   `json:"product_id"`
	BuyerID          uuid.UUID   `json:"buyer_id"`
	SellerID         uuid.UUID   `json:"seller_id"`
	Price            float64     `json:"price"`
	Status           OrderStatus `json:"status"`
	ShippingAddress  string      `json:"shipping_address"`
	Message          string      `json:"message"`
	ProductTitle     string      `json:"product_title,omitempty"`
	ProductThumbnail *string     `json:"product_thumbnail,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type PlaceOrderRequest struct {
	ProductID       uuid.UUID `json:"product_id"`
	ShippingAddress string    `json:"shipping_address"`
	Message         string    `json:"message"`
}

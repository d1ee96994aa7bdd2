package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusRejected   = "Rejected"
	OrderStatusDelivered  = "Delivered"
	OrderStatusPaid       = "Paid"
)

var OrderStatusValues = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusRejected,
	OrderStatusDelivered,
	OrderStatusPaid,
}

// DishSnapshot is the dish frozen at order time. The live dish may change
// price or be deleted later; the snapshot never does.
type DishSnapshot struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	DishID      *int64          `json:"dishId"`
}

// Order is one dish-quantity line tied to a guest and a table.
// GuestID and TableNumber are nil when the guest or table has been
// removed since the order was placed.
type Order struct {
	ID             int64        `json:"id"`
	GuestID        *int64       `json:"guestId"`
	Guest          *Guest       `json:"guest"`
	TableNumber    *int64       `json:"tableNumber"`
	DishSnapshotID int64        `json:"dishSnapshotId"`
	DishSnapshot   DishSnapshot `json:"dishSnapshot"`
	Quantity       int64        `json:"quantity"`
	OrderHandlerID *int64       `json:"orderHandlerId"`
	OrderHandler   *Account     `json:"orderHandler"`
	Status         string       `json:"status"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Amount is the order line total, price times quantity
func (o Order) Amount() decimal.Decimal {
	return o.DishSnapshot.Price.Mul(decimal.NewFromInt(o.Quantity))
}

package order

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/grocery-console/internal/apierr"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a status the backend accepts.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is a placed customer order with the price snapshot of its items.
type Order struct {
	ID              int64
	UserID          int64
	Items           []Item
	Status          Status
	TotalAmount     decimal.Decimal
	ShippingAddress string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EntityID implements resource.Entity.
func (o Order) EntityID() int64 { return o.ID }

// Clone returns a copy of o with its own Items.
func (o Order) Clone() Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// Item is a single line of an order. Price is the unit price at order time.
type Item struct {
	ID          int64
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// PlaceInput is the payload for placing an order.
type PlaceInput struct {
	Items           []LineInput
	ShippingAddress string
}

// LineInput requests quantity units of a product.
type LineInput struct {
	ProductID int64
	Quantity  int
}

// Validate requires at least one line and positive quantities.
func (in PlaceInput) Validate() error {
	verr := apierr.NewValidationError()
	if len(in.Items) == 0 {
		verr.Add("items", "An order must contain at least one item.")
	}
	for i, item := range in.Items {
		if item.ProductID <= 0 {
			verr.Add(fmt.Sprintf("items[%d].product", i), "A product must be selected.")
		}
		if item.Quantity <= 0 {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), "Quantity must be greater than 0.")
		}
	}
	return verr.OrNil()
}

// Filter selects a page of orders.
type Filter struct {
	Page int
}

// PageNumber returns the requested page, treating zero as the first page.
func (f Filter) PageNumber() int {
	if f.Page == 0 {
		return 1
	}
	return f.Page
}

// AtPage returns a copy of f targeting page n.
func (f Filter) AtPage(n int) Filter {
	f.Page = n
	return f
}

// SameFilter is always true: orders are only paged.
func (Filter) SameFilter(Filter) bool { return true }

// Validate rejects negative pages.
func (f Filter) Validate() error {
	if f.Page < 0 {
		verr := apierr.NewValidationError()
		verr.Add("page", "Page must be 1 or greater.")
		return verr
	}
	return nil
}

package product

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/grocery-console/internal/apierr"
)

// Product is a catalog item. CategoryID is a weak reference: deleting a
// category is a backend concern and never cascades on the client.
type Product struct {
	ID           int64
	Name         string
	Description  string
	CategoryID   int64
	CategoryName string
	Price        decimal.Decimal
	Quantity     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EntityID implements resource.Entity.
func (p Product) EntityID() int64 { return p.ID }

// Category groups products.
type Category struct {
	ID          int64
	Name        string
	Description string
}

// EntityID implements resource.Entity.
func (c Category) EntityID() int64 { return c.ID }

// Input is the payload of product create and update requests.
type Input struct {
	Name        string
	Description string
	CategoryID  int64
	Price       decimal.Decimal
	Quantity    int
}

// Validate checks the required fields before the payload leaves the client.
func (in Input) Validate() error {
	verr := apierr.NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "This field is required.")
	}
	if in.CategoryID <= 0 {
		verr.Add("category", "A category must be selected.")
	}
	if in.Price.IsNegative() {
		verr.Add("price", "Price cannot be negative.")
	}
	if in.Quantity < 0 {
		verr.Add("quantity", "Quantity cannot be negative.")
	}
	return verr.OrNil()
}

// CategoryInput is the payload of category create and update requests.
type CategoryInput struct {
	Name        string
	Description string
}

// Validate checks the required fields.
func (in CategoryInput) Validate() error {
	verr := apierr.NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "This field is required.")
	}
	return verr.OrNil()
}

// Filter narrows a product listing. The zero value lists the unfiltered
// first page.
type Filter struct {
	Page       int
	Search     string
	CategoryID int64
	MinPrice   decimal.NullDecimal
	MaxPrice   decimal.NullDecimal
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

// SameFilter reports whether f and o narrow the listing the same way.
func (f Filter) SameFilter(o Filter) bool {
	return f.Search == o.Search &&
		f.CategoryID == o.CategoryID &&
		sameBound(f.MinPrice, o.MinPrice) &&
		sameBound(f.MaxPrice, o.MaxPrice)
}

func sameBound(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// Validate rejects negative pages and inverted or negative price ranges.
func (f Filter) Validate() error {
	verr := apierr.NewValidationError()
	if f.Page < 0 {
		verr.Add("page", "Page must be 1 or greater.")
	}
	if f.MinPrice.Valid && f.MinPrice.Decimal.IsNegative() {
		verr.Add("min_price", "Minimum price cannot be negative.")
	}
	if f.MaxPrice.Valid && f.MaxPrice.Decimal.IsNegative() {
		verr.Add("max_price", "Maximum price cannot be negative.")
	}
	if f.MinPrice.Valid && f.MaxPrice.Valid && f.MinPrice.Decimal.GreaterThan(f.MaxPrice.Decimal) {
		verr.Add("min_price", "Minimum price cannot exceed maximum price.")
	}
	return verr.OrNil()
}

// CategoryFilter selects a page of categories.
type CategoryFilter struct {
	Page int
}

// PageNumber returns the requested page, treating zero as the first page.
func (f CategoryFilter) PageNumber() int {
	if f.Page == 0 {
		return 1
	}
	return f.Page
}

// AtPage returns a copy of f targeting page n.
func (f CategoryFilter) AtPage(n int) CategoryFilter {
	f.Page = n
	return f
}

// SameFilter is always true: categories are only paged.
func (CategoryFilter) SameFilter(CategoryFilter) bool { return true }

// Validate rejects negative pages.
func (f CategoryFilter) Validate() error {
	if f.Page < 0 {
		verr := apierr.NewValidationError()
		verr.Add("page", "Page must be 1 or greater.")
		return verr
	}
	return nil
}

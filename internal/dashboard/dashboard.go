// Package dashboard folds already fetched listings into the admin summary.
package dashboard

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/grocery-console/internal/domain/order"
)

const (
	// TrailingMonths is the length of the monthly series.
	TrailingMonths = 6
	// RecentLimit caps the recent orders list.
	RecentLimit = 5
	// MonthLayout formats month labels, e.g. "Mar 2024".
	MonthLayout = "Jan 2006"
)

// Input is what the backend returned for the dashboard fan-out. The totals
// are the listing counts; Orders holds the fetched order records.
type Input struct {
	UserCount     int
	ProductCount  int
	CategoryCount int
	OrderCount    int
	Orders        []order.Order
}

// Month is one bucket of the trailing series.
type Month struct {
	Label   string
	Start   time.Time
	Revenue decimal.Decimal
	Orders  int
}

// Summary is the derived admin dashboard.
type Summary struct {
	Users      int
	Products   int
	Categories int
	Orders     int
	Revenue    decimal.Decimal

	Months []Month
	Recent []order.Order

	GeneratedAt time.Time
}

// Clone returns a copy of s that shares no slices with it.
func (s Summary) Clone() Summary {
	s.Months = slices.Clone(s.Months)
	if s.Recent != nil {
		recent := make([]order.Order, len(s.Recent))
		for i, o := range s.Recent {
			recent[i] = o.Clone()
		}
		s.Recent = recent
	}
	return s
}

// Aggregate computes the summary as of now. Months are calendar months in
// now's location, oldest first, ending with the month containing now. Orders
// outside the window still count towards Revenue.
func Aggregate(now time.Time, in Input) Summary {
	s := Summary{
		Users:       in.UserCount,
		Products:    in.ProductCount,
		Categories:  in.CategoryCount,
		Orders:      in.OrderCount,
		Revenue:     decimal.Zero,
		Months:      make([]Month, TrailingMonths),
		GeneratedAt: now,
	}

	loc := now.Location()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	for i := range s.Months {
		start := current.AddDate(0, i-(TrailingMonths-1), 0)
		s.Months[i] = Month{
			Label:   start.Format(MonthLayout),
			Start:   start,
			Revenue: decimal.Zero,
		}
	}

	for _, o := range in.Orders {
		s.Revenue = s.Revenue.Add(o.TotalAmount)
		if i := monthIndex(current, o.CreatedAt.In(loc)); i >= 0 {
			s.Months[i].Revenue = s.Months[i].Revenue.Add(o.TotalAmount)
			s.Months[i].Orders++
		}
	}

	s.Recent = Recent(in.Orders, RecentLimit)
	return s
}

// monthIndex returns the bucket of t in the window ending at current, or -1.
func monthIndex(current, t time.Time) int {
	diff := (current.Year()-t.Year())*12 + int(current.Month()-t.Month())
	if diff < 0 || diff >= TrailingMonths {
		return -1
	}
	return TrailingMonths - 1 - diff
}

// Recent returns up to limit orders, newest first. Orders created at the
// same instant keep their input order.
func Recent(orders []order.Order, limit int) []order.Order {
	out := slices.Clone(orders)
	slices.SortStableFunc(out, func(a, b order.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

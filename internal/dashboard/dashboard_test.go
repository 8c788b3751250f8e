package dashboard

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/grocery-console/internal/domain/order"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newOrder(id int64, total string, created time.Time) order.Order {
	return order.Order{ID: id, TotalAmount: dec(total), CreatedAt: created, Status: order.StatusPending}
}

func TestAggregate_NoOrders(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

	got := Aggregate(now, Input{UserCount: 3})

	want := []Month{
		{Label: "Oct 2023", Start: time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC), Revenue: decimal.Zero},
		{Label: "Nov 2023", Start: time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC), Revenue: decimal.Zero},
		{Label: "Dec 2023", Start: time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), Revenue: decimal.Zero},
		{Label: "Jan 2024", Start: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Revenue: decimal.Zero},
		{Label: "Feb 2024", Start: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), Revenue: decimal.Zero},
		{Label: "Mar 2024", Start: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), Revenue: decimal.Zero},
	}
	if diff := cmp.Diff(want, got.Months, decimalEqual); diff != "" {
		t.Errorf("months mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, got.Users)
	assert.True(t, got.Revenue.IsZero())
	assert.Empty(t, got.Recent)
}

func TestAggregate_EndOfMonth(t *testing.T) {
	// AddDate normalisation must not skip February when now is the 31st.
	now := time.Date(2024, time.July, 31, 23, 0, 0, 0, time.UTC)

	got := Aggregate(now, Input{})

	labels := make([]string, 0, len(got.Months))
	for _, m := range got.Months {
		labels = append(labels, m.Label)
	}
	assert.Equal(t, []string{"Feb 2024", "Mar 2024", "Apr 2024", "May 2024", "Jun 2024", "Jul 2024"}, labels)
}

func TestAggregate_Buckets(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	orders := []order.Order{
		newOrder(1, "10.50", time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)),
		newOrder(2, "4.50", time.Date(2024, time.March, 2, 8, 0, 0, 0, time.UTC)),
		newOrder(3, "20", time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC)),
		// Outside the window: counts towards revenue only.
		newOrder(4, "100", time.Date(2023, time.September, 30, 0, 0, 0, 0, time.UTC)),
	}

	got := Aggregate(now, Input{OrderCount: 4, Orders: orders})

	require.Len(t, got.Months, TrailingMonths)
	assert.True(t, dec("15").Equal(got.Months[5].Revenue))
	assert.Equal(t, 2, got.Months[5].Orders)
	assert.True(t, dec("20").Equal(got.Months[2].Revenue))
	assert.Equal(t, 1, got.Months[2].Orders)
	assert.Zero(t, got.Months[0].Orders)

	assert.True(t, dec("135").Equal(got.Revenue))
	assert.Equal(t, 4, got.Orders)
}

func TestAggregate_BucketsInNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, loc)
	// 22:00 UTC on Feb 29 is already March 1 in UTC+3.
	o := newOrder(1, "5", time.Date(2024, time.February, 29, 22, 0, 0, 0, time.UTC))

	got := Aggregate(now, Input{Orders: []order.Order{o}})

	assert.Equal(t, 1, got.Months[5].Orders)
	assert.Zero(t, got.Months[4].Orders)
}

func TestRecent(t *testing.T) {
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	var orders []order.Order
	for i := range 7 {
		orders = append(orders, newOrder(int64(i+1), "1", base.Add(time.Duration(i)*time.Hour)))
	}
	// Same instant as order 7; input order decides.
	orders = append(orders, newOrder(8, "1", base.Add(6*time.Hour)))

	got := Recent(orders, RecentLimit)

	ids := make([]int64, 0, len(got))
	for _, o := range got {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int64{7, 8, 6, 5, 4}, ids)
	assert.Equal(t, int64(1), orders[0].ID, "input is not reordered")
}

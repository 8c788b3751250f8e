package store

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/grocery-console/internal/dashboard"
	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/resource"
)

// Dashboard is the derived admin summary slice.
type Dashboard struct {
	s   *Store
	api Backend

	state resource.Value[dashboard.Summary]
}

// Load fetches the first page of users, products, categories and orders
// concurrently and folds them into a summary. Any failure rejects the whole
// load and keeps the previous summary.
func (d *Dashboard) Load(ctx context.Context) *Intent {
	o := op{
		domain: DomainDashboard,
		name:   "load",
		begin:  d.state.Begin,
		reject: d.state.Reject,
	}
	o.call = func(ctx context.Context) (func(), error) {
		var in dashboard.Input
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			page, err := d.api.Users.List(gctx, 1)
			if err != nil {
				return errors.Wrap(err, "users")
			}
			in.UserCount = page.Count
			return nil
		})
		g.Go(func() error {
			page, err := d.api.Products.List(gctx, product.Filter{})
			if err != nil {
				return errors.Wrap(err, "products")
			}
			in.ProductCount = page.Count
			return nil
		})
		g.Go(func() error {
			page, err := d.api.Categories.List(gctx, product.CategoryFilter{})
			if err != nil {
				return errors.Wrap(err, "categories")
			}
			in.CategoryCount = page.Count
			return nil
		})
		g.Go(func() error {
			page, err := d.api.Orders.List(gctx, order.Filter{})
			if err != nil {
				return errors.Wrap(err, "orders")
			}
			in.OrderCount = page.Count
			in.Orders = page.Results
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		summary := dashboard.Aggregate(d.s.now(), in)
		return func() { d.state.Set(summary) }, nil
	}
	return d.s.run(ctx, o)
}

// ClearError dismisses the last error.
func (d *Dashboard) ClearError() {
	d.s.mutate(DomainDashboard, "clear_error", func() resource.Status {
		d.state.ClearError()
		return d.state.Status
	})
}

// Snapshot returns a copy of the slice.
func (d *Dashboard) Snapshot() resource.Value[dashboard.Summary] {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	return d.state.Clone()
}

package store

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/domain/product"
)

// Products is the products slice.
type Products struct {
	*Collection[product.Product, product.Input, product.Filter]
	api ProductAPI
}

// BulkCreate creates all inputs in one request and appends the results.
// Inputs are validated up front; field keys are prefixed with "product_<i>."
// the way the backend reports them.
func (p *Products) BulkCreate(ctx context.Context, in []product.Input) *Intent {
	o := p.op("bulk_create")
	if err := ValidateBatch(in); err != nil {
		return p.s.rejectNow(o, err)
	}
	o.call = func(ctx context.Context) (func(), error) {
		created, err := p.api.BulkCreate(ctx, in)
		if err != nil {
			return nil, err
		}
		return func() { p.list.Append(created...) }, nil
	}
	return p.s.run(ctx, o)
}

// ValidateBatch validates every input of a bulk create.
func ValidateBatch(in []product.Input) error {
	verr := apierr.NewValidationError()
	if len(in) == 0 {
		verr.Add("products", "At least one product is required.")
	}
	for i, item := range in {
		err := item.Validate()
		if err == nil {
			continue
		}
		var itemErr *apierr.ValidationError
		if !errors.As(err, &itemErr) {
			return err
		}
		for field, msgs := range itemErr.Fields {
			for _, msg := range msgs {
				verr.Add(fmt.Sprintf("product_%d.%s", i, field), msg)
			}
		}
	}
	return verr.OrNil()
}

// Orders is the orders slice.
type Orders struct {
	*Collection[order.Order, order.PlaceInput, order.Filter]
	api OrderAPI
}

// Place creates an order for the current user.
func (o *Orders) Place(ctx context.Context, in order.PlaceInput) *Intent {
	return o.Create(ctx, in)
}

// SetStatus moves order id to status and replaces the loaded entry.
func (o *Orders) SetStatus(ctx context.Context, id int64, status order.Status) *Intent {
	req := o.op("set_status")
	if !status.Valid() {
		verr := apierr.NewValidationError()
		verr.Add("status", fmt.Sprintf("%q is not a valid choice.", status))
		return o.s.rejectNow(req, verr)
	}
	req.call = func(ctx context.Context) (func(), error) {
		updated, err := o.api.UpdateStatus(ctx, id, status)
		if err != nil {
			return nil, err
		}
		return func() { o.replace(updated) }, nil
	}
	return o.s.run(ctx, req)
}

package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/resource"
)

// OrderService covers /orders/. Customers only see their own orders; the
// backend applies that scoping.
type OrderService struct {
	c *Client
}

// List returns one page of orders visible to the caller.
func (s *OrderService) List(ctx context.Context, f order.Filter) (resource.PageOf[order.Order], error) {
	q := url.Values{"page": {strconv.Itoa(f.PageNumber())}}
	var page resource.PageOf[order.Order]
	err := s.c.do(ctx, request{method: http.MethodGet, path: "/orders/", query: q}, func(d *jx.Decoder) (err error) {
		page, err = decodePage(d, decodeOrder)
		return err
	})
	return page, err
}

// Get returns the order with id.
func (s *OrderService) Get(ctx context.Context, id int64) (order.Order, error) {
	var o order.Order
	err := s.c.do(ctx, request{method: http.MethodGet, path: idPath("/orders/", id)}, func(d *jx.Decoder) (err error) {
		o, err = decodeOrder(d)
		return err
	})
	return o, err
}

// Create places an order for the current user.
func (s *OrderService) Create(ctx context.Context, in order.PlaceInput) (order.Order, error) {
	var o order.Order
	err := s.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/orders/",
		body:   func(e *jx.Encoder) { encodePlaceInput(e, in) },
	}, func(d *jx.Decoder) (err error) {
		o, err = decodeOrder(d)
		return err
	})
	return o, err
}

// Update replaces the lines and address of order id.
func (s *OrderService) Update(ctx context.Context, id int64, in order.PlaceInput) (order.Order, error) {
	var o order.Order
	err := s.c.do(ctx, request{
		method: http.MethodPut,
		path:   idPath("/orders/", id),
		body:   func(e *jx.Encoder) { encodePlaceInput(e, in) },
	}, func(d *jx.Decoder) (err error) {
		o, err = decodeOrder(d)
		return err
	})
	return o, err
}

// Delete removes order id.
func (s *OrderService) Delete(ctx context.Context, id int64) error {
	return s.c.do(ctx, request{method: http.MethodDelete, path: idPath("/orders/", id)}, nil)
}

// UpdateStatus moves an order to status. Managers and admins only.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status order.Status) (order.Order, error) {
	var o order.Order
	err := s.c.do(ctx, request{
		method: http.MethodPost,
		path:   idPath("/orders/", id) + "update_status/",
		body: func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("status")
			e.Str(string(status))
			e.ObjEnd()
		},
	}, func(d *jx.Decoder) (err error) {
		o, err = decodeOrder(d)
		return err
	})
	return o, err
}

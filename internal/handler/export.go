package handler

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/grocery-console/internal/dashboard"
	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/resource"
	"github.com/xenking/grocery-console/internal/store"
)

// The command line prints the same JSON as the server.

func marshal(fn func(e *jx.Encoder)) []byte {
	e := &jx.Encoder{}
	e.SetIdent(2)
	fn(e)
	return append(e.Bytes(), '\n')
}

// MarshalProducts renders the products slice.
func MarshalProducts(l resource.List[product.Product]) []byte {
	return marshal(func(e *jx.Encoder) { encodeList(e, l, encodeProduct) })
}

// MarshalCategories renders the categories slice.
func MarshalCategories(l resource.List[product.Category]) []byte {
	return marshal(func(e *jx.Encoder) { encodeList(e, l, encodeCategory) })
}

// MarshalOrders renders the orders slice.
func MarshalOrders(l resource.List[order.Order]) []byte {
	return marshal(func(e *jx.Encoder) { encodeList(e, l, encodeOrder) })
}

// MarshalDashboard renders the dashboard slice.
func MarshalDashboard(v resource.Value[dashboard.Summary]) []byte {
	return marshal(func(e *jx.Encoder) { encodeValue(e, v, encodeSummary) })
}

// MarshalAuth renders the auth slice.
func MarshalAuth(a store.AuthState) []byte {
	return marshal(func(e *jx.Encoder) { encodeAuth(e, a) })
}

// ParseProductInputs reads a product batch, either a bare array or an
// object with a "products" array.
func ParseProductInputs(data []byte) ([]product.Input, error) {
	var out []product.Input
	item := func(d *jx.Decoder) error {
		in, err := decodeProductInput(d)
		out = append(out, in)
		return err
	}

	d := jx.DecodeBytes(data)
	switch d.Next() {
	case jx.Array:
		if err := d.Arr(item); err != nil {
			return nil, errors.Wrap(err, "decode products")
		}
	case jx.Object:
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			if key != "products" {
				return d.Skip()
			}
			return d.Arr(item)
		}); err != nil {
			return nil, errors.Wrap(err, "decode products")
		}
	default:
		return nil, errors.New("expected an array of products or an object with a products array")
	}
	return out, nil
}

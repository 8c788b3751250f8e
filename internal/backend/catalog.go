package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/resource"
)

// ProductService covers /products/.
type ProductService struct {
	c *Client
}

func productQuery(f product.Filter) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(f.PageNumber()))
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.CategoryID > 0 {
		q.Set("category", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.MinPrice.Valid {
		q.Set("min_price", f.MinPrice.Decimal.String())
	}
	if f.MaxPrice.Valid {
		q.Set("max_price", f.MaxPrice.Decimal.String())
	}
	return q
}

// List returns one page of products matching f.
func (s *ProductService) List(ctx context.Context, f product.Filter) (resource.PageOf[product.Product], error) {
	var page resource.PageOf[product.Product]
	err := s.c.do(ctx, request{method: http.MethodGet, path: "/products/", query: productQuery(f)}, func(d *jx.Decoder) (err error) {
		page, err = decodePage(d, decodeProduct)
		return err
	})
	return page, err
}

// Get returns the product with id.
func (s *ProductService) Get(ctx context.Context, id int64) (product.Product, error) {
	var p product.Product
	err := s.c.do(ctx, request{method: http.MethodGet, path: idPath("/products/", id)}, func(d *jx.Decoder) (err error) {
		p, err = decodeProduct(d)
		return err
	})
	return p, err
}

// Create adds a product and returns it as stored.
func (s *ProductService) Create(ctx context.Context, in product.Input) (product.Product, error) {
	var p product.Product
	err := s.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/products/",
		body:   func(e *jx.Encoder) { encodeProductInput(e, in) },
	}, func(d *jx.Decoder) (err error) {
		p, err = decodeProduct(d)
		return err
	})
	return p, err
}

// Update replaces the fields of product id.
func (s *ProductService) Update(ctx context.Context, id int64, in product.Input) (product.Product, error) {
	var p product.Product
	err := s.c.do(ctx, request{
		method: http.MethodPut,
		path:   idPath("/products/", id),
		body:   func(e *jx.Encoder) { encodeProductInput(e, in) },
	}, func(d *jx.Decoder) (err error) {
		p, err = decodeProduct(d)
		return err
	})
	return p, err
}

// Delete removes product id.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return s.c.do(ctx, request{method: http.MethodDelete, path: idPath("/products/", id)}, nil)
}

// BulkCreate creates all inputs in one request. The backend is
// all-or-nothing: any invalid entry rejects the whole batch.
func (s *ProductService) BulkCreate(ctx context.Context, in []product.Input) ([]product.Product, error) {
	var created []product.Product
	err := s.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/products/bulk_create/",
		body: func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("products")
			e.ArrStart()
			for _, p := range in {
				encodeProductInput(e, p)
			}
			e.ArrEnd()
			e.ObjEnd()
		},
	}, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "products" {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return err
				}
				created = append(created, p)
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	if len(created) != len(in) {
		return created, errors.Errorf("bulk create: sent %d products, backend returned %d", len(in), len(created))
	}
	return created, nil
}

// CategoryService covers /products/categories/.
type CategoryService struct {
	c *Client
}

// List returns one page of categories. The first page is requested without
// a page parameter.
func (s *CategoryService) List(ctx context.Context, f product.CategoryFilter) (resource.PageOf[product.Category], error) {
	var q url.Values
	if n := f.PageNumber(); n > 1 {
		q = url.Values{"page": {strconv.Itoa(n)}}
	}
	var page resource.PageOf[product.Category]
	err := s.c.do(ctx, request{method: http.MethodGet, path: "/products/categories/", query: q}, func(d *jx.Decoder) (err error) {
		page, err = decodePage(d, decodeCategory)
		return err
	})
	return page, err
}

// Get returns the category with id.
func (s *CategoryService) Get(ctx context.Context, id int64) (product.Category, error) {
	var c product.Category
	err := s.c.do(ctx, request{method: http.MethodGet, path: idPath("/products/categories/", id)}, func(d *jx.Decoder) (err error) {
		c, err = decodeCategory(d)
		return err
	})
	return c, err
}

// Create adds a category and returns it as stored.
func (s *CategoryService) Create(ctx context.Context, in product.CategoryInput) (product.Category, error) {
	var c product.Category
	err := s.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/products/categories/",
		body:   func(e *jx.Encoder) { encodeCategoryInput(e, in) },
	}, func(d *jx.Decoder) (err error) {
		c, err = decodeCategory(d)
		return err
	})
	return c, err
}

// Update replaces the fields of category id.
func (s *CategoryService) Update(ctx context.Context, id int64, in product.CategoryInput) (product.Category, error) {
	var c product.Category
	err := s.c.do(ctx, request{
		method: http.MethodPut,
		path:   idPath("/products/categories/", id),
		body:   func(e *jx.Encoder) { encodeCategoryInput(e, in) },
	}, func(d *jx.Decoder) (err error) {
		c, err = decodeCategory(d)
		return err
	})
	return c, err
}

// Delete removes category id.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	return s.c.do(ctx, request{method: http.MethodDelete, path: idPath("/products/categories/", id)}, nil)
}

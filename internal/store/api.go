package store

import (
	"context"

	"github.com/xenking/grocery-console/internal/backend"
	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/domain/user"
	"github.com/xenking/grocery-console/internal/resource"
)

// CRUD is the transport contract of a list-shaped domain.
type CRUD[T resource.Entity, In, Q any] interface {
	List(ctx context.Context, q Q) (resource.PageOf[T], error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, in In) (T, error)
	Update(ctx context.Context, id int64, in In) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Validator is a request schema checked before it reaches the transport.
type Validator interface {
	Validate() error
}

// Query is a listing filter that knows its page.
type Query[Q any] interface {
	Validator
	PageNumber() int
	AtPage(n int) Q
	// SameFilter reports whether both queries select the same items,
	// ignoring the page.
	SameFilter(o Q) bool
}

// ProductAPI is the products transport.
type ProductAPI interface {
	CRUD[product.Product, product.Input, product.Filter]
	BulkCreate(ctx context.Context, in []product.Input) ([]product.Product, error)
}

// CategoryAPI is the categories transport.
type CategoryAPI = CRUD[product.Category, product.CategoryInput, product.CategoryFilter]

// OrderAPI is the orders transport.
type OrderAPI interface {
	CRUD[order.Order, order.PlaceInput, order.Filter]
	UpdateStatus(ctx context.Context, id int64, status order.Status) (order.Order, error)
}

// AuthAPI is the token and account transport.
type AuthAPI interface {
	Login(ctx context.Context, creds user.Credentials) (backend.Token, error)
	CurrentUser(ctx context.Context) (user.User, error)
	Register(ctx context.Context, reg user.Registration) (user.User, error)
	UpdateProfile(ctx context.Context, upd user.ProfileUpdate) (user.User, error)
	ChangePassword(ctx context.Context, chg user.PasswordChange) error
}

// UserAPI lists accounts (admin only).
type UserAPI interface {
	List(ctx context.Context, page int) (resource.PageOf[user.User], error)
}

// Backend bundles the transport collaborators of every domain.
type Backend struct {
	Auth       AuthAPI
	Users      UserAPI
	Products   ProductAPI
	Categories CategoryAPI
	Orders     OrderAPI
}

// FromClient adapts the HTTP client.
func FromClient(c *backend.Client) Backend {
	return Backend{
		Auth:       c.Auth,
		Users:      c.Users,
		Products:   c.Products,
		Categories: c.Categories,
		Orders:     c.Orders,
	}
}

func (b Backend) validate() error {
	switch {
	case b.Auth == nil:
		return errMissing("auth")
	case b.Users == nil:
		return errMissing("users")
	case b.Products == nil:
		return errMissing("products")
	case b.Categories == nil:
		return errMissing("categories")
	case b.Orders == nil:
		return errMissing("orders")
	}
	return nil
}

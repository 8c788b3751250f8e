package store

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/internal/backend"
	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/domain/user"
	"github.com/xenking/grocery-console/internal/resource"
)

// --- Mock implementations ---

// fakeCRUD is an in-memory backend for one domain.
type fakeCRUD[T resource.Entity, In, Q any] struct {
	mu     sync.Mutex
	items  []T
	nextID int64
	build  func(id int64, in In) T
	calls  int

	// err, when set, fails every call.
	err error
	// list, when set, replaces the default listing.
	list func(ctx context.Context, q Q) (resource.PageOf[T], error)
}

func (f *fakeCRUD[T, In, Q]) seed(items ...T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		f.items = append(f.items, it)
		f.nextID = max(f.nextID, it.EntityID())
	}
}

func (f *fakeCRUD[T, In, Q]) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeCRUD[T, In, Q]) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCRUD[T, In, Q]) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeCRUD[T, In, Q]) List(ctx context.Context, q Q) (resource.PageOf[T], error) {
	if err := f.begin(); err != nil {
		return resource.PageOf[T]{}, err
	}
	if f.list != nil {
		return f.list(ctx, q)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return resource.PageOf[T]{Count: len(f.items), Results: slices.Clone(f.items)}, nil
}

func (f *fakeCRUD[T, In, Q]) Get(_ context.Context, id int64) (T, error) {
	var zero T
	if err := f.begin(); err != nil {
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.EntityID() == id {
			return it, nil
		}
	}
	return zero, errors.Wrap(apierr.ErrNotFound, "get")
}

func (f *fakeCRUD[T, In, Q]) Create(_ context.Context, in In) (T, error) {
	var zero T
	if err := f.begin(); err != nil {
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	it := f.build(f.nextID, in)
	f.items = append(f.items, it)
	return it, nil
}

func (f *fakeCRUD[T, In, Q]) Update(_ context.Context, id int64, in In) (T, error) {
	var zero T
	if err := f.begin(); err != nil {
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.EntityID() == id {
			f.items[i] = f.build(id, in)
			return f.items[i], nil
		}
	}
	return zero, errors.Wrap(apierr.ErrNotFound, "update")
}

func (f *fakeCRUD[T, In, Q]) Delete(_ context.Context, id int64) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.EntityID() == id {
			f.items = slices.Delete(f.items, i, i+1)
			return nil
		}
	}
	return errors.Wrap(apierr.ErrNotFound, "delete")
}

type fakeProducts struct {
	*fakeCRUD[product.Product, product.Input, product.Filter]
}

func (f fakeProducts) BulkCreate(ctx context.Context, in []product.Input) ([]product.Product, error) {
	out := make([]product.Product, 0, len(in))
	for _, it := range in {
		p, err := f.Create(ctx, it)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeOrders struct {
	*fakeCRUD[order.Order, order.PlaceInput, order.Filter]
}

func (f fakeOrders) UpdateStatus(_ context.Context, id int64, status order.Status) (order.Order, error) {
	if err := f.begin(); err != nil {
		return order.Order{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, o := range f.items {
		if o.ID == id {
			f.items[i].Status = status
			return f.items[i], nil
		}
	}
	return order.Order{}, errors.Wrap(apierr.ErrNotFound, "update status")
}

type fakeAuth struct {
	mu       sync.Mutex
	token    string
	user     user.User
	loginErr error
	meErr    error
	calls    int
}

func (f *fakeAuth) Login(_ context.Context, creds user.Credentials) (backend.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.loginErr != nil {
		return backend.Token{}, f.loginErr
	}
	f.user.Username = creds.Username
	return backend.Token{Access: f.token, Refresh: "refresh"}, nil
}

func (f *fakeAuth) CurrentUser(context.Context) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.user, f.meErr
}

func (f *fakeAuth) Register(_ context.Context, reg user.Registration) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return user.User{ID: 99, Username: reg.Username, Role: user.RoleCustomer}, nil
}

func (f *fakeAuth) UpdateProfile(_ context.Context, upd user.ProfileUpdate) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.user.FirstName = upd.FirstName
	f.user.LastName = upd.LastName
	f.user.Email = upd.Email
	f.user.Phone = upd.Phone
	return f.user, nil
}

func (f *fakeAuth) ChangePassword(context.Context, user.PasswordChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type fakeUsers struct {
	count int
	err   error
}

func (f fakeUsers) List(context.Context, int) (resource.PageOf[user.User], error) {
	return resource.PageOf[user.User]{Count: f.count}, f.err
}

type fakes struct {
	auth       *fakeAuth
	users      *fakeUsers
	products   fakeProducts
	categories *fakeCRUD[product.Category, product.CategoryInput, product.CategoryFilter]
	orders     fakeOrders
}

func newFakes() *fakes {
	return &fakes{
		auth: &fakeAuth{
			token: "access-token",
			user:  user.User{ID: 1, Username: "ann", Role: user.RoleAdmin},
		},
		users: &fakeUsers{},
		products: fakeProducts{&fakeCRUD[product.Product, product.Input, product.Filter]{
			build: func(id int64, in product.Input) product.Product {
				return product.Product{
					ID:          id,
					Name:        in.Name,
					Description: in.Description,
					CategoryID:  in.CategoryID,
					Price:       in.Price,
					Quantity:    in.Quantity,
				}
			},
		}},
		categories: &fakeCRUD[product.Category, product.CategoryInput, product.CategoryFilter]{
			build: func(id int64, in product.CategoryInput) product.Category {
				return product.Category{ID: id, Name: in.Name, Description: in.Description}
			},
		},
		orders: fakeOrders{&fakeCRUD[order.Order, order.PlaceInput, order.Filter]{
			build: func(id int64, in order.PlaceInput) order.Order {
				return order.Order{ID: id, Status: order.StatusPending, ShippingAddress: in.ShippingAddress, TotalAmount: decimal.Zero}
			},
		}},
	}
}

func (f *fakes) backend() Backend {
	return Backend{
		Auth:       f.auth,
		Users:      f.users,
		Products:   f.products,
		Categories: f.categories,
		Orders:     f.orders,
	}
}

// --- Helpers ---

func newProduct(id int64, name string) product.Product {
	return product.Product{ID: id, Name: name, CategoryID: 1, Price: decimal.NewFromInt(id), Quantity: 1}
}

func productInput(name string) product.Input {
	return product.Input{Name: name, CategoryID: 1, Price: decimal.RequireFromString("1.99"), Quantity: 3}
}

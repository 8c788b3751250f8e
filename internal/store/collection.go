package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/internal/resource"
)

// Collection is a list-shaped slice backed by a CRUD transport.
type Collection[T resource.Entity, In Validator, Q Query[Q]] struct {
	s      *Store
	domain Domain
	api    CRUD[T, In, Q]

	list  resource.List[T]
	query Q

	// Listing sequence numbers for the stale guard.
	issued  uint64
	applied uint64
}

func newCollection[T resource.Entity, In Validator, Q Query[Q]](s *Store, d Domain, api CRUD[T, In, Q]) *Collection[T, In, Q] {
	return &Collection[T, In, Q]{
		s:      s,
		domain: d,
		api:    api,
		list:   resource.NewList[T](),
	}
}

func (c *Collection[T, In, Q]) op(name string) op {
	return op{
		domain: c.domain,
		name:   name,
		begin:  c.list.Begin,
		reject: c.list.Reject,
	}
}

// List fetches the page of q and replaces Items and Page wholesale. q
// becomes the current query for Page.
func (c *Collection[T, In, Q]) List(ctx context.Context, q Q) *Intent {
	verr := q.Validate()

	var seq uint64
	o := op{
		domain: c.domain,
		name:   "list",
		begin: func() {
			c.list.Begin()
			if verr == nil {
				c.query = q
			}
			c.issued++
			seq = c.issued
		},
		reject: func(err error) {
			if c.stale(seq) {
				return
			}
			c.applied = seq
			c.list.Reject(err)
		},
	}
	if verr != nil {
		return c.s.rejectNow(o, verr)
	}

	o.call = func(ctx context.Context) (func(), error) {
		page, err := c.api.List(ctx, q)
		if err != nil {
			return nil, err
		}
		return func() {
			if c.stale(seq) {
				c.s.lg.Debug("Discarding stale listing",
					zap.String("domain", string(c.domain)),
					zap.Uint64("seq", seq),
					zap.Uint64("applied", c.applied),
				)
				return
			}
			c.applied = seq
			c.list.Replace(page, q.PageNumber())
		}, nil
	}
	return c.s.run(ctx, o)
}

// stale reports whether a listing issued as seq lost to a newer one.
// Must be called under the store lock.
func (c *Collection[T, In, Q]) stale(seq uint64) bool {
	return c.s.guard && seq < c.applied
}

// Filter makes q the current query and lists its first page.
func (c *Collection[T, In, Q]) Filter(ctx context.Context, q Q) *Intent {
	return c.List(ctx, q.AtPage(1))
}

// Page lists page n of the current query.
func (c *Collection[T, In, Q]) Page(ctx context.Context, n int) *Intent {
	if n < 1 {
		verr := apierr.NewValidationError()
		verr.Add("page", "Page must be 1 or greater.")
		return c.s.rejectNow(c.op("list"), verr)
	}
	return c.List(ctx, c.Query().AtPage(n))
}

// Browse lists q. A q that changes the current filter goes through Filter
// and starts over at page 1; otherwise its page of the current query is
// listed.
func (c *Collection[T, In, Q]) Browse(ctx context.Context, q Q) *Intent {
	if !q.SameFilter(c.Query()) {
		return c.Filter(ctx, q)
	}
	return c.Page(ctx, q.PageNumber())
}

// Get loads one entity into Selected. Items are not touched.
func (c *Collection[T, In, Q]) Get(ctx context.Context, id int64) *Intent {
	o := c.op("get")
	o.call = func(ctx context.Context) (func(), error) {
		item, err := c.api.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return func() { c.list.Select(item) }, nil
	}
	return c.s.run(ctx, o)
}

// Create validates in and appends the entity the backend returns.
func (c *Collection[T, In, Q]) Create(ctx context.Context, in In) *Intent {
	o := c.op("create")
	if err := in.Validate(); err != nil {
		return c.s.rejectNow(o, err)
	}
	o.call = func(ctx context.Context) (func(), error) {
		item, err := c.api.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		return func() { c.list.Append(item) }, nil
	}
	return c.s.run(ctx, o)
}

// Update validates in and replaces the loaded entry with the backend's copy,
// keeping its position.
func (c *Collection[T, In, Q]) Update(ctx context.Context, id int64, in In) *Intent {
	o := c.op("update")
	if err := in.Validate(); err != nil {
		return c.s.rejectNow(o, err)
	}
	o.call = func(ctx context.Context) (func(), error) {
		item, err := c.api.Update(ctx, id, in)
		if err != nil {
			return nil, err
		}
		return func() { c.replace(item) }, nil
	}
	return c.s.run(ctx, o)
}

// replace swaps item in place. Must be called under the store lock.
func (c *Collection[T, In, Q]) replace(item T) {
	if !c.list.ReplaceByID(item) {
		c.s.lg.Warn("Updated entity is not loaded",
			zap.String("domain", string(c.domain)),
			zap.Int64("id", item.EntityID()),
		)
	}
}

// Remove deletes id on the backend and filters it out of Items.
func (c *Collection[T, In, Q]) Remove(ctx context.Context, id int64) *Intent {
	o := c.op("remove")
	o.call = func(ctx context.Context) (func(), error) {
		if err := c.api.Delete(ctx, id); err != nil {
			return nil, err
		}
		return func() { c.list.RemoveByID(id) }, nil
	}
	return c.s.run(ctx, o)
}

// ClearError dismisses the last error.
func (c *Collection[T, In, Q]) ClearError() {
	c.s.mutate(c.domain, "clear_error", func() resource.Status {
		c.list.ClearError()
		return c.list.Status
	})
}

// ClearSelected drops the selected entity.
func (c *Collection[T, In, Q]) ClearSelected() {
	c.s.mutate(c.domain, "clear_selected", func() resource.Status {
		c.list.ClearSelected()
		return c.list.Status
	})
}

// Snapshot returns a copy of the slice.
func (c *Collection[T, In, Q]) Snapshot() resource.List[T] {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.list.Clone()
}

// Query returns the current query.
func (c *Collection[T, In, Q]) Query() Q {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.query
}

// Package resource models the request lifecycle of a remotely backed
// resource domain: a status, the last error and the data of the last
// successful settlement.
//
// The types here are plain values. They are mutated only by their owner
// (the store) while it holds its lock, and handed to readers as clones.
package resource

// Status is the lifecycle of the most recently initiated operation on a slice.
type Status uint8

const (
	Idle Status = iota
	Pending
	Fulfilled
	Rejected
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// PageSize is the fixed number of items the backend returns per page.
const PageSize = 10

// TotalPages returns ceil(totalCount / PageSize), zero for an empty collection.
func TotalPages(totalCount int) int {
	if totalCount <= 0 {
		return 0
	}
	return (totalCount + PageSize - 1) / PageSize
}

// Entity is implemented by every record that has a stable server-assigned id.
type Entity interface {
	EntityID() int64
}

// Cloner is implemented by values that hold slices or pointers of their own.
// Clone must return a copy that shares no memory with the receiver.
type Cloner[T any] interface {
	Clone() T
}

func cloneOf[T any](x T) T {
	if c, ok := any(x).(Cloner[T]); ok {
		return c.Clone()
	}
	return x
}

// Page is the pagination metadata of a list slice.
type Page struct {
	TotalCount  int
	PageSize    int
	CurrentPage int
}

// TotalPages returns the number of pages for the page's TotalCount.
func (p Page) TotalPages() int {
	return TotalPages(p.TotalCount)
}

// PageOf is one page of a listing as returned by the transport.
type PageOf[T any] struct {
	Count   int
	Next    string
	Prev    string
	Results []T
}

// List is the state of a list-shaped resource domain.
type List[T Entity] struct {
	Status   Status
	Err      error
	Items    []T
	Page     Page
	Selected *T
}

// NewList returns an idle, empty list.
func NewList[T Entity]() List[T] {
	return List[T]{Page: Page{PageSize: PageSize, CurrentPage: 1}}
}

// Begin marks a new operation as started and clears the previous error.
func (l *List[T]) Begin() {
	l.Status = Pending
	l.Err = nil
}

// Reject records err. Items, Page and Selected are left untouched.
func (l *List[T]) Reject(err error) {
	l.Status = Rejected
	l.Err = err
}

// Replace supersedes Items and Page with a fresh listing.
func (l *List[T]) Replace(p PageOf[T], page int) {
	if page < 1 {
		page = 1
	}
	l.Items = append(make([]T, 0, len(p.Results)), p.Results...)
	l.Page = Page{TotalCount: p.Count, PageSize: PageSize, CurrentPage: page}
	l.fulfill()
}

// Append adds an entity created on the server.
func (l *List[T]) Append(items ...T) {
	l.Items = append(l.Items, items...)
	l.Page.TotalCount += len(items)
	l.fulfill()
}

// ReplaceByID swaps the entry with item's id in place. It reports false when
// no such entry is loaded, in which case Items are unchanged.
func (l *List[T]) ReplaceByID(item T) bool {
	l.fulfill()
	id := item.EntityID()
	for i := range l.Items {
		if l.Items[i].EntityID() == id {
			l.Items[i] = item
			if l.Selected != nil && (*l.Selected).EntityID() == id {
				l.Select(item)
			}
			return true
		}
	}
	return false
}

// RemoveByID filters id out of Items. It reports whether an entry was removed.
func (l *List[T]) RemoveByID(id int64) bool {
	l.fulfill()
	if l.Selected != nil && (*l.Selected).EntityID() == id {
		l.Selected = nil
	}
	for i := range l.Items {
		if l.Items[i].EntityID() == id {
			l.Items = append(l.Items[:i:i], l.Items[i+1:]...)
			if l.Page.TotalCount > 0 {
				l.Page.TotalCount--
			}
			return true
		}
	}
	return false
}

// Select stores item in the selected-entity side channel.
func (l *List[T]) Select(item T) {
	l.fulfill()
	v := item
	l.Selected = &v
}

// ClearError dismisses the last error without starting an operation.
func (l *List[T]) ClearError() {
	l.Err = nil
	if l.Status == Rejected {
		l.Status = Idle
	}
}

// ClearSelected drops the selected entity.
func (l *List[T]) ClearSelected() {
	l.Selected = nil
}

// Clone returns a copy that shares no memory with l.
func (l List[T]) Clone() List[T] {
	out := l
	if l.Items != nil {
		out.Items = make([]T, len(l.Items))
		for i, item := range l.Items {
			out.Items[i] = cloneOf(item)
		}
	}
	if l.Selected != nil {
		v := cloneOf(*l.Selected)
		out.Selected = &v
	}
	return out
}

// Message returns the user-visible text of the last error.
func (l List[T]) Message() string {
	if l.Err == nil {
		return ""
	}
	return l.Err.Error()
}

func (l *List[T]) fulfill() {
	l.Status = Fulfilled
	l.Err = nil
}

// Value is the state of a singleton-shaped resource domain.
type Value[T any] struct {
	Status Status
	Err    error
	Value  *T
}

// Begin marks a new operation as started and clears the previous error.
func (v *Value[T]) Begin() {
	v.Status = Pending
	v.Err = nil
}

// Reject records err and keeps the previous value.
func (v *Value[T]) Reject(err error) {
	v.Status = Rejected
	v.Err = err
}

// Set stores x as the fulfilled value.
func (v *Value[T]) Set(x T) {
	v.Value = &x
	v.Status = Fulfilled
	v.Err = nil
}

// Fulfill marks the operation as settled successfully without changing the value.
func (v *Value[T]) Fulfill() {
	v.Status = Fulfilled
	v.Err = nil
}

// Reset returns the slice to its initial idle, empty state.
func (v *Value[T]) Reset() {
	*v = Value[T]{}
}

// ClearError dismisses the last error.
func (v *Value[T]) ClearError() {
	v.Err = nil
	if v.Status == Rejected {
		v.Status = Idle
	}
}

// Clone returns a copy that shares no memory with v.
func (v Value[T]) Clone() Value[T] {
	out := v
	if v.Value != nil {
		x := cloneOf(*v.Value)
		out.Value = &x
	}
	return out
}

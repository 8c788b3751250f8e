// Package store tracks the request lifecycle of every remotely backed
// resource domain of the console.
//
// Operations return immediately with an *Intent and run on their own
// goroutine. A settlement is applied to its slice atomically under the store
// lock; readers take deep-copied snapshots and never wait for the network.
//
// By default the slice reflects whichever settlement finished last, even if
// it was issued earlier than one that already settled. WithStaleGuard makes
// listings drop such out-of-order settlements instead.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/resource"
	"github.com/xenking/grocery-console/internal/session"
)

var (
	// ErrClosed is returned by intents issued after Close.
	ErrClosed = errors.New("store is closed")
	// ErrNoSession is returned when an operation needs a token and none is stored.
	ErrNoSession = errors.New("not logged in")
)

func errMissing(what string) error {
	return errors.Errorf("store: %s transport is required", what)
}

// Domain names a resource slice.
type Domain string

const (
	DomainProducts   Domain = "products"
	DomainCategories Domain = "categories"
	DomainOrders     Domain = "orders"
	DomainAuth       Domain = "auth"
	DomainDashboard  Domain = "dashboard"
)

// Change is published on every slice transition.
type Change struct {
	Domain Domain
	Op     string
	Status resource.Status
}

const subscriberBuffer = 64

type options struct {
	lg         *zap.Logger
	staleGuard bool
	onInvalid  func()
	meter      metric.MeterProvider
	tracer     trace.TracerProvider
	now        func() time.Time
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger. Settlements are logged at debug level.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.lg = lg }
}

// WithStaleGuard discards listing settlements that were issued before the
// latest listing already applied to the same slice.
func WithStaleGuard() Option {
	return func(o *options) { o.staleGuard = true }
}

// WithSessionInvalidHandler registers fn to run after a 401 cleared the
// session. Consumers use it to send the user back to the login entry point.
func WithSessionInvalidHandler(fn func()) Option {
	return func(o *options) { o.onInvalid = fn }
}

// WithMeterProvider sets the meter provider for intent metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meter = mp }
}

// WithTracerProvider sets the tracer provider for intent spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// WithClock overrides time.Now for token expiry checks and the dashboard.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Categories is the categories slice.
type Categories = Collection[product.Category, product.CategoryInput, product.CategoryFilter]

// Store owns every resource slice.
type Store struct {
	mu     sync.RWMutex // guards the slices and closed
	closed bool
	wg     sync.WaitGroup

	lg        *zap.Logger
	session   session.Store
	guard     bool
	onInvalid func()
	now       func() time.Time
	tracer    trace.Tracer
	metrics   *metrics

	subMu sync.Mutex
	subs  map[chan Change]struct{}

	products   *Products
	categories *Categories
	orders     *Orders
	auth       *Auth
	dashboard  *Dashboard
}

// New creates a store with empty slices. A token found in sess is kept
// unless it is a JWT whose expiry has passed, in which case it is cleared.
func New(api Backend, sess session.Store, opts ...Option) (*Store, error) {
	if err := api.validate(); err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("store: session store is required")
	}

	o := options{
		lg:     zap.NewNop(),
		meter:  metricnoop.NewMeterProvider(),
		tracer: tracenoop.NewTracerProvider(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	m, err := newMetrics(o.meter)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}

	s := &Store{
		lg:        o.lg,
		session:   sess,
		guard:     o.staleGuard,
		onInvalid: o.onInvalid,
		now:       o.now,
		tracer:    o.tracer.Tracer(instrumentationName),
		metrics:   m,
		subs:      make(map[chan Change]struct{}),
	}
	s.products = &Products{
		Collection: newCollection(s, DomainProducts, CRUD[product.Product, product.Input, product.Filter](api.Products)),
		api:        api.Products,
	}
	s.categories = newCollection(s, DomainCategories, api.Categories)
	s.orders = &Orders{
		Collection: newCollection(s, DomainOrders, CRUD[order.Order, order.PlaceInput, order.Filter](api.Orders)),
		api:        api.Orders,
	}
	s.auth = &Auth{s: s, api: api.Auth}
	s.dashboard = &Dashboard{s: s, api: api}

	s.restoreSession()
	return s, nil
}

func (s *Store) restoreSession() {
	token := s.session.Token()
	if token == "" {
		return
	}
	claims, err := session.ParseClaims(token)
	if err != nil {
		// Opaque tokens are left for the backend to judge.
		return
	}
	if claims.Expired(s.now()) {
		s.lg.Info("Discarding expired session", zap.Time("expired_at", claims.ExpiresAt))
		if err := s.session.Clear(); err != nil {
			s.lg.Warn("Failed to clear expired session", zap.Error(err))
		}
	}
}

// Products returns the products slice.
func (s *Store) Products() *Products { return s.products }

// Categories returns the categories slice.
func (s *Store) Categories() *Categories { return s.categories }

// Orders returns the orders slice.
func (s *Store) Orders() *Orders { return s.orders }

// Auth returns the authentication slice.
func (s *Store) Auth() *Auth { return s.auth }

// Dashboard returns the admin dashboard slice.
func (s *Store) Dashboard() *Dashboard { return s.dashboard }

// Subscribe returns a channel receiving every Change. Slow subscribers miss
// changes rather than block the store; a snapshot read after any received
// change is always current.
func (s *Store) Subscribe() <-chan Change {
	ch := make(chan Change, subscriberBuffer)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs == nil {
		close(ch)
		return ch
	}
	s.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (s *Store) Unsubscribe(ch <-chan Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for c := range s.subs {
		if c == ch {
			delete(s.subs, c)
			close(c)
			return
		}
	}
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- c:
		default:
			s.metrics.dropped.Add(context.Background(), 1)
		}
	}
}

// Close waits for in-flight intents to settle and closes all subscriptions.
// Intents issued afterwards fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()

	s.subMu.Lock()
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	s.subMu.Unlock()
	return nil
}

// op describes one intent. begin and reject run under the store lock; call
// runs without it and returns the mutation to apply on success.
type op struct {
	domain Domain
	name   string
	begin  func()
	reject func(err error)
	call   func(ctx context.Context) (apply func(), err error)
}

func (s *Store) run(ctx context.Context, o op) *Intent {
	it := newIntent()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		it.finish(ErrClosed)
		return it
	}
	o.begin()
	s.wg.Add(1)
	s.mu.Unlock()

	s.publish(Change{Domain: o.domain, Op: o.name, Status: resource.Pending})

	go func() {
		defer s.wg.Done()
		it.finish(s.settle(ctx, o))
	}()
	return it
}

// rejectNow settles o synchronously with err, without calling the transport.
func (s *Store) rejectNow(o op, err error) *Intent {
	it := newIntent()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		it.finish(ErrClosed)
		return it
	}
	o.begin()
	o.reject(err)
	s.mu.Unlock()

	s.lg.Debug("Intent rejected locally",
		zap.String("domain", string(o.domain)),
		zap.String("op", o.name),
		zap.Error(err),
	)
	s.publish(Change{Domain: o.domain, Op: o.name, Status: resource.Rejected})
	it.finish(err)
	return it
}

func (s *Store) settle(ctx context.Context, o op) error {
	ctx, span := s.tracer.Start(ctx, "store."+string(o.domain)+"."+o.name,
		trace.WithAttributes(attribute.String("domain", string(o.domain))),
	)
	defer span.End()

	start := time.Now()
	apply, err := o.call(ctx)

	s.mu.Lock()
	switch {
	case err != nil:
		o.reject(err)
	case apply != nil:
		apply()
	}
	s.mu.Unlock()

	took := time.Since(start)
	s.metrics.observe(ctx, o.domain, o.name, err, took)
	s.lg.Debug("Intent settled",
		zap.String("domain", string(o.domain)),
		zap.String("op", o.name),
		zap.Duration("duration", took),
		zap.Error(err),
	)

	status := resource.Fulfilled
	if err != nil {
		status = resource.Rejected
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.publish(Change{Domain: o.domain, Op: o.name, Status: status})

	if errors.Is(err, apierr.ErrUnauthorized) {
		s.invalidateSession(err)
	}
	return err
}

// invalidateSession drops the token and the current user after a 401.
func (s *Store) invalidateSession(cause error) {
	if err := s.session.Clear(); err != nil {
		s.lg.Warn("Failed to clear session", zap.Error(err))
	}

	s.mu.Lock()
	s.auth.expire(cause)
	s.mu.Unlock()

	s.lg.Info("Session invalidated", zap.Error(cause))
	s.publish(Change{Domain: DomainAuth, Op: "invalidate", Status: resource.Rejected})
	if s.onInvalid != nil {
		s.onInvalid()
	}
}

// mutate applies fn to a slice synchronously and publishes the resulting status.
func (s *Store) mutate(d Domain, name string, fn func() resource.Status) {
	s.mu.Lock()
	status := fn()
	s.mu.Unlock()
	s.publish(Change{Domain: d, Op: name, Status: status})
}

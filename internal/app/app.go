// Package app wires the console: configuration, the backend client, the
// session file and the store, plus the JSON server of `grocer serve`.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/grocery-console/internal/backend"
	"github.com/xenking/grocery-console/internal/handler"
	"github.com/xenking/grocery-console/internal/session"
	"github.com/xenking/grocery-console/internal/store"
	"github.com/xenking/grocery-console/pkg/health"
	"github.com/xenking/grocery-console/pkg/httpmiddleware"
)

// Console is the store wired to the REST backend and the session file.
type Console struct {
	Client  *backend.Client
	Session *session.File
	Store   *store.Store
}

// NewConsole builds the console. t may be nil, in which case telemetry is
// disabled.
func NewConsole(lg *zap.Logger, t httpmiddleware.Telemetry, cfg *Config, opts ...store.Option) (*Console, error) {
	sess, err := session.OpenFile(cfg.SessionFile)
	if err != nil {
		return nil, errors.Wrap(err, "open session")
	}

	clientOpts := []backend.Option{
		backend.WithTokenSource(sess),
		backend.WithTimeout(cfg.Timeout),
	}
	storeOpts := []store.Option{store.WithLogger(lg.Named("store"))}
	if t != nil {
		clientOpts = append(clientOpts, backend.WithTelemetry(t.TracerProvider(), t.MeterProvider()))
		storeOpts = append(storeOpts,
			store.WithTracerProvider(t.TracerProvider()),
			store.WithMeterProvider(t.MeterProvider()),
		)
	}
	if cfg.StaleGuard {
		storeOpts = append(storeOpts, store.WithStaleGuard())
	}

	client, err := backend.New(cfg.BackendURL, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create backend client")
	}
	st, err := store.New(store.FromClient(client), sess, append(storeOpts, opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, "create store")
	}

	return &Console{Client: client, Session: sess, Store: st}, nil
}

// Close waits for in-flight intents.
func (c *Console) Close() error {
	return c.Store.Close()
}

// Serve runs the JSON server until ctx is done, then drains it gracefully.
func Serve(ctx context.Context, lg *zap.Logger, t httpmiddleware.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Serve.Addr),
		zap.String("backend", cfg.BackendURL),
	)

	console, err := NewConsole(lg, t, cfg, store.WithSessionInvalidHandler(func() {
		lg.Warn("Session expired, the UI must log in again")
	}))
	if err != nil {
		return err
	}
	defer func() { _ = console.Close() }()

	if console.Session.Token() != "" {
		console.Store.Auth().LoadCurrentUser(ctx)
	}

	healthSvc := health.New()
	healthSvc.Add(health.Check{
		Name:    "backend",
		Kind:    health.Readiness,
		Timeout: 5 * time.Second,
		Func:    health.BackendCheck(console.Client),
	})
	healthSvc.Add(health.Check{
		Name: "goroutines",
		Kind: health.Liveness,
		Func: health.GoroutineCountCheck(10000),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.New(handler.Config{
		LoginThrottle: httpmiddleware.Throttle(ctx, httpmiddleware.ThrottleConfig{
			MaxFailures: cfg.Serve.LoginThrottle.MaxFailures,
			Window:      cfg.Serve.LoginThrottle.Window,
		}),
	}, console.Store).Register(mux)

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	mws := []httpmiddleware.Middleware{
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins:     cfg.Serve.CORS.Origins,
			Headers:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			Credentials: cfg.Serve.CORS.Credentials,
			MaxAge:      24 * time.Hour,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
	}
	if t != nil {
		mws = append(mws, httpmiddleware.Instrument("grocer", routeFinder, t))
	}
	mws = append(mws,
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Serve.Addr,
		Handler:           httpmiddleware.Wrap(mux, mws...),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(gctx, cfg.Serve.HealthInterval)
	})
	g.Go(func() error {
		return console.Session.Watch(gctx, func(token string) {
			console.Store.Auth().SessionChanged(gctx, token)
		})
	})
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Serve.Graceful.ReadinessDelay))
		time.Sleep(cfg.Serve.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Serve.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Serve.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Serve.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

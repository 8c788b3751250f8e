// Package handler serves the console store over JSON for a browser UI.
//
// Every endpoint issues one store intent, waits for it to settle and renders
// the snapshot of the affected slice. The response status reflects the
// intent's own outcome.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/internal/domain/user"
	"github.com/xenking/grocery-console/internal/store"
	"github.com/xenking/grocery-console/pkg/httpmiddleware"
)

// loginPath is where a UI sends the user once the session is gone.
const loginPath = "/login"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// LoginThrottle wraps POST /api/session. No throttling when nil.
	LoginThrottle httpmiddleware.Middleware
}

// Handler routes JSON requests to the store.
type Handler struct {
	st       *store.Store
	throttle httpmiddleware.Middleware
}

// New returns a Handler serving st.
func New(cfg Config, st *store.Store) *Handler {
	h := &Handler{st: st, throttle: cfg.LoginThrottle}
	if h.throttle == nil {
		h.throttle = func(next http.Handler) http.Handler { return next }
	}
	return h
}

var (
	staff = []user.Role{user.RoleAdmin, user.RoleManager}
	admin = []user.Role{user.RoleAdmin}
)

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("POST /api/session", h.throttle(http.HandlerFunc(h.login)))
	mux.HandleFunc("GET /api/session", h.currentUser)
	mux.HandleFunc("DELETE /api/session", h.logout)
	mux.HandleFunc("POST /api/users", h.register)
	mux.Handle("PUT /api/session/profile", h.authorized(nil, h.updateProfile))
	mux.Handle("PUT /api/session/password", h.authorized(nil, h.changePassword))

	mux.Handle("GET /api/products", h.authorized(nil, h.listProducts))
	mux.Handle("POST /api/products", h.authorized(staff, h.createProduct))
	mux.Handle("POST /api/products/bulk", h.authorized(staff, h.bulkCreateProducts))
	mux.Handle("GET /api/products/{id}", h.authorized(nil, h.getProduct))
	mux.Handle("PUT /api/products/{id}", h.authorized(staff, h.updateProduct))
	mux.Handle("DELETE /api/products/{id}", h.authorized(staff, h.removeProduct))

	mux.Handle("GET /api/categories", h.authorized(nil, h.listCategories))
	mux.Handle("POST /api/categories", h.authorized(staff, h.createCategory))
	mux.Handle("GET /api/categories/{id}", h.authorized(nil, h.getCategory))
	mux.Handle("PUT /api/categories/{id}", h.authorized(staff, h.updateCategory))
	mux.Handle("DELETE /api/categories/{id}", h.authorized(staff, h.removeCategory))

	mux.Handle("GET /api/orders", h.authorized(staff, h.listOrders))
	mux.Handle("POST /api/orders", h.authorized(nil, h.placeOrder))
	mux.Handle("POST /api/orders/{id}/status", h.authorized(staff, h.setOrderStatus))

	mux.Handle("GET /api/dashboard", h.authorized(admin, h.dashboard))
}

// authorized admits requests of a logged in user holding any of roles. The
// current user is loaded on first use.
func (h *Handler) authorized(roles []user.Role, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		auth := h.st.Auth()

		snap := auth.Snapshot()
		if !snap.Authenticated {
			h.fail(w, r, store.ErrNoSession)
			return
		}
		if snap.User == nil {
			if err := auth.LoadCurrentUser(ctx).Wait(ctx); err != nil {
				h.fail(w, r, err)
				return
			}
		}
		if !auth.HasRole(roles...) {
			h.fail(w, r, errors.Wrap(apierr.ErrForbidden, "role"))
			return
		}
		next(w, r)
	})
}

// await waits for it and returns the status to answer with.
func await(ctx context.Context, it *store.Intent, ok int) (int, error) {
	if err := it.Wait(ctx); err != nil {
		return statusOf(err), err
	}
	return ok, nil
}

func statusOf(err error) int {
	var (
		verr *apierr.ValidationError
		terr *apierr.TransportError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case unauthorized(err):
		return http.StatusUnauthorized
	case errors.Is(err, apierr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apierr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &terr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func unauthorized(err error) bool {
	return errors.Is(err, apierr.ErrUnauthorized) || errors.Is(err, store.ErrNoSession)
}

// respond writes status and the JSON produced by fn.
func respond(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// fail answers with the error object alone. Used when no slice was touched.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	respond(w, status, func(e *jx.Encoder) { encodeError(e, err) })
}

// pathID parses the {id} wildcard.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		verr := apierr.NewValidationError()
		verr.Add("id", "A valid id is required.")
		return 0, verr
	}
	return id, nil
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, key string, verr *apierr.ValidationError) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		verr.Add(key, "Enter a whole number of 1 or more.")
		return 0
	}
	return n
}

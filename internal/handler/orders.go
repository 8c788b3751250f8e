package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/internal/domain/order"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	verr := apierr.NewValidationError()
	page := queryInt(r, "page", verr)
	if err := verr.OrNil(); err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	orders := h.st.Orders()
	status, _ := await(ctx, orders.Browse(ctx, order.Filter{Page: int(page)}), http.StatusOK)
	renderList(w, status, orders.Snapshot(), encodeOrder)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	in, err := decode(r, decodePlaceInput)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	orders := h.st.Orders()
	status, _ := await(ctx, orders.Place(ctx, in), http.StatusCreated)
	renderList(w, status, orders.Snapshot(), encodeOrder)
}

func (h *Handler) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	next, err := decode(r, decodeStatus)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	orders := h.st.Orders()
	status, _ := await(ctx, orders.SetStatus(ctx, id, next), http.StatusOK)
	renderList(w, status, orders.Snapshot(), encodeOrder)
}

// dashboard reloads the summary. ?cached=1 renders the last summary without
// a reload.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dash := h.st.Dashboard()

	status := http.StatusOK
	if r.URL.Query().Get("cached") != "1" {
		status, _ = await(ctx, dash.Load(ctx), http.StatusOK)
	}
	snap := dash.Snapshot()
	respond(w, status, func(e *jx.Encoder) { encodeValue(e, snap, encodeSummary) })
}

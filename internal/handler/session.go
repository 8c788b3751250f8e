package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/grocery-console/internal/store"
)

func (h *Handler) renderAuth(w http.ResponseWriter, status int) {
	snap := h.st.Auth().Snapshot()
	respond(w, status, func(e *jx.Encoder) { encodeAuth(e, snap) })
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	creds, err := decode(r, decodeCredentials)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	status, _ := await(ctx, h.st.Auth().Login(ctx, creds), http.StatusOK)
	h.renderAuth(w, status)
}

// currentUser renders the auth slice, loading the user when a token is
// stored but no user is known yet or ?refresh=1 asks for it.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auth := h.st.Auth()

	snap := auth.Snapshot()
	if !snap.Authenticated {
		h.fail(w, r, store.ErrNoSession)
		return
	}
	status := http.StatusOK
	if snap.User == nil || r.URL.Query().Get("refresh") == "1" {
		status, _ = await(ctx, auth.LoadCurrentUser(ctx), http.StatusOK)
	}
	h.renderAuth(w, status)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.st.Auth().Logout(); err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderAuth(w, http.StatusOK)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	reg, err := decode(r, decodeRegistration)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	status, _ := await(ctx, h.st.Auth().Register(ctx, reg), http.StatusCreated)
	h.renderAuth(w, status)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	upd, err := decode(r, decodeProfile)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	status, _ := await(ctx, h.st.Auth().UpdateProfile(ctx, upd), http.StatusOK)
	h.renderAuth(w, status)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	chg, err := decode(r, decodePasswordChange)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	status, _ := await(ctx, h.st.Auth().ChangePassword(ctx, chg), http.StatusOK)
	h.renderAuth(w, status)
}

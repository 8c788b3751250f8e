package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/resource"
)

func renderList[T resource.Entity](w http.ResponseWriter, status int, l resource.List[T], item func(*jx.Encoder, T)) {
	respond(w, status, func(e *jx.Encoder) { encodeList(e, l, item) })
}

// productFilter reads page, search, category, min_price and max_price.
func productFilter(r *http.Request) (product.Filter, error) {
	verr := apierr.NewValidationError()
	q := r.URL.Query()
	f := product.Filter{
		Page:       int(queryInt(r, "page", verr)),
		Search:     strings.TrimSpace(q.Get("search")),
		CategoryID: queryInt(r, "category", verr),
	}
	for key, dst := range map[string]*decimal.NullDecimal{
		"min_price": &f.MinPrice,
		"max_price": &f.MaxPrice,
	} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			verr.Add(key, "Enter a number.")
			continue
		}
		*dst = decimal.NewNullDecimal(v)
	}
	return f, verr.OrNil()
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := productFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	products := h.st.Products()
	status, _ := await(ctx, products.Browse(ctx, f), http.StatusOK)
	renderList(w, status, products.Snapshot(), encodeProduct)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	products := h.st.Products()
	status, _ := await(ctx, products.Get(ctx, id), http.StatusOK)
	renderList(w, status, products.Snapshot(), encodeProduct)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	in, err := decode(r, decodeProductInput)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	products := h.st.Products()
	status, _ := await(ctx, products.Create(ctx, in), http.StatusCreated)
	renderList(w, status, products.Snapshot(), encodeProduct)
}

func (h *Handler) bulkCreateProducts(w http.ResponseWriter, r *http.Request) {
	in, err := decode(r, func(d *jx.Decoder) ([]product.Input, error) {
		raw, err := d.Raw()
		if err != nil {
			return nil, err
		}
		return ParseProductInputs(raw)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	products := h.st.Products()
	status, _ := await(ctx, products.BulkCreate(ctx, in), http.StatusCreated)
	renderList(w, status, products.Snapshot(), encodeProduct)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := decode(r, decodeProductInput)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	products := h.st.Products()
	status, _ := await(ctx, products.Update(ctx, id, in), http.StatusOK)
	renderList(w, status, products.Snapshot(), encodeProduct)
}

func (h *Handler) removeProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	products := h.st.Products()
	status, _ := await(ctx, products.Remove(ctx, id), http.StatusOK)
	renderList(w, status, products.Snapshot(), encodeProduct)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	verr := apierr.NewValidationError()
	page := queryInt(r, "page", verr)
	if err := verr.OrNil(); err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	categories := h.st.Categories()
	status, _ := await(ctx, categories.Browse(ctx, product.CategoryFilter{Page: int(page)}), http.StatusOK)
	renderList(w, status, categories.Snapshot(), encodeCategory)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	categories := h.st.Categories()
	status, _ := await(ctx, categories.Get(ctx, id), http.StatusOK)
	renderList(w, status, categories.Snapshot(), encodeCategory)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	in, err := decode(r, decodeCategoryInput)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	categories := h.st.Categories()
	status, _ := await(ctx, categories.Create(ctx, in), http.StatusCreated)
	renderList(w, status, categories.Snapshot(), encodeCategory)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := decode(r, decodeCategoryInput)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	categories := h.st.Categories()
	status, _ := await(ctx, categories.Update(ctx, id, in), http.StatusOK)
	renderList(w, status, categories.Snapshot(), encodeCategory)
}

func (h *Handler) removeCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	categories := h.st.Categories()
	status, _ := await(ctx, categories.Remove(ctx, id), http.StatusOK)
	renderList(w, status, categories.Snapshot(), encodeCategory)
}

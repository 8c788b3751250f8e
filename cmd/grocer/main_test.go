package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/session"
)

// backend is a fake REST API that records what the console sent.
type backend struct {
	mu      sync.Mutex
	queries []string
	batches []int
}

func (b *backend) seen() ([]string, []int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.queries), slices.Clone(b.batches)
}

func (b *backend) routes(t *testing.T) http.Handler {
	reply := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				reply(w, http.StatusUnauthorized, `{"detail": "Authentication credentials were not provided."}`)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"secret"`) {
			reply(w, http.StatusUnauthorized, `{"detail": "No active account found with the given credentials"}`)
			return
		}
		reply(w, http.StatusOK, `{"access": "tok", "refresh": "ref"}`)
	})
	mux.HandleFunc("GET /users/me/", authed(func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, `{"id": 1, "username": "ann", "email": "ann@example.com", "role": "admin"}`)
	}))
	mux.HandleFunc("GET /products/", authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.queries = append(b.queries, r.URL.RawQuery)
		b.mu.Unlock()
		reply(w, http.StatusOK, `{"count": 23, "results": [
			{"id": 1, "name": "Apples", "category": 1, "category_name": "Fruit", "price": "2.50", "quantity": 3},
			{"id": 2, "name": "Pears", "category": 1, "category_name": "Fruit", "price": "3.00", "quantity": 0}
		]}`)
	}))
	mux.HandleFunc("POST /products/bulk_create/", authed(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Products []map[string]any `json:"products"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.batches = append(b.batches, len(req.Products))
		b.mu.Unlock()
		for i, p := range req.Products {
			p["id"] = 100 + i
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "products": req.Products})
	}))
	return mux
}

type harness struct {
	rest    *backend
	url     string
	session string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rest := &backend{}
	srv := httptest.NewServer(rest.routes(t))
	t.Cleanup(srv.Close)
	return &harness{
		rest:    rest,
		url:     srv.URL,
		session: filepath.Join(t.TempDir(), "session.toml"),
	}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	f, err := session.OpenFile(h.session)
	require.NoError(t, err)
	require.NoError(t, f.Save("tok"))
}

// run executes grocer with args and returns stdout and stderr.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(zaptest.NewLogger(t), nil)
	root.SetArgs(append([]string{"--backend-url", h.url, "--session-file", h.session}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	out, stderr, err := h.run(t, "secret\n", "login", "-u", "ann")
	require.NoError(t, err, stderr)
	assert.Equal(t, "Logged in as ann (admin).\n", out)
	assert.Contains(t, stderr, "Password: ")

	out, _, err = h.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Username:  ann")
	assert.Contains(t, out, "Role:      admin")
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t)

	out, stderr, err := h.run(t, "", "login", "-u", "ann", "-p", "nope")
	require.Error(t, err)
	assert.Equal(t, "Not logged in.\n", out)
	assert.Contains(t, stderr, "No active account found with the given credentials")
}

func TestProductsList_NoSession(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run(t, "", "products", "list")
	require.Error(t, err)
	assert.Contains(t, stderr, "Run `grocer login` first.")
}

func TestProductsList(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out, stderr, err := h.run(t, "", "products", "list", "--search", "pe", "--min-price", "1", "--page", "2")
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "Apples")
	assert.Contains(t, out, "2.50")
	assert.Contains(t, out, "page 2/3 (23 products)")
	queries, _ := h.rest.seen()
	assert.Equal(t, []string{"min_price=1&page=2&search=pe"}, queries)
}

func TestProductsList_FilterStartsAtFirstPage(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out, stderr, err := h.run(t, "", "products", "list", "--category", "1")
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "page 1/3 (23 products)")
	queries, _ := h.rest.seen()
	assert.Equal(t, []string{"category=1&page=1"}, queries)
}

func TestProductsList_JSON(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out, _, err := h.run(t, "", "--json", "products", "list")
	require.NoError(t, err)

	var body struct {
		Status string           `json:"status"`
		Items  []map[string]any `json:"items"`
		Page   struct {
			TotalCount int `json:"total_count"`
			TotalPages int `json:"total_pages"`
		} `json:"page"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	assert.Equal(t, "fulfilled", body.Status)
	assert.Len(t, body.Items, 2)
	assert.Equal(t, 23, body.Page.TotalCount)
	assert.Equal(t, 3, body.Page.TotalPages)
}

func TestProductsList_BadPrice(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	_, stderr, err := h.run(t, "", "products", "list", "--min-price", "cheap")
	require.Error(t, err)
	assert.Contains(t, stderr, "parse --min-price")
	queries, _ := h.rest.seen()
	assert.Empty(t, queries)
}

func writeGzip(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = io.WriteString(gz, data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestSeed(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	dir := t.TempDir()
	plain := filepath.Join(dir, "fruit.json")
	require.NoError(t, os.WriteFile(plain, []byte(`[
		{"name": "Kiwi", "category": 1, "price": "1.00", "quantity": 5},
		{"name": "Lime", "category": 1, "price": "0.50", "quantity": 9}
	]`), 0o600))
	gz := filepath.Join(dir, "dairy.json.gz")
	writeGzip(t, gz, `{"products": [{"name": "Milk", "category": 2, "price": "0.99", "quantity": 12}]}`)

	out, stderr, err := h.run(t, "", "seed", "--batch", "2", plain, gz)
	require.NoError(t, err, stderr)
	assert.Equal(t, "Created 3 products.\n", out)
	_, batches := h.rest.seen()
	assert.Equal(t, []int{2, 1}, batches)
}

func TestSeed_Invalid(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "Kiwi", "price": "1"}]`), 0o600))

	_, stderr, err := h.run(t, "", "seed", path)
	require.Error(t, err)
	assert.Contains(t, stderr, "product_0.category")
	_, batches := h.rest.seen()
	assert.Empty(t, batches)
}

func TestSeed_DryRun(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "fruit.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "Kiwi", "category": 1, "price": "1"}]`), 0o600))

	out, _, err := h.run(t, "", "seed", "--dry-run", path)
	require.NoError(t, err)
	assert.Equal(t, "1 products are valid.\n", out)
	_, batches := h.rest.seen()
	assert.Empty(t, batches)
}

func TestParseLine(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want order.LineInput
		err  bool
	}{
		{in: "3:2", want: order.LineInput{ProductID: 3, Quantity: 2}},
		{in: "7", want: order.LineInput{ProductID: 7, Quantity: 1}},
		{in: "x:1", err: true},
		{in: "3:many", err: true},
	} {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLine(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

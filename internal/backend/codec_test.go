package backend

import (
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/domain/user"
)

func TestDecodeEntities(t *testing.T) {
	t.Run("Product", func(t *testing.T) {
		p, err := decodeProduct(jx.DecodeStr(`{"id": 1, "name": "Apples", "category": 1, "price": "2.50", "quantity": 3, "extra": [1]}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.ID)
		assert.Equal(t, "Apples", p.Name)
		assert.Equal(t, int64(1), p.CategoryID)
		assert.True(t, decimal.RequireFromString("2.50").Equal(p.Price))
		assert.Equal(t, 3, p.Quantity)
	})
	t.Run("Category", func(t *testing.T) {
		c, err := decodeCategory(jx.DecodeStr(`{"id": "4", "name": "Dairy", "description": null}`))
		require.NoError(t, err)
		assert.Equal(t, int64(4), c.ID)
		assert.Equal(t, "Dairy", c.Name)
		assert.Empty(t, c.Description)
	})
	t.Run("User", func(t *testing.T) {
		u, err := decodeUser(jx.DecodeStr(`{"id": 2, "username": "ann", "email": "ann@example.com", "role": "admin"}`))
		require.NoError(t, err)
		assert.Equal(t, int64(2), u.ID)
		assert.Equal(t, "ann", u.Username)
		assert.Equal(t, user.RoleAdmin, u.Role)
	})
	t.Run("Order", func(t *testing.T) {
		o, err := decodeOrder(jx.DecodeStr(`{"id": 5, "user_id": 2, "status": "pending", "total_amount": 5.0, "items": [{"product": 7, "quantity": 2, "price": "2.50"}]}`))
		require.NoError(t, err)
		assert.Equal(t, int64(5), o.ID)
		assert.Equal(t, int64(2), o.UserID)
		assert.Equal(t, order.StatusPending, o.Status)
		require.Len(t, o.Items, 1)
		assert.Equal(t, 2, o.Items[0].Quantity)
	})
}

func TestDecodeEntities_FieldError(t *testing.T) {
	for _, tt := range []struct {
		name   string
		decode func(*jx.Decoder) error
		input  string
		field  string
	}{
		{
			name:   "Product",
			decode: func(d *jx.Decoder) error { _, err := decodeProduct(d); return err },
			input:  `{"id": 1, "price": "cheap"}`,
			field:  "product.price",
		},
		{
			name:   "Category",
			decode: func(d *jx.Decoder) error { _, err := decodeCategory(d); return err },
			input:  `{"id": "x"}`,
			field:  "category.id",
		},
		{
			name:   "User",
			decode: func(d *jx.Decoder) error { _, err := decodeUser(d); return err },
			input:  `{"username": 7}`,
			field:  "user.username",
		},
		{
			name:   "Order",
			decode: func(d *jx.Decoder) error { _, err := decodeOrder(d); return err },
			input:  `{"id": 5, "created_at": "yesterday"}`,
			field:  "order.created_at",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode(jx.DecodeStr(tt.input))
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.field)
		})
	}
}

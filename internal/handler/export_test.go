package handler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/resource"
)

func TestParseProductInputs(t *testing.T) {
	want := []product.Input{
		{Name: "Kiwi", CategoryID: 2, Price: decimal.RequireFromString("1.25"), Quantity: 4},
		{Name: "Lime", Description: "Green", CategoryID: 2, Price: decimal.RequireFromString("0.5")},
	}

	for name, data := range map[string]string{
		"Array": `[
			{"name": "Kiwi", "category": 2, "price": "1.25", "quantity": 4},
			{"name": "Lime", "description": "Green", "category": "2", "price": 0.5, "extra": true}
		]`,
		"Object": `{"products": [
			{"name": "Kiwi", "category": 2, "price": "1.25", "quantity": 4},
			{"name": "Lime", "description": "Green", "category": "2", "price": 0.5}
		], "source": "import"}`,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := ParseProductInputs([]byte(data))
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].Name, got[i].Name)
				assert.Equal(t, want[i].Description, got[i].Description)
				assert.Equal(t, want[i].CategoryID, got[i].CategoryID)
				assert.True(t, want[i].Price.Equal(got[i].Price), "price %s", got[i].Price)
				assert.Equal(t, want[i].Quantity, got[i].Quantity)
			}
		})
	}

	_, err := ParseProductInputs([]byte(`"nope"`))
	assert.Error(t, err)
	_, err = ParseProductInputs([]byte(`[{"name": 1}]`))
	assert.Error(t, err)
}

func TestMarshalProducts(t *testing.T) {
	l := resource.NewList[product.Product]()
	l.Replace(resource.PageOf[product.Product]{
		Count:   11,
		Results: []product.Product{{ID: 1, Name: "Kiwi", CategoryID: 2, Price: decimal.RequireFromString("1.5")}},
	}, 1)

	assert.JSONEq(t, `{
		"status": "fulfilled",
		"error": null,
		"items": [{
			"id": 1, "name": "Kiwi", "description": "", "category": 2, "category_name": "",
			"price": "1.50", "quantity": 0, "created_at": null, "updated_at": null
		}],
		"page": {"total_count": 11, "page_size": 10, "current_page": 1, "total_pages": 2},
		"selected": null
	}`, string(MarshalProducts(l)))
}

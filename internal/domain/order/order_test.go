package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/grocery-console/internal/apierr"
)

func TestPlaceInput_EmptyItems(t *testing.T) {
	var verr *apierr.ValidationError
	require.ErrorAs(t, PlaceInput{}.Validate(), &verr)
	assert.Contains(t, verr.Fields, "items")
}

func TestPlaceInput_InvalidQuantity(t *testing.T) {
	in := PlaceInput{Items: []LineInput{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 0},
	}}

	var verr *apierr.ValidationError
	require.ErrorAs(t, in.Validate(), &verr)
	assert.Equal(t, []string{"Quantity must be greater than 0."}, verr.Fields["items[1].quantity"])
	assert.NotContains(t, verr.Fields, "items[0].quantity")
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusShipped.Valid())
	assert.False(t, Status("lost").Valid())
}

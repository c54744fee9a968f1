package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jollof() CartItem {
	return CartItem{ID: "jollof", Name: "Jollof Rice", Price: decimal.NewFromInt(1500), RestaurantID: "mama-put"}
}

func TestCartAddMergesByID(t *testing.T) {
	c := NewCart("c1")
	require.NoError(t, c.AddItem(jollof()))
	require.NoError(t, c.AddItem(jollof()))
	require.NoError(t, c.AddItem(CartItem{ID: "water", Name: "Water", Price: decimal.NewFromInt(200)}))

	require.Len(t, c.Items, 2)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 3, c.ItemCount())
	assert.True(t, decimal.NewFromInt(3200).Equal(c.Total()))
	assert.Equal(t, "mama-put", c.RestaurantID())
}

func TestCartAddRejectsInvalidItem(t *testing.T) {
	c := NewCart("c1")
	err := c.AddItem(CartItem{Name: "Mystery"})

	assert.True(t, IsValidation(err))
	assert.True(t, c.IsEmpty())
}

func TestCartUpdateQuantityRemovesAtZero(t *testing.T) {
	c := NewCart("c1")
	require.NoError(t, c.AddItem(jollof()))
	require.NoError(t, c.AddItem(jollof()))

	c.UpdateQuantity("jollof", -1)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)

	c.UpdateQuantity("jollof", -1)
	assert.True(t, c.IsEmpty())
}

func TestCartRemoveAndClear(t *testing.T) {
	c := NewCart("c1")
	require.NoError(t, c.AddItem(jollof()))
	require.NoError(t, c.AddItem(CartItem{ID: "water", Name: "Water", Price: decimal.NewFromInt(200)}))

	c.RemoveItem("jollof")
	require.Len(t, c.Items, 1)
	assert.Equal(t, "water", c.Items[0].ID)

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
}

func TestCartRestaurantMixed(t *testing.T) {
	c := NewCart("c1")
	require.NoError(t, c.AddItem(jollof()))
	require.NoError(t, c.AddItem(CartItem{ID: "suya", Name: "Suya", Price: decimal.NewFromInt(800), RestaurantID: "suya-spot"}))

	assert.Empty(t, c.RestaurantID())
}

func TestCartOrderItems(t *testing.T) {
	c := NewCart("c1")
	require.NoError(t, c.AddItem(jollof()))
	require.NoError(t, c.AddItem(jollof()))

	items := c.OrderItems()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(3000).Equal(items[0].LineTotal()))
}

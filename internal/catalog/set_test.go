package catalog

import (
	"errors"
	"testing"

	"pizzaria/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemCatalog_ByCategory(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		category string
		want     []string
	}{
		{category: "", want: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}},
		{category: "all", want: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}},
		{category: "tradicional", want: []string{"1", "2", "5", "7"}},
		{category: "especial", want: []string{"3", "8"}},
		{category: "vegetariana", want: []string{"4", "9"}},
		{category: "doce", want: []string{"6", "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			products, err := c.ByCategory(tt.category)
			require.NoError(t, err)

			ids := make([]string, 0, len(products))
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemCatalog_ByCategory_Unknown(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.ByCategory("salgada")
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestMemCatalog_ByID(t *testing.T) {
	c, err := NewMemCatalog([]model.Product{{ID: "x", Name: "X", Category: model.CategoryDoce}})
	require.NoError(t, err)

	p, ok := c.ByID("x")
	assert.True(t, ok)
	assert.Equal(t, "X", p.Name)

	_, ok = c.ByID("missing")
	assert.False(t, ok)
}

func TestMemCatalog_AllReturnsCopy(t *testing.T) {
	c, err := NewMemCatalog([]model.Product{{ID: "x", Name: "X"}})
	require.NoError(t, err)

	all := c.All()
	all[0].Name = "changed"

	p, _ := c.ByID("x")
	assert.Equal(t, "X", p.Name)
}

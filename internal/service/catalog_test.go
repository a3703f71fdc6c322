package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
)

func TestCatalogCreateTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tag, err := f.catalog.CreateTag(ctx, " Breakfast ", "#e26c2d", "breakfast")
	require.NoError(t, err)
	assert.Equal(t, "Breakfast", tag.Name)
	assert.Equal(t, "#E26C2D", tag.Color)

	got, err := f.catalog.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, tag, got)

	_, err = f.catalog.CreateTag(ctx, "Other", "#E26C2D", "other")
	assert.True(t, errors.Is(err, apperror.ErrConflict), "duplicate color: got %v", err)
}

func TestCatalogCreateTag_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateTag(context.Background(), "", "red", "not a slug")

	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "color")
	assert.Contains(t, fields, "slug")
}

func TestCatalogImportIngredients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingredient(t, "salt", "g")

	res, err := f.catalog.ImportIngredients(ctx, []model.Ingredient{
		{Name: "Salt", Unit: "g"}, // differs only by case: a new row
		{Name: "salt", Unit: "g"},
		{Name: "pepper", Unit: "g"},
		{Name: "pepper", Unit: "pinch"},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 3, Skipped: 1}, res)

	list, err := f.catalog.ListIngredients(ctx, "PEP")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "g", list[0].Unit)
	assert.Equal(t, "pinch", list[1].Unit)
}

func TestCatalogImportIngredients_BlankEntry(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.ImportIngredients(context.Background(), []model.Ingredient{{Name: "salt"}})

	assert.Contains(t, fieldErrors(t, err), "ingredients")
}

func TestCatalogGetIngredient_Missing(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.GetIngredient(context.Background(), 404)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

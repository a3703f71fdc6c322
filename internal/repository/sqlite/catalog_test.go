package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
)

func TestTags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	lunch := createTestTag(t, db, "lunch", "#49B64E")
	createTestTag(t, db, "breakfast", "#E26C2D")

	got, err := db.GetTag(ctx, lunch.ID)
	require.NoError(t, err)
	assert.Equal(t, *lunch, *got)

	tags, err := db.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "breakfast", tags[0].Slug)

	err = db.CreateTag(ctx, &model.Tag{Name: "other", Color: "#49B64E", Slug: "other"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "duplicate color: %v", err)

	_, err = db.GetTag(ctx, 999)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestListIngredients_PrefixFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestIngredient(t, db, "Sugar", "g")
	createTestIngredient(t, db, "salt", "g")
	createTestIngredient(t, db, "butter", "g")
	createTestIngredient(t, db, "s_x", "g")

	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"butter", "s_x", "salt", "Sugar"}},
		{"s", []string{"s_x", "salt", "Sugar"}},
		{"SU", []string{"Sugar"}},
		{"s_", []string{"s_x"}},
		{"milk", nil},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := db.ListIngredients(ctx, tt.prefix)
			require.NoError(t, err)

			var names []string
			for _, ing := range got {
				names = append(names, ing.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestListIngredients_PrefixFilterNonASCII(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestIngredient(t, db, "Картофель", "г")
	createTestIngredient(t, db, "капуста", "г")
	createTestIngredient(t, db, "Éclair", "шт")

	tests := []struct {
		prefix string
		want   []string
	}{
		{"карт", []string{"Картофель"}},
		{"КАРТ", []string{"Картофель"}},
		{"КаП", []string{"капуста"}},
		{"ка", []string{"капуста", "Картофель"}},
		{"écl", []string{"Éclair"}},
		{"лук", nil},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := db.ListIngredients(ctx, tt.prefix)
			require.NoError(t, err)

			var names []string
			for _, ing := range got {
				names = append(names, ing.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestCreateIngredient_DuplicateIsConflict(t *testing.T) {
	db := newTestDB(t)
	createTestIngredient(t, db, "salt", "g")

	err := db.CreateIngredient(context.Background(), &model.Ingredient{Name: "salt", Unit: "g"})
	assert.True(t, errors.Is(err, apperror.ErrConflict))

	// same name, other unit is a distinct ingredient
	createTestIngredient(t, db, "salt", "pinch")
}

func TestGetIngredient_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetIngredient(context.Background(), 1)

	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// countingRepo answers every existence check with "yes" and counts how often
// it was asked. It implements the membership and subscription contracts.
type countingRepo struct {
	calls int
}

func (c *countingRepo) AddMembership(context.Context, model.MembershipKind, int64, int64) error {
	return nil
}

func (c *countingRepo) RemoveMembership(context.Context, model.MembershipKind, int64, int64) error {
	return nil
}

func (c *countingRepo) HasMembership(context.Context, model.MembershipKind, int64, int64) (bool, error) {
	c.calls++
	return true, nil
}

func (c *countingRepo) Subscribe(context.Context, int64, int64) error   { return nil }
func (c *countingRepo) Unsubscribe(context.Context, int64, int64) error { return nil }

func (c *countingRepo) IsSubscribed(context.Context, int64, int64) (bool, error) {
	c.calls++
	return true, nil
}

func (c *countingRepo) ListSubscriptions(context.Context, int64, repository.ListOptions) ([]model.User, int, error) {
	return nil, 0, nil
}

func sampleRecipe() *model.Recipe {
	return &model.Recipe{
		ID:          7,
		AuthorID:    3,
		Author:      model.User{ID: 3, Email: "chef@example.com", Username: "chef", FirstName: "Gordon", LastName: "R"},
		Name:        "Bread",
		Image:       "/media/recipes/a.png",
		Text:        "Bake it.",
		CookingTime: 40,
	}
}

// Anonymous viewers never cost a storage round-trip.
func TestPresenter_AnonymousShortCircuit(t *testing.T) {
	repo := &countingRepo{}
	p := NewPresenter(repo, repo)

	v, err := p.Recipe(context.Background(), model.Anonymous, sampleRecipe())

	require.NoError(t, err)
	assert.Zero(t, repo.calls)
	assert.False(t, v.IsFavorited)
	assert.False(t, v.IsInShoppingCart)
	assert.False(t, v.Author.IsSubscribed)
}

func TestPresenter_AuthenticatedViewer(t *testing.T) {
	repo := &countingRepo{}
	p := NewPresenter(repo, repo)

	v, err := p.Recipe(context.Background(), 5, sampleRecipe())

	require.NoError(t, err)
	assert.Equal(t, 3, repo.calls)
	assert.True(t, v.IsFavorited)
	assert.True(t, v.IsInShoppingCart)
	assert.True(t, v.Author.IsSubscribed)
	assert.Equal(t, "chef", v.Author.Username)
	assert.Equal(t, "Gordon", v.Author.FirstName)
}

// Missing collections serialize as [] rather than null.
func TestPresenter_EmptyCollections(t *testing.T) {
	repo := &countingRepo{}
	p := NewPresenter(repo, repo)

	v, err := p.Recipe(context.Background(), model.Anonymous, sampleRecipe())
	require.NoError(t, err)
	assert.NotNil(t, v.Tags)
	assert.NotNil(t, v.Ingredients)

	sv := WithRecipes(v.Author, nil, 0)
	assert.NotNil(t, sv.Recipes)
	assert.Equal(t, "chef", sv.Username)
}

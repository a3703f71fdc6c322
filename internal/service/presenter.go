package service

import (
	"context"
	"fmt"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// ProfileView is the public read-shape of a user as seen by a viewer.
type ProfileView struct {
	Email        string `json:"email"`
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// SubscriptionView is a ProfileView decorated with the author's recipes.
type SubscriptionView struct {
	ProfileView
	Recipes      []model.RecipeSummary `json:"recipes"`
	RecipesCount int                   `json:"recipes_count"`
}

// WithRecipes decorates a base profile with a recipe list and the author's
// total recipe count. count may exceed len(recipes) when the list was capped.
func WithRecipes(p ProfileView, recipes []model.RecipeSummary, count int) SubscriptionView {
	if recipes == nil {
		recipes = []model.RecipeSummary{}
	}
	return SubscriptionView{ProfileView: p, Recipes: recipes, RecipesCount: count}
}

// RecipeView is the read-shape of a recipe. It is always what the API
// returns, including right after a create or update.
type RecipeView struct {
	ID               int64                  `json:"id"`
	Tags             []model.Tag            `json:"tags"`
	Author           ProfileView            `json:"author"`
	Ingredients      []model.IngredientLine `json:"ingredients"`
	IsFavorited      bool                   `json:"is_favorited"`
	IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
	Name             string                 `json:"name"`
	Image            string                 `json:"image"`
	Text             string                 `json:"text"`
	CookingTime      int                    `json:"cooking_time"`
}

// Presenter computes the per-viewer flags and builds read-shapes.
//
// ANONYMOUS SHORT-CIRCUIT:
// For model.Anonymous every flag is false and storage is never consulted.
type Presenter struct {
	memberships   repository.MembershipRepository
	subscriptions repository.SubscriptionRepository
}

func NewPresenter(memberships repository.MembershipRepository, subscriptions repository.SubscriptionRepository) *Presenter {
	return &Presenter{memberships: memberships, subscriptions: subscriptions}
}

func (p *Presenter) IsFavorited(ctx context.Context, viewer, recipeID int64) (bool, error) {
	return p.hasMembership(ctx, model.Favorite, viewer, recipeID)
}

func (p *Presenter) IsInShoppingCart(ctx context.Context, viewer, recipeID int64) (bool, error) {
	return p.hasMembership(ctx, model.ShoppingCart, viewer, recipeID)
}

func (p *Presenter) hasMembership(ctx context.Context, kind model.MembershipKind, viewer, recipeID int64) (bool, error) {
	if viewer == model.Anonymous {
		return false, nil
	}
	ok, err := p.memberships.HasMembership(ctx, kind, viewer, recipeID)
	if err != nil {
		return false, fmt.Errorf("service/presenter: checking %s: %w", kind, err)
	}
	return ok, nil
}

// IsSubscribed reports whether viewer follows author.
func (p *Presenter) IsSubscribed(ctx context.Context, viewer, authorID int64) (bool, error) {
	if viewer == model.Anonymous {
		return false, nil
	}
	ok, err := p.subscriptions.IsSubscribed(ctx, viewer, authorID)
	if err != nil {
		return false, fmt.Errorf("service/presenter: checking subscription: %w", err)
	}
	return ok, nil
}

// Profile builds the base profile of user as seen by viewer.
func (p *Presenter) Profile(ctx context.Context, viewer int64, user *model.User) (ProfileView, error) {
	subscribed, err := p.IsSubscribed(ctx, viewer, user.ID)
	if err != nil {
		return ProfileView{}, err
	}
	return ProfileView{
		Email:        user.Email,
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: subscribed,
	}, nil
}

// Recipe builds the read-shape of recipe as seen by viewer.
func (p *Presenter) Recipe(ctx context.Context, viewer int64, recipe *model.Recipe) (RecipeView, error) {
	author, err := p.Profile(ctx, viewer, &recipe.Author)
	if err != nil {
		return RecipeView{}, err
	}
	favorited, err := p.IsFavorited(ctx, viewer, recipe.ID)
	if err != nil {
		return RecipeView{}, err
	}
	inCart, err := p.IsInShoppingCart(ctx, viewer, recipe.ID)
	if err != nil {
		return RecipeView{}, err
	}

	tags := recipe.Tags
	if tags == nil {
		tags = []model.Tag{}
	}
	lines := recipe.Ingredients
	if lines == nil {
		lines = []model.IngredientLine{}
	}

	return RecipeView{
		ID:               recipe.ID,
		Tags:             tags,
		Author:           author,
		Ingredients:      lines,
		IsFavorited:      favorited,
		IsInShoppingCart: inCart,
		Name:             recipe.Name,
		Image:            recipe.Image,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
	}, nil
}

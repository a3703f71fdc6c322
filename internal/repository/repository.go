// Package repository declares the storage contracts the service layer
// depends on. The sqlite subpackage implements every interface here on a
// single *sqlite.DB.
package repository

import (
	"context"

	"github.com/sakif/foodgram/internal/model"
)

// Default and maximum page sizes for paginated lists.
const (
	DefaultPageSize = 6
	MaxPageSize     = 100
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize applies the default page size, caps the limit and clamps a
// negative offset to zero.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// RecipeFilter narrows ListRecipes. Zero values disable a filter.
type RecipeFilter struct {
	ListOptions
	AuthorID    int64
	TagSlugs    []string // any-of
	FavoritedBy int64
	InCartOf    int64
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// IdentityTaken reports which of email and username already belong to an account.
	IdentityTaken(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, int, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpsertGitHubUser(ctx context.Context, user *model.User) error
}

type TagRepository interface {
	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTag(ctx context.Context, id int64) (*model.Tag, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
}

type IngredientRepository interface {
	CreateIngredient(ctx context.Context, ingredient *model.Ingredient) error
	GetIngredient(ctx context.Context, id int64) (*model.Ingredient, error)
	ListIngredients(ctx context.Context, namePrefix string) ([]model.Ingredient, error)
}

// RecipeRepository stores the recipe aggregate. CreateRecipe and
// ReplaceRecipe write the recipe row, its ingredient lines (IngredientID and
// Amount are read) and its tag set (ID is read) atomically.
type RecipeRepository interface {
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	ReplaceRecipe(ctx context.Context, recipe *model.Recipe) error
	GetRecipe(ctx context.Context, id int64) (*model.Recipe, error)
	ListRecipes(ctx context.Context, filter RecipeFilter) ([]model.Recipe, int, error)
	DeleteRecipe(ctx context.Context, id int64) error
	// RecipeNameTaken ignores the recipe with id excludeID (0 ignores none).
	RecipeNameTaken(ctx context.Context, authorID int64, name string, excludeID int64) (bool, error)
	// AuthorRecipes returns at most limit summaries (limit <= 0: all) and the total count.
	AuthorRecipes(ctx context.Context, authorID int64, limit int) ([]model.RecipeSummary, int, error)
}

type MembershipRepository interface {
	AddMembership(ctx context.Context, kind model.MembershipKind, userID, recipeID int64) error
	RemoveMembership(ctx context.Context, kind model.MembershipKind, userID, recipeID int64) error
	HasMembership(ctx context.Context, kind model.MembershipKind, userID, recipeID int64) (bool, error)
}

type SubscriptionRepository interface {
	Subscribe(ctx context.Context, userID, authorID int64) error
	Unsubscribe(ctx context.Context, userID, authorID int64) error
	IsSubscribed(ctx context.Context, userID, authorID int64) (bool, error)
	ListSubscriptions(ctx context.Context, userID int64, opts ListOptions) ([]model.User, int, error)
}

type ShoppingListRepository interface {
	ShoppingList(ctx context.Context, userID int64) ([]model.ShoppingItem, error)
}

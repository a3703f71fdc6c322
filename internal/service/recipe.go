package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/imagestore"
	"github.com/sakif/foodgram/internal/metrics"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// IngredientAmount is one {id, amount} entry of a recipe write payload.
type IngredientAmount struct {
	ID     int64 `json:"id"     validate:"gt=0"`
	Amount int   `json:"amount" validate:"min=1"`
}

// RecipeInput is the write-shape of a recipe, exactly as clients send it.
//
// Image holds a base64 data URI. It is required on create; on update a nil
// Image keeps the current picture.
type RecipeInput struct {
	Ingredients []IngredientAmount `json:"ingredients"  validate:"required,min=1,unique=ID,dive"`
	Tags        []int64            `json:"tags"         validate:"required,min=1,unique,dive,gt=0"`
	Image       *string            `json:"image"`
	Name        string             `json:"name"         validate:"required,max=200"`
	Text        string             `json:"text"         validate:"required"`
	CookingTime int                `json:"cooking_time" validate:"min=1"`
}

// RecipeQuery is the list filter as the HTTP layer parses it.
type RecipeQuery struct {
	repository.ListOptions
	AuthorID         int64
	Tags             []string
	IsFavorited      bool
	IsInShoppingCart bool
}

// RecipeService is the recipe aggregate manager: it validates payloads,
// writes the recipe with its lines and tags atomically, and always answers
// with the read-shape.
type RecipeService struct {
	recipes   repository.RecipeRepository
	images    imagestore.Store
	presenter *Presenter
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewRecipeService(
	recipes repository.RecipeRepository,
	images imagestore.Store,
	presenter *Presenter,
	logger *slog.Logger,
) *RecipeService {
	return &RecipeService{
		recipes:   recipes,
		images:    images,
		presenter: presenter,
		validate:  newValidator(),
		logger:    logger,
	}
}

// Create validates in and stores a new recipe authored by authorID.
//
// ORDER OF WORK:
//  1. Collect every validation failure (structure, image, duplicate name).
//  2. Store the image, so the URL can go into the recipe row.
//  3. Write recipe + lines + tags in one transaction.
//  4. If the transaction fails, remove the image again.
func (s *RecipeService) Create(ctx context.Context, authorID int64, in RecipeInput) (RecipeView, error) {
	if err := requireActor(authorID); err != nil {
		return RecipeView{}, err
	}

	img, err := s.check(ctx, authorID, 0, &in, true)
	if err != nil {
		return RecipeView{}, err
	}

	url, err := s.images.Put(ctx, img)
	if err != nil {
		s.logger.Error("failed to store recipe image", slog.String("error", err.Error()))
		return RecipeView{}, fmt.Errorf("service/recipe: storing image: %w", err)
	}

	recipe := buildRecipe(authorID, in)
	recipe.Image = url

	if err := s.recipes.CreateRecipe(ctx, recipe); err != nil {
		s.discardImage(ctx, url)
		if !isDomainError(err) {
			s.logger.Error("failed to create recipe",
				slog.Int64("author", authorID),
				slog.String("error", err.Error()),
			)
		}
		return RecipeView{}, err
	}

	metrics.RecordRecipeWrite("create")
	s.logger.Info("recipe created",
		slog.Int64("id", recipe.ID),
		slog.Int64("author", authorID),
		slog.String("name", recipe.Name),
	)

	return s.Get(ctx, authorID, recipe.ID)
}

// Update replaces recipe recipeID with in. Only the author may do this.
//
// Ownership is checked BEFORE the payload is validated, so a stranger learns
// nothing about what a valid payload would be. A new image replaces the old
// object only after the database write committed.
func (s *RecipeService) Update(ctx context.Context, actorID, recipeID int64, in RecipeInput) (RecipeView, error) {
	if err := requireActor(actorID); err != nil {
		return RecipeView{}, err
	}

	current, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return RecipeView{}, err
	}
	if current.AuthorID != actorID {
		return RecipeView{}, apperror.Forbidden("only the author can change this recipe")
	}

	img, err := s.check(ctx, actorID, recipeID, &in, false)
	if err != nil {
		return RecipeView{}, err
	}

	recipe := buildRecipe(actorID, in)
	recipe.ID = recipeID
	recipe.Image = current.Image

	if img != nil {
		url, err := s.images.Put(ctx, img)
		if err != nil {
			s.logger.Error("failed to store recipe image", slog.String("error", err.Error()))
			return RecipeView{}, fmt.Errorf("service/recipe: storing image: %w", err)
		}
		recipe.Image = url
	}

	if err := s.recipes.ReplaceRecipe(ctx, recipe); err != nil {
		if img != nil {
			s.discardImage(ctx, recipe.Image)
		}
		if !isDomainError(err) {
			s.logger.Error("failed to update recipe",
				slog.Int64("id", recipeID),
				slog.String("error", err.Error()),
			)
		}
		return RecipeView{}, err
	}

	if img != nil {
		s.discardImage(ctx, current.Image)
	}

	metrics.RecordRecipeWrite("update")
	s.logger.Info("recipe updated", slog.Int64("id", recipeID))

	return s.Get(ctx, actorID, recipeID)
}

// Delete removes a recipe. Lines, tags, favorites and cart entries go with it
// through the foreign-key cascade; the image is removed best effort.
func (s *RecipeService) Delete(ctx context.Context, actorID, recipeID int64) error {
	if err := requireActor(actorID); err != nil {
		return err
	}

	current, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return err
	}
	if current.AuthorID != actorID {
		return apperror.Forbidden("only the author can delete this recipe")
	}

	if err := s.recipes.DeleteRecipe(ctx, recipeID); err != nil {
		if !isDomainError(err) {
			s.logger.Error("failed to delete recipe",
				slog.Int64("id", recipeID),
				slog.String("error", err.Error()),
			)
		}
		return err
	}
	s.discardImage(ctx, current.Image)

	metrics.RecordRecipeWrite("delete")
	s.logger.Info("recipe deleted", slog.Int64("id", recipeID))
	return nil
}

// Get returns the read-shape of one recipe as seen by viewerID.
func (s *RecipeService) Get(ctx context.Context, viewerID, recipeID int64) (RecipeView, error) {
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return RecipeView{}, err
	}
	return s.presenter.Recipe(ctx, viewerID, recipe)
}

// List returns one page of recipes, newest first.
//
// The is_favorited and is_in_shopping_cart filters describe the viewer's own
// sets. An anonymous viewer has none, so either filter yields an empty page.
func (s *RecipeService) List(ctx context.Context, viewerID int64, q RecipeQuery) (Page[RecipeView], error) {
	opts := q.ListOptions.Normalize()

	if viewerID == model.Anonymous && (q.IsFavorited || q.IsInShoppingCart) {
		return newPage[RecipeView](opts, 0, nil), nil
	}

	filter := repository.RecipeFilter{
		ListOptions: opts,
		AuthorID:    q.AuthorID,
		TagSlugs:    q.Tags,
	}
	if q.IsFavorited {
		filter.FavoritedBy = viewerID
	}
	if q.IsInShoppingCart {
		filter.InCartOf = viewerID
	}

	recipes, count, err := s.recipes.ListRecipes(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list recipes", slog.String("error", err.Error()))
		return Page[RecipeView]{}, fmt.Errorf("service/recipe: listing: %w", err)
	}

	views := make([]RecipeView, 0, len(recipes))
	for i := range recipes {
		v, err := s.presenter.Recipe(ctx, viewerID, &recipes[i])
		if err != nil {
			return Page[RecipeView]{}, err
		}
		views = append(views, v)
	}
	return newPage(opts, count, views), nil
}

// check validates in and decodes its image. Every violation is collected
// before returning, so the client sees all of them at once.
//
// excludeID is the recipe being updated (0 on create); the duplicate-name
// rule ignores it.
func (s *RecipeService) check(ctx context.Context, authorID, excludeID int64, in *RecipeInput, imageRequired bool) (*imagestore.Image, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Text = strings.TrimSpace(in.Text)
	fe := apperror.FieldErrors{}

	if err := collectViolations(s.validate, in, fe); err != nil {
		return nil, err
	}

	var img *imagestore.Image
	switch {
	case in.Image == nil && imageRequired:
		fe.Add("image", "this field is required")
	case in.Image != nil:
		decoded, err := imagestore.DecodeDataURI(*in.Image)
		if err != nil {
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				return nil, err
			}
			fe.Add("image", appErr.Message)
		}
		img = decoded
	}

	if !fe.Has("name") {
		taken, err := s.recipes.RecipeNameTaken(ctx, authorID, in.Name, excludeID)
		if err != nil {
			s.logger.Error("failed to check recipe name", slog.String("error", err.Error()))
			return nil, fmt.Errorf("service/recipe: checking name: %w", err)
		}
		if taken {
			fe.Add("name", "you already have a recipe with this name")
		}
	}

	if err := fe.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// discardImage removes an image that is no longer referenced. Failure only
// leaves an orphaned object behind, so it is logged and swallowed.
func (s *RecipeService) discardImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		s.logger.Warn("failed to remove recipe image",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}

func buildRecipe(authorID int64, in RecipeInput) *model.Recipe {
	lines := make([]model.IngredientLine, 0, len(in.Ingredients))
	for _, ia := range in.Ingredients {
		lines = append(lines, model.IngredientLine{IngredientID: ia.ID, Amount: ia.Amount})
	}
	tags := make([]model.Tag, 0, len(in.Tags))
	for _, id := range in.Tags {
		tags = append(tags, model.Tag{ID: id})
	}
	return &model.Recipe{
		AuthorID:    authorID,
		Name:        in.Name,
		Text:        in.Text,
		CookingTime: in.CookingTime,
		Ingredients: lines,
		Tags:        tags,
	}
}

// isDomainError reports whether err is one of our own *AppError values, which
// are expected outcomes and not worth an error log line.
func isDomainError(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}

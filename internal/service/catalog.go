package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// CatalogService serves the tag and ingredient reference data. Reads are
// public; writes are reserved for the admin CLI.
type CatalogService struct {
	tags        repository.TagRepository
	ingredients repository.IngredientRepository
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewCatalogService(tags repository.TagRepository, ingredients repository.IngredientRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		tags:        tags,
		ingredients: ingredients,
		validate:    newValidator(),
		logger:      logger,
	}
}

// ListIngredients filters by a case-insensitive name prefix.
func (s *CatalogService) ListIngredients(ctx context.Context, namePrefix string) ([]model.Ingredient, error) {
	return s.ingredients.ListIngredients(ctx, strings.TrimSpace(namePrefix))
}

func (s *CatalogService) GetIngredient(ctx context.Context, id int64) (*model.Ingredient, error) {
	return s.ingredients.GetIngredient(ctx, id)
}

func (s *CatalogService) ListTags(ctx context.Context) ([]model.Tag, error) {
	return s.tags.ListTags(ctx)
}

func (s *CatalogService) GetTag(ctx context.Context, id int64) (*model.Tag, error) {
	return s.tags.GetTag(ctx, id)
}

type tagInput struct {
	Name  string `json:"name"  validate:"required,max=200"`
	Color string `json:"color" validate:"required,rgbhex"`
	Slug  string `json:"slug"  validate:"required,max=200,slug"`
}

// CreateTag adds a tag. Name, color and slug must each be unused.
func (s *CatalogService) CreateTag(ctx context.Context, name, color, slug string) (*model.Tag, error) {
	in := tagInput{
		Name:  strings.TrimSpace(name),
		Color: strings.TrimSpace(color),
		Slug:  strings.TrimSpace(slug),
	}
	fe := apperror.FieldErrors{}
	if err := collectViolations(s.validate, in, fe); err != nil {
		return nil, err
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	tag := &model.Tag{Name: in.Name, Color: strings.ToUpper(in.Color), Slug: in.Slug}
	if err := s.tags.CreateTag(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info("tag created", slog.Int64("id", tag.ID), slog.String("slug", tag.Slug))
	return tag, nil
}

// ImportResult reports what a bulk ingredient import did.
type ImportResult struct {
	Created int
	Skipped int
}

// ImportIngredients inserts each ingredient that does not exist yet. Entries
// whose (name, unit) pair is already present are counted as skipped. Blank
// entries are a validation error naming their position.
func (s *CatalogService) ImportIngredients(ctx context.Context, ingredients []model.Ingredient) (ImportResult, error) {
	var res ImportResult
	for i, ing := range ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		ing.Unit = strings.TrimSpace(ing.Unit)
		if ing.Name == "" || ing.Unit == "" {
			return res, apperror.ValidationFailed("ingredients",
				fmt.Sprintf("entry %d needs both name and measurement_unit", i))
		}

		err := s.ingredients.CreateIngredient(ctx, &ing)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, apperror.ErrConflict):
			res.Skipped++
		default:
			s.logger.Error("failed to import ingredient",
				slog.String("name", ing.Name),
				slog.String("error", err.Error()),
			)
			return res, fmt.Errorf("service/catalog: importing %q: %w", ing.Name, err)
		}
	}

	s.logger.Info("ingredients imported",
		slog.Int("created", res.Created),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

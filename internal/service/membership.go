package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/metrics"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// MembershipService toggles a recipe in and out of a user's favorites or
// shopping cart.
//
// STATE MACHINE (per user, recipe and kind):
//
//	Absent  --add-->    Present   returns the recipe summary
//	Present --remove--> Absent    returns nil
//	Present --add-->    Conflict
//	Absent  --remove--> Conflict
type MembershipService struct {
	recipes     repository.RecipeRepository
	memberships repository.MembershipRepository
	logger      *slog.Logger
}

func NewMembershipService(
	recipes repository.RecipeRepository,
	memberships repository.MembershipRepository,
	logger *slog.Logger,
) *MembershipService {
	return &MembershipService{recipes: recipes, memberships: memberships, logger: logger}
}

// Toggle adds (add == true) or removes the recipe from the user's set of the
// given kind. The recipe is resolved first, so an unknown id is NotFound no
// matter the membership state.
func (s *MembershipService) Toggle(ctx context.Context, userID, recipeID int64, add bool, kind model.MembershipKind) (*model.RecipeSummary, error) {
	if err := requireActor(userID); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("service/membership: unknown kind %q", kind)
	}

	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	action := "remove"
	if add {
		action = "add"
		err = s.memberships.AddMembership(ctx, kind, userID, recipeID)
	} else {
		err = s.memberships.RemoveMembership(ctx, kind, userID, recipeID)
	}
	if err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to toggle membership",
				slog.String("kind", string(kind)),
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	metrics.RecordMembershipToggle(string(kind), action)
	s.logger.Info("membership changed",
		slog.String("kind", string(kind)),
		slog.String("action", action),
		slog.Int64("user", userID),
		slog.Int64("recipe", recipeID),
	)

	if !add {
		return nil, nil
	}
	summary := recipe.Summary()
	return &summary, nil
}

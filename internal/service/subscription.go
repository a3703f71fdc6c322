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

// SubscriptionService manages the directed follower → author relation.
type SubscriptionService struct {
	users     repository.UserRepository
	recipes   repository.RecipeRepository
	subs      repository.SubscriptionRepository
	presenter *Presenter
	logger    *slog.Logger
}

func NewSubscriptionService(
	users repository.UserRepository,
	recipes repository.RecipeRepository,
	subs repository.SubscriptionRepository,
	presenter *Presenter,
	logger *slog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		users:     users,
		recipes:   recipes,
		subs:      subs,
		presenter: presenter,
		logger:    logger,
	}
}

// Subscribe makes follower follow authorID and returns the author decorated
// with up to recipesLimit of their recipes (recipesLimit <= 0: all of them).
func (s *SubscriptionService) Subscribe(ctx context.Context, follower, authorID int64, recipesLimit int) (SubscriptionView, error) {
	if err := requireActor(follower); err != nil {
		return SubscriptionView{}, err
	}

	author, err := s.users.GetUserByID(ctx, authorID)
	if err != nil {
		return SubscriptionView{}, err
	}
	if follower == authorID {
		return SubscriptionView{}, apperror.Conflict("cannot subscribe to yourself")
	}

	if err := s.subs.Subscribe(ctx, follower, authorID); err != nil {
		s.logFailure("subscribe", err)
		return SubscriptionView{}, err
	}

	metrics.RecordSubscriptionToggle("subscribe")
	s.logger.Info("subscribed",
		slog.Int64("user", follower),
		slog.Int64("author", authorID),
	)

	return s.view(ctx, follower, author, recipesLimit)
}

// Unsubscribe removes the relation. Removing one that does not exist is a
// Conflict.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, follower, authorID int64) error {
	if err := requireActor(follower); err != nil {
		return err
	}
	if _, err := s.users.GetUserByID(ctx, authorID); err != nil {
		return err
	}

	if err := s.subs.Unsubscribe(ctx, follower, authorID); err != nil {
		s.logFailure("unsubscribe", err)
		return err
	}

	metrics.RecordSubscriptionToggle("unsubscribe")
	s.logger.Info("unsubscribed",
		slog.Int64("user", follower),
		slog.Int64("author", authorID),
	)
	return nil
}

// List returns the authors follower is subscribed to, most recent first.
func (s *SubscriptionService) List(ctx context.Context, follower int64, opts repository.ListOptions, recipesLimit int) (Page[SubscriptionView], error) {
	if err := requireActor(follower); err != nil {
		return Page[SubscriptionView]{}, err
	}
	opts = opts.Normalize()

	authors, count, err := s.subs.ListSubscriptions(ctx, follower, opts)
	if err != nil {
		s.logger.Error("failed to list subscriptions", slog.String("error", err.Error()))
		return Page[SubscriptionView]{}, fmt.Errorf("service/subscription: listing: %w", err)
	}

	views := make([]SubscriptionView, 0, len(authors))
	for i := range authors {
		v, err := s.view(ctx, follower, &authors[i], recipesLimit)
		if err != nil {
			return Page[SubscriptionView]{}, err
		}
		views = append(views, v)
	}
	return newPage(opts, count, views), nil
}

func (s *SubscriptionService) view(ctx context.Context, viewer int64, author *model.User, recipesLimit int) (SubscriptionView, error) {
	profile, err := s.presenter.Profile(ctx, viewer, author)
	if err != nil {
		return SubscriptionView{}, err
	}
	recipes, count, err := s.recipes.AuthorRecipes(ctx, author.ID, recipesLimit)
	if err != nil {
		return SubscriptionView{}, fmt.Errorf("service/subscription: loading recipes of %d: %w", author.ID, err)
	}
	return WithRecipes(profile, recipes, count), nil
}

func (s *SubscriptionService) logFailure(action string, err error) {
	if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
		return
	}
	s.logger.Error("failed to "+action, slog.String("error", err.Error()))
}

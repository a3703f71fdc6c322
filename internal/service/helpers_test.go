package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/imagestore"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository/sqlite"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeImageStore keeps uploads in memory and remembers every delete, so
// tests can assert that a failed write cleaned up after itself.
type fakeImageStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	next    int
	putErr  error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{objects: make(map[string][]byte)}
}

func (f *fakeImageStore) Put(_ context.Context, img *imagestore.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.next++
	url := fmt.Sprintf("/media/recipes/%d%s", f.next, img.Extension)
	f.objects[url] = img.Data
	return url, nil
}

func (f *fakeImageStore) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, url)
	f.deleted = append(f.deleted, url)
	return nil
}

func (f *fakeImageStore) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// =========================================================================
// FIXTURE
// =========================================================================

// fixture wires every service against one in-memory SQLite database, the
// same way server.New does against the real one.
type fixture struct {
	db            *sqlite.DB
	tokens        *auth.TokenService
	images        *fakeImageStore
	presenter     *Presenter
	recipes       *RecipeService
	memberships   *MembershipService
	shopping      *ShoppingListService
	subscriptions *SubscriptionService
	catalog       *CatalogService
	accounts      *AuthService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("service-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	logger := testLogger()
	images := newFakeImageStore()
	presenter := NewPresenter(db, db)

	return &fixture{
		db:            db,
		tokens:        tokens,
		images:        images,
		presenter:     presenter,
		recipes:       NewRecipeService(db, images, presenter, logger),
		memberships:   NewMembershipService(db, db, logger),
		shopping:      NewShoppingListService(db, logger),
		subscriptions: NewSubscriptionService(db, db, db, presenter, logger),
		catalog:       NewCatalogService(db, db, logger),
		accounts:      NewAuthService(db, tokens, auth.NewPasswordServiceForTest(4), presenter, logger),
	}
}

func (f *fixture) user(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		LastName:  "Tester",
	}
	require.NoError(t, f.db.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) tag(t *testing.T, slug, color string) *model.Tag {
	t.Helper()
	tag, err := f.catalog.CreateTag(context.Background(), slug, color, slug)
	require.NoError(t, err)
	return tag
}

func (f *fixture) ingredient(t *testing.T, name, unit string) *model.Ingredient {
	t.Helper()
	ing := &model.Ingredient{Name: name, Unit: unit}
	require.NoError(t, f.db.CreateIngredient(context.Background(), ing))
	return ing
}

// recipe creates a recipe through the service with a default payload.
func (f *fixture) recipe(t *testing.T, author *model.User, name string, lines []IngredientAmount, tags ...*model.Tag) RecipeView {
	t.Helper()
	in := validInput(t, name, lines, tags...)
	v, err := f.recipes.Create(context.Background(), author.ID, in)
	require.NoError(t, err)
	return v
}

func validInput(t *testing.T, name string, lines []IngredientAmount, tags ...*model.Tag) RecipeInput {
	t.Helper()
	ids := make([]int64, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}
	img := pngDataURI(t)
	return RecipeInput{
		Ingredients: lines,
		Tags:        ids,
		Image:       &img,
		Name:        name,
		Text:        "Mix everything and cook.",
		CookingTime: 15,
	}
}

func amount(ing *model.Ingredient, n int) IngredientAmount {
	return IngredientAmount{ID: ing.ID, Amount: n}
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// fieldErrors extracts the per-field violations of a validation error.
func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected *apperror.AppError, got %T: %v", err, err)
	require.True(t, errors.Is(err, apperror.ErrValidation), "expected a validation error, got %v", err)
	return appErr.Fields
}

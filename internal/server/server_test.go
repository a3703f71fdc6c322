package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/foodgram/internal/config"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository/sqlite"
)

const testPassword = "Kitchen-Sink-42!"

// catalog holds the ids seeded before the server starts. Tags and
// ingredients have no HTTP write endpoints.
type catalog struct {
	lunch, dinner model.Tag
	carrot, water model.Ingredient
	potato, onion model.Ingredient
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	cat     catalog
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "foodgram.db")
	ctx := context.Background()

	// Seed reference data through a separate handle, then close it so the
	// server's single connection owns the file.
	seed, err := sqlite.New(dbPath)
	require.NoError(t, err)
	var cat catalog
	cat.lunch = model.Tag{Name: "Lunch", Color: "#E26C2D", Slug: "lunch"}
	cat.dinner = model.Tag{Name: "Dinner", Color: "#49B64E", Slug: "dinner"}
	for _, tag := range []*model.Tag{&cat.lunch, &cat.dinner} {
		require.NoError(t, seed.CreateTag(ctx, tag))
	}
	cat.carrot = model.Ingredient{Name: "carrot", Unit: "pc"}
	cat.water = model.Ingredient{Name: "water", Unit: "ml"}
	cat.potato = model.Ingredient{Name: "potato", Unit: "g"}
	cat.onion = model.Ingredient{Name: "onion", Unit: "pc"}
	for _, ing := range []*model.Ingredient{&cat.carrot, &cat.water, &cat.potato, &cat.onion} {
		require.NoError(t, seed.CreateIngredient(ctx, ing))
	}
	require.NoError(t, seed.Close())

	cfg := config.Defaults()
	cfg.DBPath = dbPath
	cfg.MediaDir = filepath.Join(dir, "media")
	cfg.JWTSecret = "server-test-secret-0123456789"
	cfg.LoginRatePerMinute = 100

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	return &testServer{t: t, handler: srv.Handler(), cat: cat}
}

// do sends a request and returns the recorder. token may be empty.
func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// signUp registers a user and logs them in, returning the id and token.
func (s *testServer) signUp(username string) (int64, string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/users", "", map[string]string{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": strings.ToUpper(username[:1]) + username[1:],
		"last_name":  "Cook",
		"password":   testPassword,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](s.t, w)
	assert.NotContains(s.t, created, "is_subscribed")
	assert.NotContains(s.t, created, "password")

	w = s.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email":    username + "@example.com",
		"password": testPassword,
	})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return int64(created["id"].(float64)), decode[map[string]string](s.t, w)["auth_token"]
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func (s *testServer) recipePayload(name string, lines map[int64]int, tags ...int64) map[string]any {
	ingredients := make([]map[string]any, 0, len(lines))
	for id, amount := range lines {
		ingredients = append(ingredients, map[string]any{"id": id, "amount": amount})
	}
	return map[string]any{
		"ingredients":  ingredients,
		"tags":         tags,
		"image":        pngDataURI(s.t),
		"name":         name,
		"text":         "Cook it.",
		"cooking_time": 20,
	}
}

type recipeJSON struct {
	ID          int64 `json:"id"`
	Name        string
	Image       string
	CookingTime int `json:"cooking_time"`
	Author      struct {
		ID           int64 `json:"id"`
		IsSubscribed bool  `json:"is_subscribed"`
	}
	Tags        []model.Tag
	Ingredients []struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Unit   string `json:"measurement_unit"`
		Amount int    `json:"amount"`
	}
	IsFavorited      bool `json:"is_favorited"`
	IsInShoppingCart bool `json:"is_in_shopping_cart"`
}

// =========================================================================
// END-TO-END SCENARIO
// =========================================================================

func TestScenario_CreateReadFavorite(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.signUp("alice")
	_, bob := s.signUp("bob")

	// Author A creates "Soup".
	w := s.do(http.MethodPost, "/api/recipes", alice, s.recipePayload("Soup",
		map[int64]int{s.cat.carrot.ID: 1, s.cat.water.ID: 500}, s.cat.lunch.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[recipeJSON](t, w)
	recipePath := fmt.Sprintf("/api/recipes/%d", created.ID)

	// Anonymous read.
	w = s.do(http.MethodGet, recipePath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[recipeJSON](t, w)
	assert.Equal(t, "Soup", got.Name)
	assert.False(t, got.IsFavorited)
	assert.False(t, got.IsInShoppingCart)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "lunch", got.Tags[0].Slug)
	amounts := map[string]int{}
	for _, line := range got.Ingredients {
		amounts[line.Name] = line.Amount
	}
	assert.Equal(t, map[string]int{"carrot": 1, "water": 500}, amounts)

	// The stored image is served back.
	w = s.do(http.MethodGet, got.Image, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// B favorites, twice.
	favPath := recipePath + "/favorite"
	w = s.do(http.MethodPost, favPath, bob, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	summary := decode[map[string]any](t, w)
	assert.ElementsMatch(t, []string{"id", "name", "image", "cooking_time"}, keys(summary))

	w = s.do(http.MethodPost, favPath, bob, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "conflict", decode[map[string]any](t, w)["error"])

	w = s.do(http.MethodGet, recipePath, bob, nil)
	assert.True(t, decode[recipeJSON](t, w).IsFavorited)

	// And removes it, twice.
	w = s.do(http.MethodDelete, favPath, bob, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, favPath, bob, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestScenario_ShoppingCartDownload(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.signUp("alice")

	ids := make([]int64, 0, 2)
	for name, lines := range map[string]map[int64]int{
		"Mash": {s.cat.potato.ID: 200},
		"Stew": {s.cat.potato.ID: 300, s.cat.onion.ID: 1},
	} {
		w := s.do(http.MethodPost, "/api/recipes", alice, s.recipePayload(name, lines, s.cat.dinner.ID))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode[recipeJSON](t, w).ID)
	}
	for _, id := range ids {
		w := s.do(http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart", id), alice, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(http.MethodGet, "/api/recipes/download_shopping_cart", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "shopping_list.txt")
	assert.Equal(t, "onion (pc) - 1\npotato (g) - 500\n", w.Body.String())

	// The cart filter on the list endpoint agrees.
	w = s.do(http.MethodGet, "/api/recipes?is_in_shopping_cart=1", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["count"])
}

func TestScenario_Subscriptions(t *testing.T) {
	s := newTestServer(t)
	aliceID, alice := s.signUp("alice")
	bobID, bob := s.signUp("bob")

	for _, name := range []string{"One", "Two", "Three"} {
		w := s.do(http.MethodPost, "/api/recipes", alice,
			s.recipePayload(name, map[int64]int{s.cat.carrot.ID: 1}, s.cat.lunch.ID))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe?recipes_limit=2", aliceID), bob, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[map[string]any](t, w)
	assert.Equal(t, true, view["is_subscribed"])
	assert.EqualValues(t, 3, view["recipes_count"])
	assert.Len(t, view["recipes"], 2)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", bobID), bob, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "self-subscription")

	w = s.do(http.MethodGet, "/api/users/subscriptions", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, page["count"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d", aliceID), "", nil)
	assert.Equal(t, false, decode[map[string]any](t, w)["is_subscribed"])

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe", aliceID), bob, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestScenario_AuthorOnlyEdits(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.signUp("alice")
	_, bob := s.signUp("bob")

	w := s.do(http.MethodPost, "/api/recipes", alice,
		s.recipePayload("Soup", map[int64]int{s.cat.carrot.ID: 1}, s.cat.lunch.ID))
	require.Equal(t, http.StatusCreated, w.Code)
	path := fmt.Sprintf("/api/recipes/%d", decode[recipeJSON](t, w).ID)

	update := s.recipePayload("Better soup", map[int64]int{s.cat.water.ID: 300}, s.cat.dinner.ID)
	delete(update, "image")

	w = s.do(http.MethodPatch, path, bob, update)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, path, alice, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[recipeJSON](t, w)
	assert.Equal(t, "Better soup", got.Name)
	require.Len(t, got.Ingredients, 1)
	assert.Equal(t, "water", got.Ingredients[0].Name)

	w = s.do(http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =========================================================================
// ROUTING AND ERRORS
// =========================================================================

func TestRoutes_AuthRequired(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/users/me"},
		{http.MethodPost, "/api/recipes"},
		{http.MethodGet, "/api/recipes/download_shopping_cart"},
		{http.MethodPost, "/api/recipes/1/favorite"},
		{http.MethodGet, "/api/users/subscriptions"},
		{http.MethodPost, "/api/auth/token/logout"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := s.do(tc.method, tc.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRoutes_PublicReads(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Tag](t, w), 2)

	w = s.do(http.MethodGet, "/api/ingredients?name=pot", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ings := decode[[]model.Ingredient](t, w)
	require.Len(t, ings, 1)
	assert.Equal(t, "potato", ings[0].Name)

	w = s.do(http.MethodGet, "/api/recipes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[map[string]any](t, w)
	assert.EqualValues(t, 0, page["count"])
	assert.Equal(t, []any{}, page["results"])

	w = s.do(http.MethodGet, "/api/tags/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_ValidationErrorShape(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.signUp("alice")

	payload := s.recipePayload("", map[int64]int{s.cat.carrot.ID: 1}, s.cat.lunch.ID)
	payload["cooking_time"] = 0

	w := s.do(http.MethodPost, "/api/recipes", alice, payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[struct {
		Error  string              `json:"error"`
		Fields map[string][]string `json:"fields"`
	}](t, w)
	assert.Equal(t, "validation_error", body.Error)
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "cooking_time")
}

func TestRoutes_MetricsAndHealth(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/api/tags", "", nil)

	w := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `foodgram_http_requests_total{method="GET",route="/api/tags",status="200"}`)

	w = s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_GitHubDisabled(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/auth/github/login", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNew_RequiresSecret(t *testing.T) {
	cfg := config.Defaults()
	cfg.DBPath = filepath.Join(t.TempDir(), "x.db")

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

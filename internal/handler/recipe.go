package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/service"
)

// RecipeHandler serves /api/recipes and the favorite, cart and shopping
// list endpoints hanging off it.
//
// The acting user comes from the request context (auth.Actor) and is handed
// to the services explicitly; model.Anonymous when no token was sent.
type RecipeHandler struct {
	recipes     *service.RecipeService
	memberships *service.MembershipService
	shopping    *service.ShoppingListService
	logger      *slog.Logger
}

func NewRecipeHandler(
	recipes *service.RecipeService,
	memberships *service.MembershipService,
	shopping *service.ShoppingListService,
	logger *slog.Logger,
) *RecipeHandler {
	return &RecipeHandler{
		recipes:     recipes,
		memberships: memberships,
		shopping:    shopping,
		logger:      logger,
	}
}

// HandleList returns one page of recipes.
//
// HTTP: GET /api/recipes?limit=&offset=&author=&tags=&tags=&is_favorited=&is_in_shopping_cart=
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	query := service.RecipeQuery{
		ListOptions:      opts,
		Tags:             q["tags"],
		IsFavorited:      queryFlag(q.Get("is_favorited")),
		IsInShoppingCart: queryFlag(q.Get("is_in_shopping_cart")),
	}
	if raw := q.Get("author"); raw != "" {
		author, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || author <= 0 {
			writeError(w, apperror.ValidationFailed("author", "must be a user id"))
			return
		}
		query.AuthorID = author
	}

	page, err := h.recipes.List(r.Context(), auth.Actor(r.Context()), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(r, page))
}

// HandleCreate stores a new recipe.
//
// HTTP: POST /api/recipes
//
// REQUEST BODY:
//
//	{"ingredients": [{"id": 1, "amount": 10}], "tags": [1],
//	 "image": "data:image/png;base64,...", "name": "...", "text": "...", "cooking_time": 5}
//
// The response is the read-shape, same as GET /api/recipes/{id}.
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.RecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.recipes.Create(r.Context(), auth.Actor(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HandleGet returns one recipe.
//
// HTTP: GET /api/recipes/{id}
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := h.recipes.Get(r.Context(), auth.Actor(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleUpdate replaces a recipe. Only the author may call it.
//
// HTTP: PATCH /api/recipes/{id}
func (h *RecipeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	var in service.RecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.recipes.Update(r.Context(), auth.Actor(r.Context()), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleDelete removes a recipe.
//
// HTTP: DELETE /api/recipes/{id}
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.recipes.Delete(r.Context(), auth.Actor(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Membership returns the add/remove handler pair for one kind.
//
//	POST   /api/recipes/{id}/favorite → 201 {id, name, image, cooking_time}
//	DELETE /api/recipes/{id}/favorite → 204
//
// The shopping_cart routes work the same way.
func (h *RecipeHandler) Membership(kind model.MembershipKind) (add, remove http.HandlerFunc) {
	toggle := func(w http.ResponseWriter, r *http.Request, on bool) {
		id, err := pathID(r, "id", "recipe")
		if err != nil {
			writeError(w, err)
			return
		}

		summary, err := h.memberships.Toggle(r.Context(), auth.Actor(r.Context()), id, on, kind)
		if err != nil {
			writeError(w, err)
			return
		}
		if !on {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusCreated, summary)
	}

	add = func(w http.ResponseWriter, r *http.Request) { toggle(w, r, true) }
	remove = func(w http.ResponseWriter, r *http.Request) { toggle(w, r, false) }
	return add, remove
}

// HandleDownloadShoppingCart sends the aggregated shopping list as a text
// attachment.
//
// HTTP: GET /api/recipes/download_shopping_cart
func (h *RecipeHandler) HandleDownloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.shopping.Export(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.ShoppingListFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(service.Render(items))); err != nil {
		h.logger.Warn("failed to write shopping list", slog.String("error", err.Error()))
	}
}

// queryFlag accepts the truthy spellings clients send for boolean filters.
func queryFlag(raw string) bool {
	switch raw {
	case "1", "true", "True", "yes":
		return true
	}
	return false
}

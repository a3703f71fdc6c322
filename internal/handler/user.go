package handler

import (
	"net/http"
	"strconv"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/service"
)

// UserHandler serves /api/users: accounts, profiles and subscriptions.
type UserHandler struct {
	accounts      *service.AuthService
	subscriptions *service.SubscriptionService
}

func NewUserHandler(accounts *service.AuthService, subscriptions *service.SubscriptionService) *UserHandler {
	return &UserHandler{accounts: accounts, subscriptions: subscriptions}
}

// createdUserResponse is the sign-up answer. It is the base profile without
// is_subscribed, which means nothing for an account that was just created.
type createdUserResponse struct {
	Email     string `json:"email"`
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// HTTP: GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.accounts.ListUsers(r.Context(), auth.Actor(r.Context()), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(r, page))
}

// HandleRegister creates an account.
//
// HTTP: POST /api/users
// REQUEST BODY: {"email", "username", "first_name", "last_name", "password"}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdUserResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// HTTP: GET /api/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	me, err := h.accounts.Me(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user")
	if err != nil {
		writeError(w, err)
		return
	}
	profile, err := h.accounts.GetProfile(r.Context(), auth.Actor(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleSetPassword changes the caller's password.
//
// HTTP: POST /api/users/set_password
// REQUEST BODY: {"current_password", "new_password"}
func (h *UserHandler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	err := h.accounts.SetPassword(r.Context(), auth.Actor(r.Context()), body.CurrentPassword, body.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSubscriptions lists the authors the caller follows, each with up to
// ?recipes_limit= of their recipes.
//
// HTTP: GET /api/users/subscriptions
func (h *UserHandler) HandleSubscriptions(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recipesLimit, err := parseRecipesLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.subscriptions.List(r.Context(), auth.Actor(r.Context()), opts, recipesLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(r, page))
}

// HTTP: POST /api/users/{id}/subscribe?recipes_limit=3 → 201 subscription view
func (h *UserHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user")
	if err != nil {
		writeError(w, err)
		return
	}
	recipesLimit, err := parseRecipesLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := h.subscriptions.Subscribe(r.Context(), auth.Actor(r.Context()), id, recipesLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HTTP: DELETE /api/users/{id}/subscribe → 204
func (h *UserHandler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.subscriptions.Unsubscribe(r.Context(), auth.Actor(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseRecipesLimit reads ?recipes_limit=. Absent means uncapped.
func parseRecipesLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("recipes_limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed("recipes_limit", "must be a non-negative integer")
	}
	return n, nil
}

package service

// AuthService is the business logic layer for accounts:
//
//	UserHandler / AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                                             ↘ TokenService (JWT)
//	                                             ↘ PasswordService (bcrypt)
//
// Two ways in exist. Email + password registration with token login, and
// optional GitHub sign-in, which upserts the account by GitHub id.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/metrics"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// reservedUsernames would shadow fixed routes such as /api/users/me.
var reservedUsernames = []string{"me"}

// RegisterInput is the sign-up payload. Every field is required.
type RegisterInput struct {
	Email     string `json:"email"      validate:"required,max=254,email"`
	Username  string `json:"username"   validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name"  validate:"required,max=150"`
	Password  string `json:"password"   validate:"required"`
}

// AuthResult bundles the account with a freshly issued token so the handler
// can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	presenter *Presenter
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	presenter *Presenter,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		presenter: presenter,
		validate:  newValidator(),
		logger:    logger,
	}
}

// Register creates a password account. All problems with the payload,
// including an email or username that is already in use, come back together
// as one validation error.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	fe := apperror.FieldErrors{}
	if err := collectViolations(s.validate, in, fe); err != nil {
		return nil, err
	}
	for _, reserved := range reservedUsernames {
		if strings.EqualFold(in.Username, reserved) {
			fe.Add("username", fmt.Sprintf("the username %q is reserved", in.Username))
		}
	}
	if !fe.Has("password") {
		for _, problem := range auth.CheckStrength(in.Password) {
			fe.Add("password", problem)
		}
	}

	if !fe.Has("email") || !fe.Has("username") {
		emailTaken, usernameTaken, err := s.users.IdentityTaken(ctx, in.Email, in.Username)
		if err != nil {
			s.logger.Error("failed to check identity", slog.String("error", err.Error()))
			return nil, fmt.Errorf("service/auth: checking identity: %w", err)
		}
		if emailTaken && !fe.Has("email") {
			fe.Add("email", "a user with that email already exists")
		}
		if usernameTaken && !fe.Has("username") {
			fe.Add("username", "a user with that username already exists")
		}
	}

	if err := fe.Err(); err != nil {
		metrics.RecordAuthEvent("register", false)
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		metrics.RecordAuthEvent("register", false)
		if !isDomainError(err) {
			s.logger.Error("failed to create user", slog.String("error", err.Error()))
		}
		return nil, err
	}

	metrics.RecordAuthEvent("register", true)
	s.logger.Info("user registered",
		slog.Int64("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// errBadCredentials is deliberately identical for unknown email, wrong
// password and GitHub-only accounts.
func errBadCredentials() error {
	return apperror.ValidationFailed("non_field_errors", "unable to log in with provided credentials")
}

// Login checks an email and password and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		fe := apperror.FieldErrors{}
		if email == "" {
			fe.Add("email", "this field is required")
		}
		if password == "" {
			fe.Add("password", "this field is required")
		}
		return nil, fe.Err()
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			metrics.RecordAuthEvent("login", false)
			return nil, errBadCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", email, err)
	}
	if user.PasswordHash == "" {
		metrics.RecordAuthEvent("login", false)
		return nil, errBadCredentials()
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		metrics.RecordAuthEvent("login", false)
		return nil, errBadCredentials()
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}

	metrics.RecordAuthEvent("login", true)
	s.logger.Info("user logged in", slog.Int64("id", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// Me returns the acting user's own profile.
func (s *AuthService) Me(ctx context.Context, actor int64) (ProfileView, error) {
	if err := requireActor(actor); err != nil {
		return ProfileView{}, err
	}
	return s.GetProfile(ctx, actor, actor)
}

// GetProfile returns user id as seen by viewer.
func (s *AuthService) GetProfile(ctx context.Context, viewer, id int64) (ProfileView, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return ProfileView{}, err
	}
	return s.presenter.Profile(ctx, viewer, user)
}

func (s *AuthService) ListUsers(ctx context.Context, viewer int64, opts repository.ListOptions) (Page[ProfileView], error) {
	opts = opts.Normalize()

	users, count, err := s.users.ListUsers(ctx, opts)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return Page[ProfileView]{}, fmt.Errorf("service/auth: listing users: %w", err)
	}

	views := make([]ProfileView, 0, len(users))
	for i := range users {
		v, err := s.presenter.Profile(ctx, viewer, &users[i])
		if err != nil {
			return Page[ProfileView]{}, err
		}
		views = append(views, v)
	}
	return newPage(opts, count, views), nil
}

// SetPassword replaces the actor's password after checking the current one.
// GitHub-only accounts have no current password and cannot use this.
func (s *AuthService) SetPassword(ctx context.Context, actor int64, current, next string) error {
	if err := requireActor(actor); err != nil {
		return err
	}

	fe := apperror.FieldErrors{}
	if current == "" {
		fe.Add("current_password", "this field is required")
	}
	if next == "" {
		fe.Add("new_password", "this field is required")
	} else {
		for _, problem := range auth.CheckStrength(next) {
			fe.Add("new_password", problem)
		}
	}
	if err := fe.Err(); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, actor)
	if err != nil {
		return err
	}
	if user.PasswordHash == "" || s.passwords.Verify(user.PasswordHash, current) != nil {
		return apperror.ValidationFailed("current_password", "the current password is wrong")
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, actor, hash); err != nil {
		if !isDomainError(err) {
			s.logger.Error("failed to update password", slog.String("error", err.Error()))
		}
		return err
	}

	s.logger.Info("password changed", slog.Int64("id", actor))
	return nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback once the handler
// has exchanged the code for a profile.
//
// A first sign-in creates the account (username = GitHub login) or links the
// GitHub id to an existing account with the same email. Users who hide their
// email get GitHub's no-reply address instead.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	email := ghUser.Email
	if email == "" {
		email = ghUser.NoReplyEmail()
	}
	first, last, _ := strings.Cut(strings.TrimSpace(ghUser.Name), " ")

	githubID := ghUser.ID
	user := &model.User{
		Email:     email,
		Username:  ghUser.Login,
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		GitHubID:  &githubID,
	}

	if err := s.users.UpsertGitHubUser(ctx, user); err != nil {
		metrics.RecordAuthEvent("github", false)
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}

	metrics.RecordAuthEvent("github", true)
	s.logger.Info("user authenticated via GitHub",
		slog.Int64("id", user.ID),
		slog.String("login", ghUser.Login),
	)
	return &AuthResult{User: user, Token: token}, nil
}

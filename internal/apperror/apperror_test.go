package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// Each case is one struct in the slice, and t.Run gives it a named sub-test.

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("recipe", 42),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("recipe is already in favorites"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("authentication required"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "wrapped Forbidden still matches",
			err:       fmt.Errorf("updating recipe: %w", Forbidden("not the author")),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("recipe", 42),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Conflict does NOT match ErrValidation",
			err:       Conflict("already subscribed"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("recipe", 42),
			wantMessage: "recipe not found with id 42",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name:        "Conflict uses custom message",
			err:         Conflict("cannot subscribe to yourself"),
			wantMessage: "cannot subscribe to yourself",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("recipe", 1)
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if got := err.Fields["email"]; len(got) != 1 || got[0] != "invalid email format" {
		t.Errorf("Fields[email] = %v, want [invalid email format]", got)
	}
}

func TestFieldErrors_EmptyIsNil(t *testing.T) {
	fe := FieldErrors{}
	if err := fe.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
}

func TestFieldErrors_CollectsEveryField(t *testing.T) {
	fe := FieldErrors{}
	fe.Add("name", "name is required")
	fe.Add("cooking_time", "cooking_time must be at least 1")
	fe.Add("ingredients", "ingredients must be unique")
	fe.Add("ingredients", "amount must be at least 1")
	fe.Add("ingredients", "amount must be at least 1")

	err := fe.Err()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Err() = %v, want ErrValidation", err)
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As failed to extract *AppError")
	}
	if len(appErr.Fields) != 3 {
		t.Errorf("len(Fields) = %d, want 3", len(appErr.Fields))
	}
	if got := len(appErr.Fields["ingredients"]); got != 2 {
		t.Errorf("len(Fields[ingredients]) = %d, want 2 (duplicates dropped)", got)
	}
	if appErr.Field != "cooking_time" {
		t.Errorf("Field = %q, want first key in sorted order %q", appErr.Field, "cooking_time")
	}
}

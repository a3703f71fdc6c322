package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/foodgram/internal/apperror"
)

var (
	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	rgbHexRe   = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// newValidator returns a validator that reports fields by their JSON names
// and knows the custom tags "username", "slug" and "rgbhex".
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})

	mustRegister(v, "username", usernameRe)
	mustRegister(v, "slug", slugRe)
	mustRegister(v, "rgbhex", rgbHexRe)
	return v
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("service: registering %q validation: %v", tag, err))
	}
}

// collectViolations runs struct validation and records every violation in fe.
// Nested violations ("ingredients[1].amount") are filed under their top-level
// field ("ingredients").
func collectViolations(v *validator.Validate, s any, fe apperror.FieldErrors) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("service: validating %T: %w", s, err)
	}
	for _, e := range verrs {
		top := topLevelField(e.Namespace())
		msg := violationMessage(e)
		if top != e.Field() {
			msg = e.Field() + ": " + msg
		}
		fe.Add(top, msg)
	}
	return nil
}

// topLevelField turns "RecipeInput.ingredients[1].amount" into "ingredients".
func topLevelField(namespace string) string {
	_, rest, ok := strings.Cut(namespace, ".")
	if !ok {
		return namespace
	}
	if i := strings.IndexAny(rest, ".["); i >= 0 {
		return rest[:i]
	}
	return rest
}

func violationMessage(e validator.FieldError) string {
	collection := e.Kind() == reflect.Slice || e.Kind() == reflect.Map
	text := e.Kind() == reflect.String

	switch e.Tag() {
	case "required":
		return "this field is required"
	case "min":
		switch {
		case collection:
			return fmt.Sprintf("ensure this field has at least %s item(s)", e.Param())
		case text:
			return fmt.Sprintf("ensure this field has at least %s characters", e.Param())
		}
		return fmt.Sprintf("ensure this value is greater than or equal to %s", e.Param())
	case "max":
		switch {
		case collection:
			return fmt.Sprintf("ensure this field has no more than %s item(s)", e.Param())
		case text:
			return fmt.Sprintf("ensure this field has no more than %s characters", e.Param())
		}
		return fmt.Sprintf("ensure this value is less than or equal to %s", e.Param())
	case "gt":
		return fmt.Sprintf("ensure this value is greater than %s", e.Param())
	case "unique":
		return "items must not repeat"
	case "email":
		return "enter a valid email address"
	case "username":
		return "only letters, digits and @/./+/-/_ are allowed"
	case "slug":
		return "only letters, digits, hyphens and underscores are allowed"
	case "rgbhex":
		return "enter a color as #RRGGBB"
	}
	return fmt.Sprintf("failed %q validation", e.Tag())
}

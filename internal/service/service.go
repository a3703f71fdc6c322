// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services never see an *http.Request. The acting user arrives as a plain
// int64 id (model.Anonymous for unauthenticated callers), so the same code
// serves the HTTP handlers, the admin CLI and the tests.
//
// DEPENDENCY INJECTION:
// Every service takes repository interfaces, not *sqlite.DB. Tests pass
// in-memory fakes where call counting matters and a real in-memory SQLite
// database elsewhere.
package service

import (
	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// Page is one slice of a paginated list plus the size of the whole list.
type Page[T any] struct {
	Count   int
	Limit   int
	Offset  int
	Results []T
}

func newPage[T any](opts repository.ListOptions, count int, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{Count: count, Limit: opts.Limit, Offset: opts.Offset, Results: results}
}

// requireActor rejects the anonymous actor on operations that need a user.
func requireActor(actor int64) error {
	if actor == model.Anonymous {
		return apperror.Unauthorized("authentication credentials were not provided")
	}
	return nil
}

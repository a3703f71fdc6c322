package handler

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/repository"
	"github.com/sakif/foodgram/internal/service"
)

// PageResponse is the wire shape of every paginated list.
//
//	{"count": 12, "next": "http://host/api/recipes?limit=6&offset=6", "previous": null, "results": [...]}
type PageResponse[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// maxPage keeps (page-1)*limit within int for any allowed limit.
const maxPage = math.MaxInt / repository.MaxPageSize

// parseListOptions reads ?limit= and ?offset=. ?page= (1-based) is accepted
// as an alternative to offset for clients that page by number.
func parseListOptions(r *http.Request) (repository.ListOptions, error) {
	q := r.URL.Query()
	fe := apperror.FieldErrors{}

	limit, _ := queryInt(q, "limit", fe)
	opts := repository.ListOptions{Limit: limit}.Normalize()

	if q.Has("offset") {
		opts.Offset, _ = queryInt(q, "offset", fe)
	} else if q.Has("page") {
		page, _ := queryInt(q, "page", fe)
		if page > maxPage {
			fe.Add("page", "page number is too large")
		} else if page > 1 {
			opts.Offset = (page - 1) * opts.Limit
		}
	}

	if err := fe.Err(); err != nil {
		return repository.ListOptions{}, err
	}
	return opts.Normalize(), nil
}

// queryInt parses a non-negative integer parameter, recording a violation
// in fe when it is malformed. ok is false when the parameter is absent or bad.
func queryInt(q url.Values, key string, fe apperror.FieldErrors) (int, bool) {
	raw := q.Get(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		fe.Add(key, "must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// toPageResponse builds next/previous links by rewriting limit and offset on
// the current request URL, keeping every other query parameter.
func toPageResponse[T any](r *http.Request, page service.Page[T]) PageResponse[T] {
	resp := PageResponse[T]{Count: page.Count, Results: page.Results}

	if page.Offset+page.Limit < page.Count {
		next := pageURL(r, page.Limit, page.Offset+page.Limit)
		resp.Next = &next
	}
	if page.Offset > 0 {
		prev := page.Offset - page.Limit
		if prev < 0 {
			prev = 0
		}
		link := pageURL(r, page.Limit, prev)
		resp.Previous = &link
	}
	return resp
}

func pageURL(r *http.Request, limit, offset int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	q := r.URL.Query()
	q.Del("page")
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}

	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

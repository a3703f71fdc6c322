package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var (
	_ repository.TagRepository        = (*DB)(nil)
	_ repository.IngredientRepository = (*DB)(nil)
)

// =========================================================================
// TAGS
// =========================================================================

func (db *DB) CreateTag(ctx context.Context, tag *model.Tag) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO tags (name, color, slug) VALUES (?, ?, ?)`,
		tag.Name, tag.Color, tag.Slug,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("tag with name, color or slug of %q already exists", tag.Slug))
		}
		return fmt.Errorf("sqlite: creating tag %q: %w", tag.Slug, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new tag id: %w", err)
	}
	tag.ID = id
	return nil
}

func (db *DB) GetTag(ctx context.Context, id int64) (*model.Tag, error) {
	var tag model.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, color, slug FROM tags WHERE id = ?`, id,
	).Scan(&tag.ID, &tag.Name, &tag.Color, &tag.Slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, fmt.Errorf("sqlite: getting tag %d: %w", id, err)
	}
	return &tag, nil
}

// ListTags returns every tag ordered by name. The tag set is small
// reference data, so it is never paginated.
func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, color, slug FROM tags ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.Slug); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tag rows: %w", err)
	}
	return tags, nil
}

// =========================================================================
// INGREDIENTS
// =========================================================================

// CreateIngredient inserts an ingredient. The (name, unit) pair is unique; a
// repeat returns a Conflict so bulk imports can skip it.
func (db *DB) CreateIngredient(ctx context.Context, ingredient *model.Ingredient) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO ingredients (name, measurement_unit) VALUES (?, ?)`,
		ingredient.Name, ingredient.Unit,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("ingredient %q (%s) already exists", ingredient.Name, ingredient.Unit))
		}
		return fmt.Errorf("sqlite: creating ingredient %q: %w", ingredient.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new ingredient id: %w", err)
	}
	ingredient.ID = id
	return nil
}

func (db *DB) GetIngredient(ctx context.Context, id int64) (*model.Ingredient, error) {
	var ing model.Ingredient
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, measurement_unit FROM ingredients WHERE id = ?`, id,
	).Scan(&ing.ID, &ing.Name, &ing.Unit)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("ingredient", id)
		}
		return nil, fmt.Errorf("sqlite: getting ingredient %d: %w", id, err)
	}
	return &ing, nil
}

// ListIngredients returns ingredients whose name starts with namePrefix,
// case-insensitively in any script, ordered by name. An empty prefix lists
// everything.
//
// Both sides are folded with Go's strings.ToLower (fold_case on the SQL
// side). LIKE wildcards in the prefix are escaped so "50%" matches literally.
func (db *DB) ListIngredients(ctx context.Context, namePrefix string) ([]model.Ingredient, error) {
	pattern := escapeLike(strings.ToLower(namePrefix)) + "%"

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, measurement_unit FROM ingredients
		 WHERE `+foldCaseFunc+`(name) LIKE ? ESCAPE '\'
		 ORDER BY name COLLATE NOCASE, measurement_unit, id`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing ingredients: %w", err)
	}
	defer rows.Close()

	ingredients := []model.Ingredient{}
	for rows.Next() {
		var ing model.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit); err != nil {
			return nil, fmt.Errorf("sqlite: scanning ingredient row: %w", err)
		}
		ingredients = append(ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating ingredient rows: %w", err)
	}
	return ingredients, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

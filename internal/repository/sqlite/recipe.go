package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.RecipeRepository = (*DB)(nil)

// recipeSelect reads a recipe row together with its author. Ingredient lines
// and tags are attached afterwards by loadRecipeDetails.
const recipeSelect = `
	SELECT r.id, r.author_id, r.name, r.image, r.text, r.cooking_time, r.created_at, r.updated_at,
	       u.id, u.email, u.username, u.first_name, u.last_name
	FROM recipes r
	JOIN users u ON u.id = r.author_id`

func scanRecipe(row rowScanner, r *model.Recipe) error {
	return row.Scan(
		&r.ID, &r.AuthorID, &r.Name, &r.Image, &r.Text, &r.CookingTime, &r.CreatedAt, &r.UpdatedAt,
		&r.Author.ID, &r.Author.Email, &r.Author.Username, &r.Author.FirstName, &r.Author.LastName,
	)
}

// CreateRecipe writes the recipe row, its ingredient lines and its tag set in
// ONE transaction.
//
// ALL OR NOTHING:
// If any referenced ingredient or tag does not exist, the whole transaction
// rolls back and no recipe row survives. The error is apperror.NotFound for
// the missing reference.
//
// On success recipe.ID and the timestamps are set. Names and units on the
// lines are NOT filled in; read the recipe back with GetRecipe for that.
func (db *DB) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	now := time.Now()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO recipes (author_id, name, image, text, cooking_time, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			recipe.AuthorID, recipe.Name, recipe.Image, recipe.Text, recipe.CookingTime, now, now,
		)
		if err != nil {
			return translateRecipeWriteError(err, recipe)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new recipe id: %w", err)
		}

		if err := insertIngredientLines(ctx, tx, id, recipe.Ingredients); err != nil {
			return err
		}
		if err := insertRecipeTags(ctx, tx, id, recipe.Tags); err != nil {
			return err
		}

		recipe.ID = id
		return nil
	})
	if err != nil {
		return err
	}

	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	return nil
}

// ReplaceRecipe overwrites the scalar fields of an existing recipe and
// replaces its ingredient lines and tag set wholesale, in one transaction.
//
// FULL REPLACEMENT:
// Every existing line is deleted and the submitted ones inserted. There is no
// diffing; what was submitted is exactly what remains.
func (db *DB) ReplaceRecipe(ctx context.Context, recipe *model.Recipe) error {
	now := time.Now()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE recipes
			 SET name = ?, image = ?, text = ?, cooking_time = ?, updated_at = ?
			 WHERE id = ?`,
			recipe.Name, recipe.Image, recipe.Text, recipe.CookingTime, now, recipe.ID,
		)
		if err != nil {
			return translateRecipeWriteError(err, recipe)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("recipe", recipe.ID)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM recipe_ingredients WHERE recipe_id = ?`, recipe.ID,
		); err != nil {
			return fmt.Errorf("sqlite: clearing lines of recipe %d: %w", recipe.ID, err)
		}
		if err := insertIngredientLines(ctx, tx, recipe.ID, recipe.Ingredients); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM recipe_tags WHERE recipe_id = ?`, recipe.ID,
		); err != nil {
			return fmt.Errorf("sqlite: clearing tags of recipe %d: %w", recipe.ID, err)
		}
		return insertRecipeTags(ctx, tx, recipe.ID, recipe.Tags)
	})
	if err != nil {
		return err
	}

	recipe.UpdatedAt = now
	return nil
}

func translateRecipeWriteError(err error, recipe *model.Recipe) error {
	switch {
	case isUniqueViolation(err):
		return apperror.ValidationFailed("name", "you already have a recipe with this name")
	case isForeignKeyViolation(err):
		return apperror.NotFound("user", recipe.AuthorID)
	case isCheckViolation(err):
		return apperror.ValidationFailed("cooking_time", "cooking_time must be at least 1")
	}
	return fmt.Errorf("sqlite: writing recipe %q: %w", recipe.Name, err)
}

// insertIngredientLines resolves each ingredient id before inserting its line,
// so a dangling id is reported as NotFound rather than a raw constraint error.
func insertIngredientLines(ctx context.Context, tx *sql.Tx, recipeID int64, lines []model.IngredientLine) error {
	for _, line := range lines {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM ingredients WHERE id = ?)`, line.IngredientID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("sqlite: resolving ingredient %d: %w", line.IngredientID, err)
		}
		if !exists {
			return apperror.NotFound("ingredient", line.IngredientID)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, ingredient_id, amount) VALUES (?, ?, ?)`,
			recipeID, line.IngredientID, line.Amount,
		)
		if err != nil {
			switch {
			case isUniqueViolation(err):
				return apperror.ValidationFailed("ingredients", "ingredients must be unique")
			case isCheckViolation(err):
				return apperror.ValidationFailed("ingredients", "amount must be at least 1")
			}
			return fmt.Errorf("sqlite: inserting line for ingredient %d: %w", line.IngredientID, err)
		}
	}
	return nil
}

func insertRecipeTags(ctx context.Context, tx *sql.Tx, recipeID int64, tags []model.Tag) error {
	for _, tag := range tags {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM tags WHERE id = ?)`, tag.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("sqlite: resolving tag %d: %w", tag.ID, err)
		}
		if !exists {
			return apperror.NotFound("tag", tag.ID)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)`,
			recipeID, tag.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.ValidationFailed("tags", "tags must be unique")
			}
			return fmt.Errorf("sqlite: tagging recipe %d with %d: %w", recipeID, tag.ID, err)
		}
	}
	return nil
}

// GetRecipe reads the full aggregate: the recipe, its author, its ingredient
// lines (with names and units) and its tags.
func (db *DB) GetRecipe(ctx context.Context, id int64) (*model.Recipe, error) {
	var r model.Recipe
	err := scanRecipe(db.conn.QueryRowContext(ctx, recipeSelect+` WHERE r.id = ?`, id), &r)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("recipe", id)
		}
		return nil, fmt.Errorf("sqlite: getting recipe %d: %w", id, err)
	}

	recipes := []model.Recipe{r}
	if err := db.loadRecipeDetails(ctx, recipes); err != nil {
		return nil, err
	}
	return &recipes[0], nil
}

// ListRecipes returns one page of recipes, newest first, plus the number of
// recipes matching the filter.
//
// DYNAMIC WHERE:
// Each active filter appends one condition and its arguments. Only
// placeholders are concatenated into the SQL, never user input.
func (db *DB) ListRecipes(ctx context.Context, filter repository.RecipeFilter) ([]model.Recipe, int, error) {
	limit, offset := pageBounds(filter.ListOptions)

	var (
		conds []string
		args  []any
	)
	if filter.AuthorID != 0 {
		conds = append(conds, `r.author_id = ?`)
		args = append(args, filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id
			WHERE rt.recipe_id = r.id AND t.slug IN (`+placeholders(len(filter.TagSlugs))+`))`)
		for _, slug := range filter.TagSlugs {
			args = append(args, slug)
		}
	}
	if filter.FavoritedBy != 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM favorites f WHERE f.recipe_id = r.id AND f.user_id = ?)`)
		args = append(args, filter.FavoritedBy)
	}
	if filter.InCartOf != 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM shopping_cart c WHERE c.recipe_id = r.id AND c.user_id = ?)`)
		args = append(args, filter.InCartOf)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipes r`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting recipes: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		recipeSelect+where+` ORDER BY r.id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing recipes: %w", err)
	}

	recipes := make([]model.Recipe, 0, limit)
	for rows.Next() {
		var r model.Recipe
		if err := scanRecipe(rows, &r); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("sqlite: scanning recipe row: %w", err)
		}
		recipes = append(recipes, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating recipes: %w", err)
	}

	// The result set is closed before the follow-up queries: with a single
	// connection an open *sql.Rows would block them.
	if err := db.loadRecipeDetails(ctx, recipes); err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// loadRecipeDetails fills Ingredients and Tags of every recipe in place with
// two queries, regardless of how many recipes there are.
func (db *DB) loadRecipeDetails(ctx context.Context, recipes []model.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	index := make(map[int64]int, len(recipes))
	ids := make([]any, len(recipes))
	for i := range recipes {
		index[recipes[i].ID] = i
		ids[i] = recipes[i].ID
		recipes[i].Ingredients = []model.IngredientLine{}
		recipes[i].Tags = []model.Tag{}
	}
	in := placeholders(len(ids))

	lineRows, err := db.conn.QueryContext(ctx,
		`SELECT ri.recipe_id, i.id, i.name, i.measurement_unit, ri.amount
		 FROM recipe_ingredients ri
		 JOIN ingredients i ON i.id = ri.ingredient_id
		 WHERE ri.recipe_id IN (`+in+`)
		 ORDER BY ri.id`,
		ids...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading recipe lines: %w", err)
	}
	for lineRows.Next() {
		var (
			recipeID int64
			line     model.IngredientLine
		)
		if err := lineRows.Scan(&recipeID, &line.IngredientID, &line.Name, &line.Unit, &line.Amount); err != nil {
			lineRows.Close()
			return fmt.Errorf("sqlite: scanning recipe line: %w", err)
		}
		r := &recipes[index[recipeID]]
		r.Ingredients = append(r.Ingredients, line)
	}
	err = lineRows.Err()
	lineRows.Close()
	if err != nil {
		return fmt.Errorf("sqlite: iterating recipe lines: %w", err)
	}

	tagRows, err := db.conn.QueryContext(ctx,
		`SELECT rt.recipe_id, t.id, t.name, t.color, t.slug
		 FROM recipe_tags rt
		 JOIN tags t ON t.id = rt.tag_id
		 WHERE rt.recipe_id IN (`+in+`)
		 ORDER BY t.id`,
		ids...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading recipe tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var (
			recipeID int64
			tag      model.Tag
		)
		if err := tagRows.Scan(&recipeID, &tag.ID, &tag.Name, &tag.Color, &tag.Slug); err != nil {
			return fmt.Errorf("sqlite: scanning recipe tag: %w", err)
		}
		r := &recipes[index[recipeID]]
		r.Tags = append(r.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating recipe tags: %w", err)
	}
	return nil
}

// DeleteRecipe removes a recipe. Foreign keys cascade the delete to its
// lines, tag links, favorites and cart entries.
func (db *DB) DeleteRecipe(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting recipe %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("recipe", id)
	}
	return nil
}

func (db *DB) RecipeNameTaken(ctx context.Context, authorID int64, name string, excludeID int64) (bool, error) {
	var taken bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM recipes WHERE author_id = ? AND name = ? AND id <> ?)`,
		authorID, name, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking recipe name: %w", err)
	}
	return taken, nil
}

// AuthorRecipes returns the newest summaries of an author's recipes. In
// SQLite a negative LIMIT means no limit, which is what limit <= 0 asks for.
func (db *DB) AuthorRecipes(ctx context.Context, authorID int64, limit int) ([]model.RecipeSummary, int, error) {
	if limit <= 0 {
		limit = -1
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipes WHERE author_id = ?`, authorID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting recipes of author %d: %w", authorID, err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, image, cooking_time FROM recipes
		 WHERE author_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		authorID, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing recipes of author %d: %w", authorID, err)
	}
	defer rows.Close()

	summaries := []model.RecipeSummary{}
	for rows.Next() {
		var s model.RecipeSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Image, &s.CookingTime); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning recipe summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating recipe summaries: %w", err)
	}
	return summaries, total, nil
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var (
	_ repository.MembershipRepository   = (*DB)(nil)
	_ repository.SubscriptionRepository = (*DB)(nil)
	_ repository.ShoppingListRepository = (*DB)(nil)
)

// membershipTable maps a kind to its join table. Table names cannot be bound
// as parameters, so only these two constants ever reach the SQL string.
func membershipTable(kind model.MembershipKind) (string, error) {
	switch kind {
	case model.Favorite:
		return "favorites", nil
	case model.ShoppingCart:
		return "shopping_cart", nil
	}
	return "", fmt.Errorf("sqlite: unknown membership kind %q", kind)
}

// =========================================================================
// FAVORITES AND SHOPPING CART
// =========================================================================

// AddMembership inserts the (user, recipe) pair. The composite primary key
// makes a second insert fail; that failure is reported as a Conflict, so two
// racing adds leave exactly one row and one Conflict.
func (db *DB) AddMembership(ctx context.Context, kind model.MembershipKind, userID, recipeID int64) error {
	table, err := membershipTable(kind)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO `+table+` (user_id, recipe_id, created_at) VALUES (?, ?, ?)`,
		userID, recipeID, time.Now(),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Conflict(fmt.Sprintf("recipe %d is already in %s", recipeID, kindLabel(kind)))
		case isForeignKeyViolation(err):
			return apperror.NotFound("recipe", recipeID)
		}
		return fmt.Errorf("sqlite: adding recipe %d to %s of user %d: %w", recipeID, table, userID, err)
	}
	return nil
}

// RemoveMembership deletes the pair. Removing an absent pair is a Conflict.
func (db *DB) RemoveMembership(ctx context.Context, kind model.MembershipKind, userID, recipeID int64) error {
	table, err := membershipTable(kind)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE user_id = ? AND recipe_id = ?`,
		userID, recipeID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing recipe %d from %s of user %d: %w", recipeID, table, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict(fmt.Sprintf("recipe %d is not in %s", recipeID, kindLabel(kind)))
	}
	return nil
}

func (db *DB) HasMembership(ctx context.Context, kind model.MembershipKind, userID, recipeID int64) (bool, error) {
	table, err := membershipTable(kind)
	if err != nil {
		return false, err
	}

	var ok bool
	err = db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE user_id = ? AND recipe_id = ?)`,
		userID, recipeID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking %s membership: %w", table, err)
	}
	return ok, nil
}

func kindLabel(kind model.MembershipKind) string {
	if kind == model.ShoppingCart {
		return "the shopping cart"
	}
	return "favorites"
}

// =========================================================================
// SUBSCRIPTIONS
// =========================================================================

// Subscribe records that userID follows authorID. A repeat is a Conflict and
// so is following yourself (the table's CHECK constraint backs that up).
func (db *DB) Subscribe(ctx context.Context, userID, authorID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, author_id, created_at) VALUES (?, ?, ?)`,
		userID, authorID, time.Now(),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Conflict("already subscribed to this author")
		case isCheckViolation(err):
			return apperror.Conflict("cannot subscribe to yourself")
		case isForeignKeyViolation(err):
			return apperror.NotFound("user", authorID)
		}
		return fmt.Errorf("sqlite: subscribing user %d to %d: %w", userID, authorID, err)
	}
	return nil
}

func (db *DB) Unsubscribe(ctx context.Context, userID, authorID int64) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = ? AND author_id = ?`,
		userID, authorID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unsubscribing user %d from %d: %w", userID, authorID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("not subscribed to this author")
	}
	return nil
}

func (db *DB) IsSubscribed(ctx context.Context, userID, authorID int64) (bool, error) {
	var ok bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_id = ? AND author_id = ?)`,
		userID, authorID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking subscription: %w", err)
	}
	return ok, nil
}

// ListSubscriptions returns the authors userID follows, most recent
// subscription first, plus the total.
func (db *DB) ListSubscriptions(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.User, int, error) {
	limit, offset := pageBounds(opts)

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting subscriptions: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.email, u.username, u.first_name, u.last_name, u.password_hash, u.github_id, u.created_at, u.updated_at
		 FROM subscriptions s
		 JOIN users u ON u.id = s.author_id
		 WHERE s.user_id = ?
		 ORDER BY s.rowid DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing subscriptions: %w", err)
	}
	defer rows.Close()

	authors := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning subscription row: %w", err)
		}
		authors = append(authors, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating subscriptions: %w", err)
	}
	return authors, total, nil
}

// =========================================================================
// SHOPPING LIST
// =========================================================================

// ShoppingList aggregates the ingredient lines of every recipe in the user's
// cart: one row per distinct (name, unit), amounts summed, ordered by name
// then unit.
//
// The grouping key is the ingredient's name and unit, not its id, so two
// catalog rows that print identically collapse into one line. SQLite's SUM
// over integers raises "integer overflow" rather than wrapping.
func (db *DB) ShoppingList(ctx context.Context, userID int64) ([]model.ShoppingItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT i.name, i.measurement_unit, SUM(ri.amount)
		 FROM shopping_cart c
		 JOIN recipe_ingredients ri ON ri.recipe_id = c.recipe_id
		 JOIN ingredients i ON i.id = ri.ingredient_id
		 WHERE c.user_id = ?
		 GROUP BY i.name, i.measurement_unit
		 ORDER BY i.name, i.measurement_unit`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building shopping list for user %d: %w", userID, err)
	}
	defer rows.Close()

	items := []model.ShoppingItem{}
	for rows.Next() {
		var item model.ShoppingItem
		if err := rows.Scan(&item.Name, &item.Unit, &item.Amount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning shopping list row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating shopping list: %w", err)
	}
	return items, nil
}

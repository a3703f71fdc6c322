package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, username, first_name, last_name, password_hash, github_id, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows, so one scan
// function serves QueryRow and Query loops alike.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, u *model.User) error {
	var githubID sql.NullInt64
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&githubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	} else {
		u.GitHubID = nil
	}
	return nil
}

// CreateUser inserts a new account and fills in its ID and timestamps.
//
// LastInsertId is how SQLite hands back an INTEGER PRIMARY KEY it just
// generated. A UNIQUE violation on email or username becomes a Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, username, first_name, last_name, password_hash, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.GitHubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("a user with that email or username already exists")
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	), &u)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return &u, nil
}

// GetUserByEmail looks an account up by its login email. The match is
// case-insensitive.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email,
	), &u)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return &u, nil
}

func (db *DB) IdentityTaken(ctx context.Context, email, username string) (bool, bool, error) {
	var emailTaken, usernameTaken bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT
			EXISTS(SELECT 1 FROM users WHERE email = ? COLLATE NOCASE),
			EXISTS(SELECT 1 FROM users WHERE username = ?)`,
		email, username,
	).Scan(&emailTaken, &usernameTaken)
	if err != nil {
		return false, false, fmt.Errorf("sqlite: checking identity: %w", err)
	}
	return emailTaken, usernameTaken, nil
}

// ListUsers returns one page of accounts ordered by id, plus the total count.
func (db *DB) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, int, error) {
	limit, offset := pageBounds(opts)

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting users: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}
	return users, total, nil
}

func (db *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// UpsertGitHubUser signs a GitHub identity in.
//
// THREE CASES:
//  1. An account already carries this github_id → return it unchanged.
//  2. An account owns the same email → link the github_id to it.
//  3. Neither → insert a new account from the fields on user.
//
// user.GitHubID must be set. On return user holds the stored account.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return apperror.ValidationFailed("github_id", "github id is required")
	}
	githubID := *user.GitHubID

	return db.withTx(ctx, func(tx *sql.Tx) error {
		var existing model.User
		err := scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID,
		), &existing)
		if err == nil {
			*user = existing
			return nil
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("sqlite: looking up user by github_id %d: %w", githubID, err)
		}

		err = scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, user.Email,
		), &existing)
		if err == nil {
			existing.GitHubID = &githubID
			existing.UpdatedAt = time.Now()
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET github_id = ?, updated_at = ? WHERE id = ?`,
				githubID, existing.UpdatedAt, existing.ID,
			); err != nil {
				return fmt.Errorf("sqlite: linking github_id to user %d: %w", existing.ID, err)
			}
			*user = existing
			return nil
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("sqlite: looking up user by email: %w", err)
		}

		now := time.Now()
		user.CreatedAt = now
		user.UpdatedAt = now
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (email, username, first_name, last_name, password_hash, github_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, '', ?, ?, ?)`,
			user.Email, user.Username, user.FirstName, user.LastName, githubID, now, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("username " + user.Username + " is already taken")
			}
			return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", githubID, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new user id: %w", err)
		}
		user.ID = id
		user.PasswordHash = ""
		return nil
	})
}

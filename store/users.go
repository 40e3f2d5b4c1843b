package store

import (
	"context"
	"database/sql"

	"newsforge/models"
)

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	u := &models.User{Email: email, PasswordHash: passwordHash, Name: name}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id, plan, subscription_status, is_active, created_at
	`, email, passwordHash, name).Scan(&u.ID, &u.Plan, &u.SubscriptionStatus, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE email = $1`, email))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE id = $1`, id))
}

func (s *Store) GetUserBySubscriptionID(ctx context.Context, subscriptionID string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE subscription_id = $1`, subscriptionID))
}

const userSelect = `
	SELECT id, email, password_hash, COALESCE(name, ''), plan,
	       COALESCE(subscription_id, ''), subscription_status, is_active, created_at
	FROM users`

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Plan,
		&u.SubscriptionID, &u.SubscriptionStatus, &u.IsActive, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &u, nil
}

// SetSubscriptionByEmail attaches a Paddle subscription to the user owning the
// email. Returns the number of rows updated; zero means no such user.
func (s *Store) SetSubscriptionByEmail(ctx context.Context, email, subscriptionID, status string, active bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET subscription_id = $1, subscription_status = $2, is_active = $3
		WHERE email = $4
	`, subscriptionID, status, active, email)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	n, err := res.RowsAffected()
	return n, Error.Wrap(err)
}

// UpdateSubscriptionStatus mutates the user matched by subscription id.
// Returns the number of rows updated; zero means the subscription is unknown.
func (s *Store) UpdateSubscriptionStatus(ctx context.Context, subscriptionID, status string, active bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET subscription_status = $1, is_active = $2
		WHERE subscription_id = $3
	`, status, active, subscriptionID)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	n, err := res.RowsAffected()
	return n, Error.Wrap(err)
}

func (s *Store) CountNewsletters(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM newsletters WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return n, nil
}

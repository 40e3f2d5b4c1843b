package store

import (
	"context"
	"database/sql"
	"time"

	"newsforge/models"
)

const newsletterSelect = `
	SELECT id, user_id, name, topic, style, schedule, is_active, last_sent_at, created_at
	FROM newsletters`

func (s *Store) CreateNewsletter(ctx context.Context, userID, name, topic, style, schedule string) (*models.Newsletter, error) {
	n := &models.Newsletter{UserID: userID, Name: name, Topic: topic, Style: style, Schedule: schedule}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO newsletters (user_id, name, topic, style, schedule)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at
	`, userID, name, topic, style, schedule).Scan(&n.ID, &n.IsActive, &n.CreatedAt)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return n, nil
}

// GetNewsletter scopes the lookup to the owning user so one user can never
// read another's newsletter by id.
func (s *Store) GetNewsletter(ctx context.Context, id, userID string) (*models.Newsletter, error) {
	return scanNewsletter(s.db.QueryRowContext(ctx,
		newsletterSelect+` WHERE id = $1 AND user_id = $2`, id, userID))
}

func (s *Store) ListNewsletters(ctx context.Context, userID string) ([]models.Newsletter, error) {
	rows, err := s.db.QueryContext(ctx,
		newsletterSelect+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer rows.Close()

	var out []models.Newsletter
	for rows.Next() {
		var n models.Newsletter
		if err := rows.Scan(&n.ID, &n.UserID, &n.Name, &n.Topic, &n.Style,
			&n.Schedule, &n.IsActive, &n.LastSentAt, &n.CreatedAt); err != nil {
			return nil, Error.Wrap(err)
		}
		out = append(out, n)
	}
	return out, Error.Wrap(rows.Err())
}

func (s *Store) DeleteNewsletter(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM newsletters WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return Error.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Error.Wrap(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListScheduled returns active newsletters with a schedule, joined with the
// owner's email for delivery. Due-ness is decided by the scheduler.
func (s *Store) ListScheduled(ctx context.Context) ([]ScheduledNewsletter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.topic, n.style, n.schedule, n.last_sent_at, u.email
		FROM newsletters n
		JOIN users u ON u.id = n.user_id
		WHERE n.is_active = TRUE AND n.schedule <> '' AND u.is_active = TRUE
	`)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer rows.Close()

	var out []ScheduledNewsletter
	for rows.Next() {
		var sn ScheduledNewsletter
		if err := rows.Scan(&sn.ID, &sn.Topic, &sn.Style, &sn.Schedule, &sn.LastSentAt, &sn.Email); err != nil {
			return nil, Error.Wrap(err)
		}
		out = append(out, sn)
	}
	return out, Error.Wrap(rows.Err())
}

type ScheduledNewsletter struct {
	ID         string
	Topic      string
	Style      string
	Schedule   string
	LastSentAt *time.Time
	Email      string
}

func (s *Store) TouchLastSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE newsletters SET last_sent_at = $1 WHERE id = $2`, at, id)
	return Error.Wrap(err)
}

// GetNewsletterForSend loads a newsletter without user scoping, for workers
// that only hold the newsletter id.
func (s *Store) GetNewsletterForSend(ctx context.Context, id string) (*models.Newsletter, error) {
	return scanNewsletter(s.db.QueryRowContext(ctx, newsletterSelect+` WHERE id = $1`, id))
}

func scanNewsletter(row *sql.Row) (*models.Newsletter, error) {
	var n models.Newsletter
	err := row.Scan(&n.ID, &n.UserID, &n.Name, &n.Topic, &n.Style,
		&n.Schedule, &n.IsActive, &n.LastSentAt, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &n, nil
}

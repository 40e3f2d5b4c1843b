package store

import (
	"context"
	"database/sql"
	"time"

	"newsforge/models"
)

func (s *Store) CreateIssue(ctx context.Context, newsletterID, subject, content string) (*models.Issue, error) {
	i := &models.Issue{NewsletterID: newsletterID, Subject: subject, Content: content}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO issues (newsletter_id, subject, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, newsletterID, subject, content).Scan(&i.ID, &i.CreatedAt)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return i, nil
}

// MarkIssueSent records delivery confirmation. sent_at stays NULL until the
// email provider accepts the message.
func (s *Store) MarkIssueSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE issues SET sent_at = $1 WHERE id = $2`, at, id)
	return Error.Wrap(err)
}

func (s *Store) ListIssues(ctx context.Context, newsletterID string) ([]models.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, newsletter_id, subject, content, sent_at, created_at
		FROM issues WHERE newsletter_id = $1 ORDER BY created_at DESC
	`, newsletterID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer rows.Close()

	var out []models.Issue
	for rows.Next() {
		var i models.Issue
		if err := rows.Scan(&i.ID, &i.NewsletterID, &i.Subject, &i.Content, &i.SentAt, &i.CreatedAt); err != nil {
			return nil, Error.Wrap(err)
		}
		out = append(out, i)
	}
	return out, Error.Wrap(rows.Err())
}

// LatestUnsentIssue finds a recently generated but undelivered issue so a
// retried generate-and-send task reuses it instead of generating twice.
func (s *Store) LatestUnsentIssue(ctx context.Context, newsletterID string, since time.Time) (*models.Issue, error) {
	var i models.Issue
	err := s.db.QueryRowContext(ctx, `
		SELECT id, newsletter_id, subject, content, sent_at, created_at
		FROM issues
		WHERE newsletter_id = $1 AND sent_at IS NULL AND created_at > $2
		ORDER BY created_at DESC LIMIT 1
	`, newsletterID, since).Scan(&i.ID, &i.NewsletterID, &i.Subject, &i.Content, &i.SentAt, &i.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &i, nil
}

type Overview struct {
	TotalNewsletters int     `json:"total_newsletters"`
	TotalIssues      int     `json:"total_issues"`
	SentIssues       int     `json:"sent_issues"`
	SendRate         float64 `json:"send_rate"`
}

func (s *Store) StatsOverview(ctx context.Context, userID string) (*Overview, error) {
	var o Overview
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM newsletters WHERE user_id = $1),
			(SELECT COUNT(*) FROM issues WHERE newsletter_id IN (SELECT id FROM newsletters WHERE user_id = $1)),
			(SELECT COUNT(*) FROM issues WHERE sent_at IS NOT NULL AND newsletter_id IN (SELECT id FROM newsletters WHERE user_id = $1))
	`, userID).Scan(&o.TotalNewsletters, &o.TotalIssues, &o.SentIssues)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if o.TotalIssues > 0 {
		o.SendRate = float64(o.SentIssues) / float64(o.TotalIssues)
	}
	return &o, nil
}

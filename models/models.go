package models

import (
	"time"
)

type Newsletter struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Topic      string     `json:"topic"`
	Style      string     `json:"style"`
	Schedule   string     `json:"schedule,omitempty"`
	IsActive   bool       `json:"is_active"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Issue struct {
	ID           string     `json:"id"`
	NewsletterID string     `json:"newsletter_id"`
	Subject      string     `json:"subject"`
	Content      string     `json:"content"`
	SentAt       *time.Time `json:"sent_at,omitempty"` // nil until the email provider confirms delivery
	CreatedAt    time.Time  `json:"created_at"`
}

// Transaction is an append-only ledger entry mirroring a Paddle billing event.
type Transaction struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id,omitempty"`
	PaddleID   string     `json:"paddle_id"`
	EventType  string     `json:"event_type"`
	Amount     string     `json:"amount,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	Status     string     `json:"status,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

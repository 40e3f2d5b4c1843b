package models

import (
	"time"
)

type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	Name               string    `json:"name,omitempty"`
	Plan               string    `json:"plan"`
	SubscriptionID     string    `json:"subscription_id,omitempty"`
	SubscriptionStatus string    `json:"subscription_status"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

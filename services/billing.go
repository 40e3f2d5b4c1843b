package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"newsforge/store"
)

const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"

	LimitFree    = 2
	LimitStarter = 10
	LimitPro     = 50
)

func NewsletterLimit(plan string) int {
	switch strings.ToLower(plan) {
	case PlanStarter:
		return LimitStarter
	case PlanPro:
		return LimitPro
	case PlanFree:
		return LimitFree
	default:
		// Unknown or empty plans get the free limit
		return LimitFree
	}
}

func IsValidPlan(plan string) bool {
	p := strings.ToLower(plan)
	return p == PlanStarter || p == PlanPro
}

// WebhookEvent is the typed shape of a Paddle webhook body. Fields the
// handlers do not read are dropped at decode time.
type WebhookEvent struct {
	EventType  string    `json:"event_type"`
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       EventData `json:"data"`
}

type EventData struct {
	ID            string `json:"id"`
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	CurrencyCode  string `json:"currency_code"`
	CancelledAt   string `json:"cancelled_at"`
}

// BillingResult is the JSON-serializable outcome of webhook processing.
// Webhook senders always get 200 regardless of this status; the result is for
// logging and the response body.
type BillingResult struct {
	Status         string `json:"status"`
	EventType      string `json:"event_type,omitempty"`
	TransactionID  string `json:"transaction_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	CustomerID     string `json:"customer_id,omitempty"`
	Message        string `json:"message,omitempty"`
}

// BillingService applies verified Paddle events to user and transaction
// records.
type BillingService struct {
	store *store.Store
	log   *zap.Logger
}

func NewBillingService(st *store.Store, log *zap.Logger) *BillingService {
	return &BillingService{store: st, log: log}
}

// ProcessEvent dispatches on event type. Unknown event types are reported as
// unhandled, not errors, per the provider's retry semantics. Processing
// failures are folded into the result; this method never returns an error.
func (s *BillingService) ProcessEvent(ctx context.Context, event WebhookEvent) BillingResult {
	switch event.EventType {
	case "transaction.completed":
		return s.handleTransaction(ctx, event)
	case "transaction.updated":
		return s.handleTransaction(ctx, event)
	case "subscription.created":
		return s.handleSubscriptionCreated(ctx, event)
	case "subscription.updated":
		return s.handleSubscriptionStatus(ctx, event, event.Data.Status, event.Data.Status != "paused")
	case "subscription.cancelled":
		return s.handleSubscriptionStatus(ctx, event, "cancelled", false)
	case "subscription.past_due":
		return s.handleSubscriptionStatus(ctx, event, "past_due", true)
	default:
		s.log.Warn("unhandled webhook event type", zap.String("event_type", event.EventType))
		return BillingResult{Status: "unhandled", EventType: event.EventType}
	}
}

func (s *BillingService) handleTransaction(ctx context.Context, event WebhookEvent) BillingResult {
	data := event.Data

	var userID string
	if data.CustomerEmail != "" {
		if u, err := s.store.GetUserByEmail(ctx, data.CustomerEmail); err == nil {
			userID = u.ID
		}
	}

	occurredAt := event.OccurredAt
	entry := store.TransactionEntry{
		UserID:    userID,
		PaddleID:  data.ID,
		EventType: event.EventType,
		Amount:    data.Amount,
		Currency:  data.CurrencyCode,
		Status:    data.Status,
	}
	if !occurredAt.IsZero() {
		entry.OccurredAt = &occurredAt
	}

	if err := s.store.InsertTransaction(ctx, entry); err != nil {
		s.log.Error("transaction ledger insert failed",
			zap.String("paddle_id", data.ID),
			zap.Error(err),
		)
		return BillingResult{Status: "error", EventType: event.EventType, Message: "ledger insert failed"}
	}

	s.log.Info("transaction recorded",
		zap.String("event_type", event.EventType),
		zap.String("transaction_id", data.ID),
		zap.String("customer_id", data.CustomerID),
	)
	return BillingResult{
		Status:        "success",
		EventType:     event.EventType,
		TransactionID: data.ID,
		CustomerID:    data.CustomerID,
	}
}

func (s *BillingService) handleSubscriptionCreated(ctx context.Context, event WebhookEvent) BillingResult {
	data := event.Data
	status := data.Status
	if status == "" {
		status = "active"
	}

	if data.CustomerEmail == "" {
		s.log.Warn("subscription.created without customer email",
			zap.String("subscription_id", data.ID))
		return BillingResult{Status: "success", EventType: event.EventType, SubscriptionID: data.ID}
	}

	n, err := s.store.SetSubscriptionByEmail(ctx, data.CustomerEmail, data.ID, status, true)
	if err != nil {
		s.log.Error("subscription attach failed", zap.Error(err))
		return BillingResult{Status: "error", EventType: event.EventType, Message: "subscription attach failed"}
	}
	if n == 0 {
		// No user with that email yet. Logged and dropped; the transactions
		// ledger still keeps the raw event for manual reconciliation.
		s.log.Warn("webhook for unknown user",
			zap.String("event_type", event.EventType),
			zap.String("customer_email", data.CustomerEmail),
			zap.String("subscription_id", data.ID),
		)
	}

	return BillingResult{
		Status:         "success",
		EventType:      event.EventType,
		SubscriptionID: data.ID,
		CustomerID:     data.CustomerID,
	}
}

func (s *BillingService) handleSubscriptionStatus(ctx context.Context, event WebhookEvent, status string, active bool) BillingResult {
	data := event.Data

	n, err := s.store.UpdateSubscriptionStatus(ctx, data.ID, status, active)
	if err != nil {
		s.log.Error("subscription status update failed",
			zap.String("subscription_id", data.ID),
			zap.Error(err),
		)
		return BillingResult{Status: "error", EventType: event.EventType, Message: "subscription update failed"}
	}
	if n == 0 {
		s.log.Warn("webhook for unknown subscription",
			zap.String("event_type", event.EventType),
			zap.String("subscription_id", data.ID),
		)
		return BillingResult{Status: "success", EventType: event.EventType, SubscriptionID: data.ID}
	}

	s.log.Info("subscription updated",
		zap.String("event_type", event.EventType),
		zap.String("subscription_id", data.ID),
		zap.String("status", status),
	)
	return BillingResult{
		Status:         "success",
		EventType:      event.EventType,
		SubscriptionID: data.ID,
	}
}

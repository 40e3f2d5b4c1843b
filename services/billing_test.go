package services

import (
	"context"
	"testing"
	"time"

	"newsforge/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBillingFixture(t *testing.T) (*BillingService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBillingService(store.New(db), zap.NewNop()), mock
}

func TestProcessEventSubscriptionCancelled(t *testing.T) {
	svc, mock := newBillingFixture(t)

	mock.ExpectExec(`UPDATE users SET subscription_status`).
		WithArgs("cancelled", false, "sub_123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result := svc.ProcessEvent(context.Background(), WebhookEvent{
		EventType: "subscription.cancelled",
		Data:      EventData{ID: "sub_123", Status: "cancelled"},
	})

	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "sub_123", result.SubscriptionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventPastDueKeepsAccountActive(t *testing.T) {
	svc, mock := newBillingFixture(t)

	mock.ExpectExec(`UPDATE users SET subscription_status`).
		WithArgs("past_due", true, "sub_123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result := svc.ProcessEvent(context.Background(), WebhookEvent{
		EventType: "subscription.past_due",
		Data:      EventData{ID: "sub_123"},
	})

	assert.Equal(t, "success", result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventUnknownSubscription(t *testing.T) {
	svc, mock := newBillingFixture(t)

	mock.ExpectExec(`UPDATE users SET subscription_status`).
		WithArgs("cancelled", false, "sub_unknown").
		WillReturnResult(sqlmock.NewResult(0, 0))

	result := svc.ProcessEvent(context.Background(), WebhookEvent{
		EventType: "subscription.cancelled",
		Data:      EventData{ID: "sub_unknown"},
	})

	// Unknown subscription is logged and acknowledged, never an error,
	// so the provider does not retry forever.
	assert.Equal(t, "success", result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventSubscriptionCreated(t *testing.T) {
	svc, mock := newBillingFixture(t)

	mock.ExpectExec(`UPDATE users SET subscription_id`).
		WithArgs("sub_new", "active", true, "alice@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result := svc.ProcessEvent(context.Background(), WebhookEvent{
		EventType: "subscription.created",
		Data:      EventData{ID: "sub_new", CustomerEmail: "alice@example.com"},
	})

	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "sub_new", result.SubscriptionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventTransactionCompleted(t *testing.T) {
	svc, mock := newBillingFixture(t)

	occurred := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	userRows := sqlmock.NewRows([]string{
		"id", "email", "password_hash", "name", "plan",
		"subscription_id", "subscription_status", "is_active", "created_at",
	}).AddRow("user-1", "bob@example.com", "hash", "Bob", "starter", "sub_1", "active", true, occurred)

	mock.ExpectQuery(`FROM users`).
		WithArgs("bob@example.com").
		WillReturnRows(userRows)
	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(sqlmock.AnyArg(), "txn_1", "transaction.completed", "9.99", "USD", "completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := svc.ProcessEvent(context.Background(), WebhookEvent{
		EventType:  "transaction.completed",
		OccurredAt: occurred,
		Data: EventData{
			ID:            "txn_1",
			CustomerEmail: "bob@example.com",
			Status:        "completed",
			Amount:        "9.99",
			CurrencyCode:  "USD",
		},
	})

	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "txn_1", result.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventUnhandledType(t *testing.T) {
	svc, _ := newBillingFixture(t)

	result := svc.ProcessEvent(context.Background(), WebhookEvent{EventType: "address.created"})

	assert.Equal(t, "unhandled", result.Status)
	assert.Equal(t, "address.created", result.EventType)
}

func TestNewsletterLimit(t *testing.T) {
	assert.Equal(t, 2, NewsletterLimit(PlanFree))
	assert.Equal(t, 10, NewsletterLimit(PlanStarter))
	assert.Equal(t, 50, NewsletterLimit(PlanPro))
	// Unknown plans get the free tier limit.
	assert.Equal(t, 2, NewsletterLimit("enterprise"))
}

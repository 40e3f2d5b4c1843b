package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"newsforge/services"
	"newsforge/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	draft *services.Draft
	err   error
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, topic, style string, useSearch bool) (*services.Draft, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.draft, nil
}

type sentMail struct {
	to      string
	subject string
	html    string
	text    string
}

type fakeMailer struct {
	err  error
	sent []sentMail
}

func (f *fakeMailer) Send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: toEmail, subject: subject, html: htmlBody, text: textBody})
	return nil
}

type pipelineFixture struct {
	queue  *Queue
	worker *Worker
	mock   sqlmock.Sqlmock
	gen    *fakeGenerator
	mailer *fakeMailer
}

func newPipelineFixture(t *testing.T, gen *fakeGenerator, mailer *fakeMailer) *pipelineFixture {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	q := newTestQueue(t)
	w := NewWorker(q, 1, zap.NewNop())
	NewTasks(store.New(db), gen, services.NewRenderer(), mailer, zap.NewNop()).Register(w)

	return &pipelineFixture{queue: q, worker: w, mock: mock, gen: gen, mailer: mailer}
}

func (f *pipelineFixture) expectNewsletterLookup() {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "name", "topic", "style", "schedule", "is_active", "last_sent_at", "created_at",
	}).AddRow("nl-1", "user-1", "AI Weekly", "ai news", "professional", "weekly", true, nil, time.Now().UTC())
	f.mock.ExpectQuery(`FROM newsletters`).WithArgs("nl-1").WillReturnRows(rows)
}

func issueColumns() []string {
	return []string{"id", "newsletter_id", "subject", "content", "sent_at", "created_at"}
}

func TestGenerateAndSendHappyPath(t *testing.T) {
	gen := &fakeGenerator{draft: &services.Draft{Subject: "AI This Week", Content: "# Top Story\n\nBig news."}}
	mailer := &fakeMailer{}
	f := newPipelineFixture(t, gen, mailer)

	f.expectNewsletterLookup()
	f.mock.ExpectQuery(`FROM issues`).
		WithArgs("nl-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(issueColumns()))
	f.mock.ExpectQuery(`INSERT INTO issues`).
		WithArgs("nl-1", "AI This Week", "# Top Story\n\nBig news.").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("issue-1", time.Now().UTC()))
	f.mock.ExpectExec(`UPDATE issues SET sent_at`).
		WithArgs(sqlmock.AnyArg(), "issue-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE newsletters SET last_sent_at`).
		WithArgs(sqlmock.AnyArg(), "nl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	taskID, err := f.queue.EnqueueGenerateAndSend(context.Background(), "nl-1", "reader@example.com")
	require.NoError(t, err)

	drain(t, f.worker)

	st, err := f.queue.Status(context.Background(), taskID)
	require.NoError(t, err)
	require.Equal(t, StateSuccess, st.State)

	var result IssueTaskResult
	require.NoError(t, json.Unmarshal(st.Result, &result))
	assert.True(t, result.Success)
	assert.True(t, result.ContentGenerated)
	assert.True(t, result.EmailSent)
	assert.Equal(t, "issue-1", result.IssueID)
	assert.Equal(t, "nl-1", result.NewsletterID)
	assert.NotNil(t, result.SentAt)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "reader@example.com", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].html, "<h1>AI This Week</h1>")
	assert.Contains(t, mailer.sent[0].text, "Subject: AI This Week")

	// sent_at and last_sent_at stamps only happen after the mailer accepts.
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateAndSendDeliveryFailureKeepsIssue(t *testing.T) {
	gen := &fakeGenerator{draft: &services.Draft{Subject: "S", Content: "Body"}}
	mailer := &fakeMailer{err: services.ErrMailNotConfigured}
	f := newPipelineFixture(t, gen, mailer)

	// First attempt generates and persists the issue.
	f.expectNewsletterLookup()
	f.mock.ExpectQuery(`FROM issues`).
		WithArgs("nl-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(issueColumns()))
	f.mock.ExpectQuery(`INSERT INTO issues`).
		WithArgs("nl-1", "S", "Body").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("issue-1", time.Now().UTC()))

	// Every retry finds the undelivered issue and reuses it.
	for i := 0; i < combinedMaxRetries; i++ {
		f.expectNewsletterLookup()
		f.mock.ExpectQuery(`FROM issues`).
			WithArgs("nl-1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(issueColumns()).
				AddRow("issue-1", "nl-1", "S", "Body", nil, time.Now().UTC()))
	}

	taskID, err := f.queue.EnqueueGenerateAndSend(context.Background(), "nl-1", "reader@example.com")
	require.NoError(t, err)

	drain(t, f.worker)

	// Generation ran exactly once; retries reused the persisted issue.
	assert.Equal(t, 1, gen.calls)

	st, err := f.queue.Status(context.Background(), taskID)
	require.NoError(t, err)
	require.Equal(t, StateFailure, st.State)
	assert.Equal(t, combinedMaxRetries, st.Retries)

	var result IssueTaskResult
	require.NoError(t, json.Unmarshal(st.Result, &result))
	assert.False(t, result.Success)
	assert.True(t, result.ContentGenerated)
	assert.False(t, result.EmailSent)
	assert.Equal(t, "issue-1", result.IssueID)
	assert.Equal(t, "reader@example.com", result.Recipient)
	assert.Contains(t, result.Error, "delivery to reader@example.com failed")
	assert.Nil(t, result.SentAt)

	// No sent_at or last_sent_at writes happened.
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateAndSendGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: services.ErrNotConfigured}
	f := newPipelineFixture(t, gen, &fakeMailer{})

	for i := 0; i <= combinedMaxRetries; i++ {
		f.expectNewsletterLookup()
		f.mock.ExpectQuery(`FROM issues`).
			WithArgs("nl-1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(issueColumns()))
	}

	taskID, err := f.queue.EnqueueGenerateAndSend(context.Background(), "nl-1", "reader@example.com")
	require.NoError(t, err)

	drain(t, f.worker)

	st, err := f.queue.Status(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, StateFailure, st.State)

	// Nothing was generated, so the plain failure shape applies.
	var result failureResult
	require.NoError(t, json.Unmarshal(st.Result, &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "content generation failed")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateTask(t *testing.T) {
	gen := &fakeGenerator{draft: &services.Draft{Subject: "Hello", Content: "World", Model: "model-x"}}
	f := newPipelineFixture(t, gen, &fakeMailer{})

	taskID, err := f.queue.EnqueueGenerate(context.Background(), "ai news", "technical", false)
	require.NoError(t, err)

	drain(t, f.worker)

	st, err := f.queue.Status(context.Background(), taskID)
	require.NoError(t, err)
	require.Equal(t, StateSuccess, st.State)

	var result GenerateTaskResult
	require.NoError(t, json.Unmarshal(st.Result, &result))
	assert.True(t, result.Success)
	assert.Equal(t, "Hello", result.Subject)
	assert.Equal(t, "World", result.Content)
	assert.Equal(t, "model-x", result.Model)
}

func TestSendEmailTask(t *testing.T) {
	mailer := &fakeMailer{}
	f := newPipelineFixture(t, &fakeGenerator{}, mailer)

	taskID, err := f.queue.EnqueueSendEmail(context.Background(), "reader@example.com", "Hi", "# Heading\n\nBody")
	require.NoError(t, err)

	drain(t, f.worker)

	st, err := f.queue.Status(context.Background(), taskID)
	require.NoError(t, err)
	require.Equal(t, StateSuccess, st.State)

	var result SendTaskResult
	require.NoError(t, json.Unmarshal(st.Result, &result))
	assert.True(t, result.Success)
	assert.Equal(t, "reader@example.com", result.ToEmail)

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].html, "<h1>Heading</h1>")
	assert.Contains(t, mailer.sent[0].text, "Subject: Hi")
}

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"newsforge/services"
	"newsforge/store"
)

// Task kinds.
const (
	KindGenerate        = "newsletter.generate"
	KindSendEmail       = "email.send"
	KindGenerateAndSend = "newsletter.generate_and_send"
)

// Retry policies. Email gets more attempts with shorter backoff since
// provider hiccups are common and cheap to retry.
const (
	generateMaxRetries = 3
	generateBaseDelay  = 60 * time.Second

	sendMaxRetries = 5
	sendBaseDelay  = 30 * time.Second

	combinedMaxRetries = 3
	combinedRetryDelay = 2 * time.Minute

	// A retried combined task reuses an unsent issue no older than this
	// instead of generating again.
	issueReuseWindow = time.Hour
)

type GeneratePayload struct {
	Topic     string `json:"topic"`
	Style     string `json:"style,omitempty"`
	UseSearch bool   `json:"use_search,omitempty"`
}

type SendEmailPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type GenerateAndSendPayload struct {
	NewsletterID   string `json:"newsletter_id"`
	RecipientEmail string `json:"recipient_email"`
}

type GenerateTaskResult struct {
	Success bool   `json:"success"`
	Subject string `json:"subject"`
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

type SendTaskResult struct {
	Success bool      `json:"success"`
	ToEmail string    `json:"to_email"`
	Subject string    `json:"subject"`
	SentAt  time.Time `json:"sent_at"`
}

// IssueTaskResult makes partial failure visible: ContentGenerated can be true
// while EmailSent is false, with the persisted issue id for follow-up.
type IssueTaskResult struct {
	Success          bool       `json:"success"`
	NewsletterID     string     `json:"newsletter_id"`
	IssueID          string     `json:"issue_id,omitempty"`
	Recipient        string     `json:"recipient"`
	ContentGenerated bool       `json:"content_generated"`
	EmailSent        bool       `json:"email_sent"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// deliveryError carries the partial IssueTaskResult through the retry
// machinery so pollers still see the persisted issue once retries run out.
type deliveryError struct {
	result IssueTaskResult
	err    error
}

func (e *deliveryError) Error() string { return e.err.Error() }
func (e *deliveryError) Unwrap() error { return e.err }

func (e *deliveryError) FailureResult() any {
	r := e.result
	r.Error = e.err.Error()
	return r
}

// ContentGenerator is the slice of the generator the task handlers need.
type ContentGenerator interface {
	Generate(ctx context.Context, topic, style string, useSearch bool) (*services.Draft, error)
}

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error
}

// Tasks bundles the services the newsletter task handlers need.
type Tasks struct {
	store    *store.Store
	gen      ContentGenerator
	renderer *services.Renderer
	mailer   Sender
	log      *zap.Logger
}

func NewTasks(st *store.Store, gen ContentGenerator, renderer *services.Renderer, mailer Sender, log *zap.Logger) *Tasks {
	return &Tasks{store: st, gen: gen, renderer: renderer, mailer: mailer, log: log}
}

func (t *Tasks) Register(w *Worker) {
	w.Register(KindGenerate, Handler{
		Fn:          t.generate,
		MaxRetries:  generateMaxRetries,
		BaseDelay:   generateBaseDelay,
		Exponential: true,
	})
	w.Register(KindSendEmail, Handler{
		Fn:          t.sendEmail,
		MaxRetries:  sendMaxRetries,
		BaseDelay:   sendBaseDelay,
		Exponential: true,
	})
	w.Register(KindGenerateAndSend, Handler{
		Fn:         t.generateAndSend,
		MaxRetries: combinedMaxRetries,
		BaseDelay:  combinedRetryDelay,
	})
}

func (t *Tasks) generate(ctx context.Context, payload json.RawMessage) (any, error) {
	var p GeneratePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	draft, err := t.gen.Generate(ctx, p.Topic, p.Style, p.UseSearch)
	if err != nil {
		return nil, fmt.Errorf("newsletter generation failed for topic %q: %w", p.Topic, err)
	}

	return GenerateTaskResult{
		Success: true,
		Subject: draft.Subject,
		Content: draft.Content,
		Model:   draft.Model,
	}, nil
}

func (t *Tasks) sendEmail(ctx context.Context, payload json.RawMessage) (any, error) {
	var p SendEmailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	draft := &services.Draft{Subject: p.Subject, Content: p.Content}
	html := t.renderer.RenderHTML(draft)
	text := t.renderer.RenderText(draft)

	if err := t.mailer.Send(ctx, p.ToEmail, p.Subject, html, text); err != nil {
		return nil, fmt.Errorf("email delivery to %s failed: %w", p.ToEmail, err)
	}

	return SendTaskResult{
		Success: true,
		ToEmail: p.ToEmail,
		Subject: p.Subject,
		SentAt:  time.Now().UTC(),
	}, nil
}

// generateAndSend chains generation and delivery inside one task. The issue
// row is written as soon as content exists, so a delivery failure leaves a
// retrievable "generated but undelivered" record; retries reuse that issue
// rather than generating a duplicate.
func (t *Tasks) generateAndSend(ctx context.Context, payload json.RawMessage) (any, error) {
	var p GenerateAndSendPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	newsletter, err := t.store.GetNewsletterForSend(ctx, p.NewsletterID)
	if err != nil {
		return nil, fmt.Errorf("newsletter %s lookup failed: %w", p.NewsletterID, err)
	}

	var draft *services.Draft
	var issueID string

	existing, err := t.store.LatestUnsentIssue(ctx, newsletter.ID, time.Now().Add(-issueReuseWindow))
	if err == nil {
		draft = &services.Draft{Subject: existing.Subject, Content: existing.Content}
		issueID = existing.ID
		t.log.Info("reusing undelivered issue",
			zap.String("newsletter_id", newsletter.ID),
			zap.String("issue_id", issueID),
		)
	} else {
		draft, err = t.gen.Generate(ctx, newsletter.Topic, newsletter.Style, true)
		if err != nil {
			return nil, fmt.Errorf("content generation failed for newsletter %s: %w", newsletter.ID, err)
		}

		issue, err := t.store.CreateIssue(ctx, newsletter.ID, draft.Subject, draft.Content)
		if err != nil {
			return nil, fmt.Errorf("issue persist failed for newsletter %s: %w", newsletter.ID, err)
		}
		issueID = issue.ID
	}

	html := t.renderer.RenderHTML(draft)
	text := t.renderer.RenderText(draft)

	if err := t.mailer.Send(ctx, p.RecipientEmail, draft.Subject, html, text); err != nil {
		return nil, &deliveryError{
			result: IssueTaskResult{
				NewsletterID:     newsletter.ID,
				IssueID:          issueID,
				Recipient:        p.RecipientEmail,
				ContentGenerated: true,
			},
			err: fmt.Errorf("content generated (issue %s) but delivery to %s failed: %w",
				issueID, p.RecipientEmail, err),
		}
	}

	sentAt := time.Now().UTC()
	if err := t.store.MarkIssueSent(ctx, issueID, sentAt); err != nil {
		t.log.Error("sent_at update failed", zap.String("issue_id", issueID), zap.Error(err))
	}
	if err := t.store.TouchLastSent(ctx, newsletter.ID, sentAt); err != nil {
		t.log.Error("last_sent_at update failed", zap.String("newsletter_id", newsletter.ID), zap.Error(err))
	}

	return IssueTaskResult{
		Success:          true,
		NewsletterID:     newsletter.ID,
		IssueID:          issueID,
		Recipient:        p.RecipientEmail,
		ContentGenerated: true,
		EmailSent:        true,
		SentAt:           &sentAt,
	}, nil
}

// Enqueue helpers. EnqueueGenerateAndSend also satisfies services.Enqueuer
// for the scheduler.

func (q *Queue) EnqueueGenerate(ctx context.Context, topic, style string, useSearch bool) (string, error) {
	return q.Enqueue(ctx, KindGenerate, GeneratePayload{Topic: topic, Style: style, UseSearch: useSearch})
}

func (q *Queue) EnqueueSendEmail(ctx context.Context, toEmail, subject, content string) (string, error) {
	return q.Enqueue(ctx, KindSendEmail, SendEmailPayload{ToEmail: toEmail, Subject: subject, Content: content})
}

func (q *Queue) EnqueueGenerateAndSend(ctx context.Context, newsletterID, recipientEmail string) (string, error) {
	return q.Enqueue(ctx, KindGenerateAndSend, GenerateAndSendPayload{
		NewsletterID:   newsletterID,
		RecipientEmail: recipientEmail,
	})
}

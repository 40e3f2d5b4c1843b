package handlers

import (
	"net/http"

	"newsforge/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SynthesizeInput struct {
	NewsletterID string `json:"newsletter_id"`
	Topic        string `json:"topic" binding:"required"`
	Style        string `json:"style"`
	Format       string `json:"format"`
	UseSearch    bool   `json:"use_search"`
	SendEmail    bool   `json:"send_email"`
	EmailTo      string `json:"email_to"`
}

// Synthesize runs the full pipeline synchronously: generate, render,
// optionally queue delivery. Meant for operators previewing output.
func (a *API) Synthesize(c *gin.Context) {
	var input SynthesizeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if input.Style == "" {
		input.Style = "professional"
	}
	if input.Format == "" {
		input.Format = services.FormatHTML
	}

	if err := ValidateTopic(input.Topic); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateStyle(input.Style); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateFormat(input.Format); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if input.SendEmail {
		if err := ValidateEmail(input.EmailTo); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	draft, err := a.gen.Generate(c.Request.Context(), input.Topic, input.Style, input.UseSearch)
	if err != nil {
		respondError(c, http.StatusBadGateway, "generation failed: "+err.Error())
		return
	}

	rendered := gin.H{}
	switch input.Format {
	case services.FormatHTML:
		rendered["html"] = a.renderer.RenderHTML(draft)
	case services.FormatText:
		rendered["text"] = a.renderer.RenderText(draft)
	case services.FormatBoth:
		rendered["html"] = a.renderer.RenderHTML(draft)
		rendered["text"] = a.renderer.RenderText(draft)
	}

	body := gin.H{
		"subject":  draft.Subject,
		"model":    draft.Model,
		"rendered": rendered,
	}

	if input.NewsletterID != "" {
		issue, err := a.store.CreateIssue(c.Request.Context(), input.NewsletterID, draft.Subject, draft.Content)
		if err != nil {
			a.log.Warn("synthesize: issue persist failed",
				zap.String("newsletter_id", input.NewsletterID), zap.Error(err))
		} else {
			body["issue_id"] = issue.ID
		}
	}

	if input.SendEmail {
		content := a.renderer.RenderHTML(draft)
		taskID, err := a.queue.EnqueueSendEmail(c.Request.Context(), input.EmailTo, draft.Subject, content)
		if err != nil {
			a.log.Warn("synthesize: failed to queue delivery", zap.Error(err))
		} else {
			body["task_id"] = taskID
		}
	}

	respondOK(c, body)
}

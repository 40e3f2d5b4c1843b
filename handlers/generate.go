package handlers

import (
	"net/http"

	"newsforge/tasks"

	"github.com/gin-gonic/gin"
	"github.com/zeebo/errs"
)

type GenerateInput struct {
	Topic     string `json:"topic" binding:"required"`
	Style     string `json:"style"`
	UseSearch bool   `json:"use_search"`
}

type SendInput struct {
	ToEmail string `json:"to_email" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// Generate queues newsletter generation and returns immediately with a
// task handle.
func (a *API) Generate(c *gin.Context) {
	var input GenerateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if input.Style == "" {
		input.Style = "professional"
	}

	if err := ValidateTopic(input.Topic); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateStyle(input.Style); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	taskID, err := a.queue.EnqueueGenerate(c.Request.Context(), input.Topic, input.Style, input.UseSearch)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to queue generation")
		return
	}
	respondProcessing(c, taskID, "newsletter generation queued")
}

// SendEmail queues delivery of already-rendered content.
func (a *API) SendEmail(c *gin.Context) {
	var input SendInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateEmail(input.ToEmail); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	taskID, err := a.queue.EnqueueSendEmail(c.Request.Context(), input.ToEmail, input.Subject, input.Content)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to queue email")
		return
	}
	respondProcessing(c, taskID, "email delivery queued")
}

// TaskStatus reports the current state of an async task.
func (a *API) TaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	status, err := a.queue.Status(c.Request.Context(), taskID)
	if err != nil {
		if errs.Is(err, tasks.ErrNotFound) {
			respondError(c, http.StatusNotFound, "task not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to fetch task status")
		return
	}

	body := gin.H{
		"task_id": status.TaskID,
		"state":   status.State,
		"retries": status.Retries,
	}
	if len(status.Result) > 0 {
		body["result"] = status.Result
	}
	if status.Error != "" {
		body["error"] = status.Error
	}
	respondOK(c, body)
}

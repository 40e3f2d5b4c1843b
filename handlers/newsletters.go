package handlers

import (
	"net/http"

	"newsforge/services"
	"newsforge/store"

	"github.com/gin-gonic/gin"
	"github.com/zeebo/errs"
)

type NewsletterInput struct {
	Name     string `json:"name" binding:"required"`
	Topic    string `json:"topic" binding:"required"`
	Style    string `json:"style"`
	Schedule string `json:"schedule"`
}

func (a *API) CreateNewsletter(c *gin.Context) {
	userID := c.GetString("userID")

	var input NewsletterInput
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
	if err := ValidateSchedule(input.Schedule); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}

	count, err := a.store.CountNewsletters(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}
	limit := services.NewsletterLimit(user.Plan)
	if count >= limit {
		respondErrorDetails(c, http.StatusForbidden, "newsletter limit reached", gin.H{
			"plan":  user.Plan,
			"limit": limit,
		})
		return
	}

	nl, err := a.store.CreateNewsletter(c.Request.Context(), userID, input.Name, input.Topic, input.Style, input.Schedule)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to create newsletter")
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"newsletter": nl})
}

func (a *API) ListNewsletters(c *gin.Context) {
	userID := c.GetString("userID")

	newsletters, err := a.store.ListNewsletters(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}
	respondOK(c, gin.H{"newsletters": newsletters})
}

func (a *API) GetNewsletter(c *gin.Context) {
	userID := c.GetString("userID")

	nl, err := a.store.GetNewsletter(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errs.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "newsletter not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}
	respondOK(c, gin.H{"newsletter": nl})
}

func (a *API) DeleteNewsletter(c *gin.Context) {
	userID := c.GetString("userID")

	err := a.store.DeleteNewsletter(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errs.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "newsletter not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}
	respondOK(c, gin.H{"message": "newsletter deleted"})
}

func (a *API) ListNewsletterIssues(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	// Ownership check before exposing issue history.
	if _, err := a.store.GetNewsletter(c.Request.Context(), id, userID); err != nil {
		if errs.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "newsletter not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}

	issues, err := a.store.ListIssues(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}
	respondOK(c, gin.H{"issues": issues})
}

// SendNewsletter queues generation and delivery of the next issue to
// the owner's inbox.
func (a *API) SendNewsletter(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	if _, err := a.store.GetNewsletter(c.Request.Context(), id, userID); err != nil {
		if errs.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "newsletter not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}

	user, err := a.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}

	taskID, err := a.queue.EnqueueGenerateAndSend(c.Request.Context(), id, user.Email)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to queue newsletter send")
		return
	}
	respondProcessing(c, taskID, "newsletter generation and delivery queued")
}

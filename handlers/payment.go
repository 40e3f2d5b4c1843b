package handlers

import (
	"encoding/json"
	"net/http"

	"newsforge/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const paddleSignatureHeader = "Paddle-Signature"

type CheckoutInput struct {
	PriceID    string `json:"price_id" binding:"required"`
	SuccessURL string `json:"success_url" binding:"required"`
	CancelURL  string `json:"cancel_url"`
}

// PaymentWebhook receives Paddle events. The raw body must be read
// before any JSON decoding, signatures are computed over the exact
// bytes on the wire.
func (a *API) PaymentWebhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read body")
		return
	}

	signature := c.GetHeader(paddleSignatureHeader)
	if signature == "" {
		respondError(c, http.StatusBadRequest, "missing Paddle-Signature header")
		return
	}

	if !a.paddle.VerifySignature(rawBody, signature) {
		a.log.Warn("webhook signature verification failed")
		respondError(c, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		respondError(c, http.StatusBadRequest, "malformed event payload")
		return
	}

	result := a.billing.ProcessEvent(c.Request.Context(), event)
	a.log.Info("webhook processed",
		zap.String("event_type", event.EventType),
		zap.String("result", result.Status),
	)

	// Always 200 once verified so Paddle stops retrying.
	c.JSON(http.StatusOK, gin.H{"status": "received", "event_type": event.EventType})
}

func (a *API) CreateCheckout(c *gin.Context) {
	userEmail := c.GetString("userEmail")

	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.paddle.CreateCheckoutSession(c.Request.Context(), services.CheckoutParams{
		PriceID:       input.PriceID,
		CustomerEmail: userEmail,
		SuccessURL:    input.SuccessURL,
		CancelURL:     input.CancelURL,
		Metadata:      map[string]string{"user_id": c.GetString("userID")},
	})
	if err != nil {
		respondError(c, http.StatusBadGateway, "failed to create checkout session")
		return
	}
	respondOK(c, gin.H{"checkout": session})
}

func (a *API) CancelSubscription(c *gin.Context) {
	userID := c.GetString("userID")
	subscriptionID := c.Param("id")

	user, err := a.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}
	if user.SubscriptionID != subscriptionID {
		respondError(c, http.StatusNotFound, "subscription not found")
		return
	}

	if err := a.paddle.CancelSubscription(c.Request.Context(), subscriptionID, "next_billing_period"); err != nil {
		respondError(c, http.StatusBadGateway, "failed to cancel subscription")
		return
	}
	respondOK(c, gin.H{"message": "cancellation requested"})
}

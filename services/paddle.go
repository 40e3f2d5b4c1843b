package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var PaddleError = errs.Class("paddle")

const (
	paddleSandboxURL    = "https://sandbox-api.paddle.com"
	paddleProductionURL = "https://api.paddle.com"
)

// PaddleClient wraps the Paddle REST API and webhook signature verification.
type PaddleClient struct {
	vendorID      string
	apiKey        string
	webhookSecret string
	maxAge        time.Duration
	baseURL       string
	http          *http.Client
	log           *zap.Logger
	now           func() time.Time
}

func NewPaddleClient(vendorID, apiKey, webhookSecret string, sandbox bool, webhookMaxAge time.Duration, log *zap.Logger) *PaddleClient {
	baseURL := paddleProductionURL
	if sandbox {
		baseURL = paddleSandboxURL
	}
	return &PaddleClient{
		vendorID:      vendorID,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		maxAge:        webhookMaxAge,
		baseURL:       baseURL,
		http:          &http.Client{Timeout: 10 * time.Second},
		log:           log,
		now:           time.Now,
	}
}

// VerifySignature checks a Paddle-Signature header of the form
// "ts=<unix>;h1=<hex>" against the raw request body. The signed payload is
// "{ts}.{body}" with HMAC-SHA256 keyed by the webhook secret. Fails closed:
// any missing or malformed input yields false, never a panic or error.
func (p *PaddleClient) VerifySignature(rawBody []byte, header string) bool {
	if p.webhookSecret == "" {
		p.log.Error("paddle webhook secret not configured")
		return false
	}
	if header == "" {
		return false
	}

	var ts, h1 string
	for _, part := range strings.Split(header, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "h1":
			h1 = value
		}
	}
	if ts == "" || h1 == "" {
		p.log.Warn("malformed paddle signature header")
		return false
	}

	if p.maxAge > 0 {
		tsInt, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return false
		}
		if p.now().Sub(time.Unix(tsInt, 0)) > p.maxAge {
			p.log.Warn("paddle webhook signature expired", zap.String("ts", ts))
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(h1))
}

type CheckoutParams struct {
	PriceID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CreateCheckoutSession calls the Paddle checkout endpoint and returns the
// provider payload untouched, so the frontend gets the checkout URL verbatim.
func (p *PaddleClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (json.RawMessage, error) {
	if p.vendorID == "" || p.apiKey == "" {
		return nil, PaddleError.New("paddle credentials not configured")
	}

	payload := map[string]any{
		"items":          []map[string]any{{"price_id": params.PriceID, "quantity": 1}},
		"customer_email": params.CustomerEmail,
		"success_url":    params.SuccessURL,
		"custom_data":    params.Metadata,
	}
	if params.CancelURL != "" {
		payload["cancel_url"] = params.CancelURL
	}

	return p.post(ctx, "/checkout/session", payload)
}

// CancelSubscription schedules or immediately cancels a subscription.
func (p *PaddleClient) CancelSubscription(ctx context.Context, subscriptionID, effectiveFrom string) error {
	if p.apiKey == "" {
		return PaddleError.New("paddle API key not configured")
	}

	payload := map[string]any{}
	if effectiveFrom != "" {
		payload["effective_from"] = effectiveFrom
	}

	_, err := p.post(ctx, fmt.Sprintf("/subscriptions/%s/cancel", subscriptionID), payload)
	return err
}

func (p *PaddleClient) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, PaddleError.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, PaddleError.Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, PaddleError.Wrap(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, PaddleError.Wrap(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.log.Error("paddle API error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, PaddleError.New("paddle status %d", resp.StatusCode)
	}

	return json.RawMessage(respBody), nil
}

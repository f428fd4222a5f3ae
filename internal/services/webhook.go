package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/types"
	"gorm.io/gorm"
)

// WebhookInput is the payload for registering a webhook.
type WebhookInput struct {
	URL    string                 `json:"url"`
	Events types.FlexList[string] `json:"events"`
}

// WebhookService registers webhooks and dispatches events to them.
// Dispatch is asynchronous; each event fans out on its own goroutine with
// bounded retries, and every outcome lands in webhook_deliveries.
type WebhookService struct {
	db       *gorm.DB
	client   *http.Client
	attempts int
}

// NewWebhookService creates a WebhookService. timeout bounds each outbound
// request; attempts is the per-delivery retry budget.
func NewWebhookService(db *gorm.DB, timeout time.Duration, attempts int) *WebhookService {
	if attempts <= 0 {
		attempts = 3
	}
	return &WebhookService{
		db:       db,
		client:   &http.Client{Timeout: timeout},
		attempts: attempts,
	}
}

// Register creates a webhook on a form and returns it with its signing
// secret. The secret is only shown once.
func (s *WebhookService) Register(formID string, input WebhookInput) (*models.Webhook, string, error) {
	parsed, err := url.Parse(input.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, "", types.ErrValidation("invalid webhook URL", nil)
	}

	events := input.Events.Slice()
	if len(events) == 0 {
		return nil, "", types.ErrValidation("at least one event is required", nil)
	}
	for _, ev := range events {
		switch ev {
		case models.EventSubmissionCreated, models.EventSubmissionCompleted, models.EventFormPublished:
		default:
			return nil, "", types.ErrValidation("unknown event", map[string]interface{}{"event": ev})
		}
	}

	secret, err := newSecret()
	if err != nil {
		return nil, "", err
	}

	rawEvents, err := json.Marshal(events)
	if err != nil {
		return nil, "", err
	}

	webhook := models.Webhook{
		FormID: formID,
		URL:    input.URL,
		Secret: secret,
		Events: models.NewJSON(rawEvents),
		Active: true,
	}
	if err := s.db.Create(&webhook).Error; err != nil {
		return nil, "", err
	}

	return &webhook, secret, nil
}

// ListForForm returns a form's webhooks.
func (s *WebhookService) ListForForm(formID string) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	if err := s.db.Where("form_id = ?", formID).Find(&webhooks).Error; err != nil {
		return nil, err
	}
	return webhooks, nil
}

// Get loads a webhook or returns a 404 AppError.
func (s *WebhookService) Get(webhookID string) (*models.Webhook, error) {
	var webhook models.Webhook
	if err := s.db.Where("id = ?", webhookID).First(&webhook).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrNotFound("Webhook not found")
		}
		return nil, err
	}
	return &webhook, nil
}

// Delete removes a webhook.
func (s *WebhookService) Delete(webhookID string) error {
	result := s.db.Where("id = ?", webhookID).Delete(&models.Webhook{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound("Webhook not found")
	}
	return nil
}

// Deliveries returns the delivery log for a webhook, newest first.
func (s *WebhookService) Deliveries(webhookID string, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var deliveries []models.WebhookDelivery
	err := s.db.Where("webhook_id = ?", webhookID).
		Order("created_at DESC").Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

// Dispatch posts payload to every active webhook on formID subscribed to
// event. Fire and forget: delivery runs on a goroutine and the request
// that triggered the event never waits for it.
func (s *WebhookService) Dispatch(event, formID string, payload map[string]interface{}) {
	var webhooks []models.Webhook
	if err := s.db.Where("form_id = ? AND active = ?", formID, true).Find(&webhooks).Error; err != nil {
		log.Printf("webhook lookup failed for form %s: %v", formID, err)
		return
	}

	body := map[string]interface{}{
		"event":     event,
		"formId":    formID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      payload,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		log.Printf("webhook payload marshal failed: %v", err)
		return
	}

	for _, wh := range webhooks {
		if !subscribed(wh, event) {
			continue
		}
		go s.deliver(wh, event, raw)
	}
}

// deliver posts one payload with retries and records the outcome.
func (s *WebhookService) deliver(wh models.Webhook, event string, raw []byte) {
	delivery := models.WebhookDelivery{
		WebhookID: wh.ID,
		Event:     event,
		Payload:   models.NewJSON(raw),
	}

	signature := "sha256=" + signPayload(wh.Secret, raw)

	for attempt := 1; attempt <= s.attempts; attempt++ {
		delivery.Attempts = attempt

		req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(raw))
		if err != nil {
			delivery.LastError = err.Error()
			break
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Formbase-Event", event)
		req.Header.Set("X-Formbase-Signature", signature)

		resp, err := s.client.Do(req)
		if err != nil {
			delivery.LastError = err.Error()
		} else {
			delivery.StatusCode = resp.StatusCode
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				now := time.Now()
				delivery.DeliveredAt = &now
				delivery.LastError = ""
				break
			}
			delivery.LastError = fmt.Sprintf("endpoint returned %d", resp.StatusCode)
		}

		if attempt < s.attempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	if err := s.db.Create(&delivery).Error; err != nil {
		log.Printf("webhook delivery record failed for %s: %v", wh.ID, err)
	}
}

// signPayload computes the hex HMAC-SHA256 of body under secret.
func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature header value against body.
// Exposed for webhook consumers and tests.
func VerifySignature(secret, signature string, body []byte) bool {
	expected := "sha256=" + signPayload(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func subscribed(wh models.Webhook, event string) bool {
	var events []string
	if err := json.Unmarshal(wh.Events.JSON, &events); err != nil {
		return false
	}
	for _, ev := range events {
		if ev == event {
			return true
		}
	}
	return false
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

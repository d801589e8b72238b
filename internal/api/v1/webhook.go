package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	stripeintg "github.com/roomcraft/roomcraft/internal/integration/stripe"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/sentry"
	"github.com/roomcraft/roomcraft/internal/service"
)

// WebhookHandler handles webhook-related endpoints
type WebhookHandler struct {
	stripeClient   *stripeintg.Client
	webhookService service.WebhookService
	sentryService  *sentry.Service
	logger         *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	stripeClient *stripeintg.Client,
	webhookService service.WebhookService,
	sentryService *sentry.Service,
	logger *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		stripeClient:   stripeClient,
		webhookService: webhookService,
		sentryService:  sentryService,
		logger:         logger,
	}
}

// @Summary Handle Stripe webhook events
// @Description Process incoming Stripe webhook events for checkout, subscription and payment updates
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe webhook signature"
// @Success 200 {object} map[string]interface{} "Webhook processed successfully"
// @Failure 400 {object} map[string]interface{} "Bad request - missing or invalid signature"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Errorw("failed to read request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.logger.Errorw("missing Stripe-Signature header")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing Stripe-Signature header",
		})
		return
	}

	event, err := h.stripeClient.ParseWebhookEvent(body, signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid webhook signature",
		})
		return
	}

	// A non-2xx response makes Stripe retry the delivery. Handlers are
	// idempotent, so retries are safe.
	if err := h.webhookService.HandleEvent(c.Request.Context(), event); err != nil {
		h.logger.Errorw("failed to process webhook event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		h.sentryService.CaptureException(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to process webhook event",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

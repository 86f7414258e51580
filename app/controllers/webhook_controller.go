package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/omniloja/sellerbridge/internal/pkg/metrics/counter"
	"github.com/omniloja/sellerbridge/internal/pkg/provision"
)

// WebhookController exposes the payment webhook over HTTP and maps pipeline
// outcomes to the response codes the billing provider's retry logic keys on.
type WebhookController struct {
	pipeline *provision.Pipeline
	timeout  time.Duration
}

// NewWebhookController creates the controller. timeout bounds one delivery
// end to end.
func NewWebhookController(pipeline *provision.Pipeline, timeout time.Duration) *WebhookController {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookController{pipeline: pipeline, timeout: timeout}
}

// HandleWebhook processes POST /webhook.
func (wc *WebhookController) HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	receipt := uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), wc.timeout)
	defer cancel()

	result, err := wc.pipeline.Handle(ctx, rawBody, provision.Delivery{
		SecretHeader: c.Get("X-Webhook-Secret"),
		EventID:      firstHeaderValue(c, "Asaas-Event-Id", "X-Asaas-Event-Id"),
	})
	if err != nil {
		countOutcome("failed")
		code := provision.ErrorCode(err)
		status := provision.HTTPStatus(err)
		if status == fiber.StatusInternalServerError {
			// Unexpected fault: full context to the log, generic fault to
			// the caller.
			log.Errorf("[Webhook] receipt=%s internal fault: %v", receipt, err)
			return c.Status(status).JSON(fiber.Map{
				"error":   "internal_error",
				"message": "internal server error",
			})
		}
		log.Warnf("[Webhook] receipt=%s rejected code=%s: %v", receipt, code, err)
		return c.Status(status).JSON(fiber.Map{
			"error":   code,
			"message": err.Error(),
		})
	}

	countOutcome(string(result.Outcome))

	switch result.Outcome {
	case provision.OutcomeIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ignored",
			"event":  result.Event,
		})
	case provision.OutcomeDuplicate:
		log.Infof("[Webhook] receipt=%s duplicate payment=%s", receipt, result.PaymentID)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":     "success",
			"outcome":    string(result.Outcome),
			"payment_id": result.PaymentID,
		})
	case provision.OutcomeRejected:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"status":  "error",
			"error":   "seller_rejected",
			"details": result.UpstreamBody,
		})
	default:
		log.Infof("[Webhook] receipt=%s seller created payment=%s", receipt, result.PaymentID)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":     "success",
			"outcome":    string(result.Outcome),
			"payment_id": result.PaymentID,
			"email":      result.SellerEmail,
		})
	}
}

// HandleHealth serves the static liveness payload on GET /.
func HandleHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"service": "sellerbridge",
		"status":  "ok",
	})
}

// countOutcome records the tally best-effort; a counter failure must never
// fail the delivery.
func countOutcome(outcome string) {
	if err := counter.AddOutcome(outcome); err != nil {
		log.Warnf("[Webhook] outcome counter: %v", err)
	}
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}

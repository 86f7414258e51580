package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/omniloja/sellerbridge/app/controllers"
	"github.com/omniloja/sellerbridge/internal/pkg/middleware"
)

type HttpRouter struct {
	webhook *controllers.WebhookController
	opsKey  string
}

func NewHttpRouter(webhook *controllers.WebhookController, opsKey string) *HttpRouter {
	return &HttpRouter{webhook: webhook, opsKey: opsKey}
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/", controllers.HandleHealth)
	app.Get("/stats", middleware.OpsKeyMiddleware(h.opsKey), controllers.HandleStats)

	// The provider retries on 429 like it does on 5xx, so rate limiting the
	// webhook is safe.
	hooks := app.Group("/webhook", limiter.New(limiter.Config{
		Max: 120,
	}))
	hooks.Post("/", h.webhook.HandleWebhook)
}

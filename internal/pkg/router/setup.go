package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/omniloja/sellerbridge/app/controllers"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers all route groups.
func InstallRouter(app *fiber.App, webhook *controllers.WebhookController, opsKey string) {
	setup(app, NewHttpRouter(webhook, opsKey))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

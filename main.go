package main

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/omniloja/sellerbridge/app/controllers"
	"github.com/omniloja/sellerbridge/internal/pkg/asaas"
	"github.com/omniloja/sellerbridge/internal/pkg/cache"
	"github.com/omniloja/sellerbridge/internal/pkg/config"
	"github.com/omniloja/sellerbridge/internal/pkg/database"
	"github.com/omniloja/sellerbridge/internal/pkg/env"
	"github.com/omniloja/sellerbridge/internal/pkg/middleware"
	"github.com/omniloja/sellerbridge/internal/pkg/provision"
	"github.com/omniloja/sellerbridge/internal/pkg/router"
	"github.com/omniloja/sellerbridge/internal/pkg/webkul"
)

func main() {
	app, cfg := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *config.Config) {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	database.SetupDatabase()
	cache.SetupCache(cfg)

	app := fiber.New(fiber.Config{
		AppName: "sellerbridge",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", middleware.OpsKeyMiddleware(cfg.OpsAPIKey), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	repo := provision.NewRepository(database.GetDB())
	store := cache.NewCachedRecordStore(repo, cache.GetClient(), 0)
	locker := cache.NewRedisLocker(cache.GetClient(), cfg.LockTTL)

	directory := asaas.NewClient(cfg)
	registry := webkul.NewClient(cfg)

	pipeline := provision.NewPipeline(
		provision.NewValidator(cfg.WebhookSecret),
		provision.NewResolver(directory, cfg.DefaultContact),
		provision.NewProvisioner(registry, store, locker, provision.SellerDefaults{
			Contact:  cfg.DefaultContact,
			State:    cfg.DefaultState,
			Country:  cfg.DefaultCountry,
			PlanID:   cfg.PlanID,
			PlanName: cfg.PlanName,
		}, cfg.UpstreamTimeout),
		repo,
	)

	webhookController := controllers.NewWebhookController(pipeline, 3*cfg.UpstreamTimeout)

	// ROUTER
	router.InstallRouter(app, webhookController, cfg.OpsAPIKey)

	return app, cfg
}

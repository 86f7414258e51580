package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/omniloja/sellerbridge/internal/pkg/metrics/counter"
)

// HandleStats serves the running webhook outcome tallies on GET /stats.
func HandleStats(c *fiber.Ctx) error {
	outcomes, err := counter.Snapshot()
	if err != nil {
		log.Errorf("[Stats] reading outcome counters: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "internal server error",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"service":  "sellerbridge",
		"outcomes": outcomes,
	})
}

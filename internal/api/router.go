package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp creates the Fiber app with the JSON error handler, panic recovery
// and access logging. Extra middleware runs after those, before any route.
func NewApp(bodyLimit int, middleware ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		BodyLimit:             bodyLimit,
		UnescapePath:          true,
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	for _, mw := range middleware {
		app.Use(mw)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	return app
}

func RegisterFileRoutes(app *fiber.App, h *FileHandler) {
	files := app.Group("/files")

	files.Get("/", h.List)
	files.Post("/", h.Upload)
	files.Get("/:filename", h.Serve)
	files.Delete("/", h.Purge)
}

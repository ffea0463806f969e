// Package api exposes the indexing, search, status and prompt entry points
// over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"repolens/config"
	"repolens/internal/domain"
	"repolens/internal/port"
	"repolens/internal/usecase"
)

type Indexer interface {
	Index(ctx context.Context, req domain.IndexRequest, onProgress func(usecase.Progress)) (domain.IndexResult, error)
}

type StatusReader interface {
	Status(ctx context.Context, owner, repo string) (domain.IndexStatus, error)
}

type PromptAssembler interface {
	Assemble(ctx context.Context, req usecase.PromptRequest) (usecase.PromptResult, error)
}

// Services are the use cases served by the API. Gatherer may be nil, in
// which case /metrics is not mounted.
type Services struct {
	Indexer  Indexer
	Searcher port.Searcher
	Status   StatusReader
	Prompt   PromptAssembler
	Gatherer prometheus.Gatherer
}

// NewApp builds the fiber application with all routes mounted.
func NewApp(s Services, cfg config.ServerConfig, accessLog bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:     "repolens",
		ReadTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	if accessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	if s.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}

	NewHandler(s).Register(app)
	return app
}

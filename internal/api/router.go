package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"

	"github.com/faceops/groupcore/internal/api/docs"
	"github.com/faceops/groupcore/internal/api/handler"
	"github.com/faceops/groupcore/internal/api/middleware"
	"github.com/faceops/groupcore/internal/groupengine"
	"github.com/faceops/groupcore/internal/manualops"
	"github.com/faceops/groupcore/internal/reconciler"
)

// Dependencies wires the grouping core into the transport layer. Auth,
// object storage, and the UI stay out of scope; this is only the surface
// that exercises processBatch and the manual operations over HTTP.
type Dependencies struct {
	Engine     *groupengine.Engine
	Ops        *manualops.Ops
	Reconciler *reconciler.Reconciler
}

// Router wraps the fiber app and its lifecycle.
type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

// NewRouter constructs a Router whose fiber app uses an AppError-aware
// error handler. Setup adds the middleware stack (request ID, panic
// recovery, structured logging, permissive CORS) and the routes.
func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "groupcore API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

// Setup registers middleware and routes.
func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler()
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.Reconciler != nil {
		if err := r.deps.Reconciler.Start(context.Background()); err != nil {
			r.logger.Error("could not start reconciler", slog.String("error", err.Error()))
		}
	}

	groupHandler := handler.NewGroupHandler(r.deps.Engine, r.deps.Ops, r.logger)

	v1 := r.app.Group("/v1")
	groups := v1.Group("/groups")

	groups.Post("/batch", groupHandler.ProcessBatch)
	groups.Get("/", groupHandler.ListGroups)
	groups.Post("/", groupHandler.CreateGroup)
	groups.Post("/merge", groupHandler.MergeGroups)
	groups.Delete("/", groupHandler.ClearAllGroups)
	groups.Get("/:groupId", groupHandler.GetGroup)
	groups.Delete("/:groupId", groupHandler.DeleteGroup)
	groups.Patch("/:groupId/name", groupHandler.RenameGroup)
	groups.Post("/:groupId/faces", groupHandler.AddFaceToGroup)
	groups.Delete("/:groupId/faces/:faceId", groupHandler.RemoveFaceFromGroup)
}

// App exposes the underlying fiber app, mainly for tests.
func (r *Router) App() *fiber.App {
	return r.app
}

// Listen starts the HTTP server.
func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown stops the reconciler and the HTTP server gracefully.
func (r *Router) Shutdown() error {
	if r.deps != nil && r.deps.Reconciler != nil {
		r.deps.Reconciler.Stop()
	}
	return r.app.Shutdown()
}

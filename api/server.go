package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/CiviTrack/civitrack-back/api/auth"
	"github.com/CiviTrack/civitrack-back/middleware"
	"github.com/CiviTrack/civitrack-back/services/redis"
	"github.com/CiviTrack/civitrack-back/services/s3"
	"github.com/CiviTrack/civitrack-back/services/workflow"
)

// Server wires the workflow core to its HTTP surface.
type Server struct {
	engine     *workflow.Engine
	gallery    *workflow.GalleryWorkflow
	staff      workflow.StaffStore
	cache      *redis.Service
	images     *s3.Service
	jwt        *auth.JWTManager
	rankingTTL time.Duration
}

type Deps struct {
	Engine     *workflow.Engine
	Gallery    *workflow.GalleryWorkflow
	Staff      workflow.StaffStore
	Cache      *redis.Service
	Images     *s3.Service
	JWT        *auth.JWTManager
	RankingTTL time.Duration
}

func NewServer(deps Deps) *Server {
	return &Server{
		engine:     deps.Engine,
		gallery:    deps.Gallery,
		staff:      deps.Staff,
		cache:      deps.Cache,
		images:     deps.Images,
		jwt:        deps.JWT,
		rankingTTL: deps.RankingTTL,
	}
}

// App builds the Fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "civitrack",
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{TimeFormat: "15:04:05"}))
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "*",
	}))
	app.Use(middleware.Authenticate(s.jwt))

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	api := app.Group("/api")

	adminOnly := middleware.RequireRole(auth.RoleAdmin)
	staffOnly := middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin)

	reports := api.Group("/reports")
	reports.Post("/", s.handleSubmitReport)
	reports.Get("/", s.handleQueryReports)
	reports.Get("/:id", s.handleGetReport)
	reports.Get("/:id/updates", s.handleProgressHistory)
	reports.Post("/:id/assign", adminOnly, s.handleAssign)
	reports.Post("/:id/progress", staffOnly, s.handleUpdateProgress)
	reports.Post("/:id/complete", staffOnly, s.handleComplete)
	reports.Post("/:id/approve", adminOnly, s.handleApprove)
	reports.Post("/:id/reject", adminOnly, s.handleReject)
	reports.Post("/:id/status", adminOnly, s.handleForceStatus)

	staff := api.Group("/staff")
	staff.Get("/", adminOnly, s.handleListStaff)
	staff.Post("/", adminOnly, s.handleCreateStaff)
	staff.Get("/rankings", adminOnly, s.handleRankings)

	gallery := api.Group("/gallery")
	gallery.Get("/", s.handleListGallery)
	gallery.Post("/", staffOnly, s.handleSubmitGallery)
	gallery.Get("/:id/images/:which", s.handleGalleryImage)
	gallery.Post("/:id/approve", adminOnly, s.handleApproveGallery)
	gallery.Post("/:id/reject", adminOnly, s.handleRejectGallery)
	gallery.Post("/:id/featured", adminOnly, s.handleFeatureGallery)
	gallery.Delete("/:id", adminOnly, s.handleDeleteGallery)

	return app
}

// Package server contains the HTTP handlers binding the services to the
// REST API, plus session and authorization middleware.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	"aitookmyjob/internal/config"
	"aitookmyjob/internal/middleware"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/notify"
	"aitookmyjob/internal/service"
	"aitookmyjob/internal/store"
)

// Server holds all dependencies and provides the HTTP handlers.
type Server struct {
	config   *config.Config
	store    store.Store
	redis    *redis.Client
	app      *fiber.App
	logger   *slog.Logger
	limiter  *middleware.Limiter
	auditor  *service.Auditor
	notifier service.Notifier

	storyService *service.StoryService
	authService  *service.AuthService
	forumService *service.ForumService
	adminService *service.AdminService
	statsService *service.StatsService
}

// NewServer creates a server, selecting the storage backend by the presence
// of DATABASE_URL and connecting Redis when configured.
func NewServer(cfg *config.Config) (*Server, error) {
	var st store.Store
	var err error
	if cfg.UsePostgres() {
		st, err = store.NewGormStore(cfg.DatabaseURL)
	} else {
		st, err = store.NewFileStore(cfg.DataDir)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	}

	return NewServerWithDeps(cfg, st, rdb), nil
}

// NewServerWithDeps creates a server from already-initialized dependencies.
// Tests use this with a file store and no Redis.
func NewServerWithDeps(cfg *config.Config, st store.Store, rdb *redis.Client) *Server {
	logger := middleware.NewLogger(cfg.IsProduction())

	var notifier service.Notifier = service.NopNotifier{}
	if cfg.TelegramBotToken != "" && cfg.TelegramModChatID != "" {
		notifier = notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramModChatID, logger)
	}

	auditor := service.NewAuditor(st, logger)
	server := &Server{
		config:   cfg,
		store:    st,
		redis:    rdb,
		logger:   logger,
		limiter:  middleware.NewLimiter(rdb, cfg.Env, logger),
		auditor:  auditor,
		notifier: notifier,
	}
	server.storyService = service.NewStoryService(st, auditor, notifier, logger, cfg.DefaultCountry, cfg.DefaultLang)
	server.authService = service.NewAuthService(st, auditor, logger, cfg.AllowDevOTP && !cfg.IsProduction())
	server.forumService = service.NewForumService(st, auditor, logger, cfg.DefaultCountry, cfg.DefaultLang)
	server.adminService = service.NewAdminService(st, auditor, notifier, logger)
	server.statsService = service.NewStatsService(st)
	return server
}

// Store exposes the storage backend, used by the seeder.
func (s *Server) Store() store.Store { return s.store }

// Logger exposes the structured logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// SetupMiddleware configures the middleware stack.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger(s.logger))

	origins := s.config.CORSOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Coarse in-process limit; the Redis limiter guards sensitive routes
	// with tighter budgets.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	middleware.RegisterMetrics(app)
}

// SetupRoutes configures every route.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "AI Took My Job Runtime"}))

	api := app.Group("/api")
	api.Get("/meta", s.GetMeta)
	api.Get("/locale", s.GetLocale)

	auth := api.Group("/auth")
	auth.Post("/register", s.limiter.Handler(5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", s.limiter.Handler(10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)
	auth.Delete("/me", s.AuthRequired(), s.DeleteAccount)
	auth.Post("/phone/request-otp", s.AuthRequired(), s.limiter.Handler(3, 10*time.Minute, "otp_request"), s.RequestOTP)
	auth.Post("/phone/verify", s.AuthRequired(), s.limiter.Handler(10, 10*time.Minute, "otp_verify"), s.VerifyOTP)
	auth.Post("/telegram/link", s.AuthRequired(), s.StartTelegramLink)

	stories := api.Group("/stories")
	stories.Get("/", s.ListStories)
	stories.Post("/", s.AuthRequired(), s.limiter.Handler(5, time.Hour, "story_submit"), s.SubmitStory)
	stories.Post("/anonymous", s.limiter.Handler(3, time.Hour, "story_anonymous"), s.SubmitAnonymousStory)
	stories.Get("/:id", s.GetStory)
	stories.Post("/:id/view", s.RecordView)
	stories.Post("/:id/me-too", s.limiter.Handler(30, time.Hour, "me_too"), s.RecordMeToo)
	stories.Post("/:id/comment", s.RecordComment)
	stories.Post("/:id/update", s.AuthRequired(), s.UpdateStory)

	api.Get("/stats", s.GetStats)
	api.Get("/statistics/dashboard", s.GetDashboard)
	api.Get("/counters", s.GetCounters)
	api.Get("/research/aggregate", s.GetResearchAggregate)

	companies := api.Group("/companies")
	companies.Get("/top", s.GetTopCompanies)
	companies.Get("/:slug", s.GetCompanyProfile)
	companies.Get("/:slug/timeline", s.GetCompanyTimeline)
	companies.Get("/:slug/board/topics", s.GetCompanyBoard)
	companies.Post("/:slug/board/topics", s.AuthRequired(), s.CreateCompanyBoardTopic)

	forum := api.Group("/forum")
	forum.Get("/categories", s.GetForumCategories)
	forum.Get("/topics", s.ListForumTopics)
	forum.Post("/topics", s.AuthRequired(), s.limiter.Handler(10, time.Hour, "topic_create"), s.CreateForumTopic)
	forum.Get("/topics/:id", s.GetForumTopic)
	forum.Get("/topics/:id/replies", s.ListForumReplies)
	forum.Post("/topics/:id/replies", s.AuthRequired(), s.limiter.Handler(30, time.Hour, "reply_create"), s.CreateForumReply)

	api.Post("/privacy/redaction-assistant", s.limiter.Handler(30, time.Hour, "redaction"), s.RedactionAssistant)
	api.Get("/transparency/report", s.GetTransparencyReport)
	api.Post("/legal/takedown", s.limiter.Handler(5, time.Hour, "takedown"), s.SubmitTakedown)
	api.Get("/legal/methodology", s.GetMethodology)
	api.Post("/integrations/telegram/webhook", s.TelegramWebhook)

	admin := api.Group("/admin", s.AdminRequired())
	admin.Get("/overview", s.AdminOverview)
	admin.Get("/users", s.AdminListUsers)
	admin.Get("/moderation/queue", s.ModerationQueue)
	admin.Post("/moderation/:id/action", s.ModerationAction)
	admin.Get("/sanctions", s.ListSanctions)
	admin.Post("/sanctions", s.CreateSanction)
	admin.Get("/anomalies", s.Anomalies)
}

// HealthCheck reports service liveness and storage reachability.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ok := s.store.Ping(c.UserContext()) == nil
	status := fiber.StatusOK
	if !ok {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"ok":        ok,
		"service":   "aitookmyjob",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Start builds the Fiber app and listens on the configured port.
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "AI Took My Job API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			s.logger.Error("unhandled error", "path", c.Path(), "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.app = app
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.logger.Info("server starting", "port", s.config.Port, "backend", backendName(s.config))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the server and closes backend connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			s.logger.Error("http shutdown failed", "error", err)
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("store close failed", "error", err)
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("redis close failed", "error", err)
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

func backendName(cfg *config.Config) string {
	if cfg.UsePostgres() {
		return "postgres"
	}
	return "file"
}

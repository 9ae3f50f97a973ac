package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/docu-man/documan/internal/config"
	"github.com/docu-man/documan/internal/demo"
	"github.com/docu-man/documan/internal/docstore"
	"github.com/docu-man/documan/internal/identity"
	"github.com/docu-man/documan/internal/middleware"
	"github.com/docu-man/documan/internal/otp"
	"github.com/docu-man/documan/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.ServerConfig
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all document-management routes.
func Setup(app *fiber.App, d Deps) error {
	// OTP challenges live in Redis; the dev entrypoint supplies an embedded
	// instance when REDIS_URL is unset, so a nil cache means misconfiguration.
	if d.Cache == nil {
		return fmt.Errorf("redis is required")
	}
	if !config.IsDev(d.Cfg.AppEnv) && d.DB == nil {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var users identity.Repository
	if d.DB != nil {
		users = identity.NewPostgresRepository(d.DB)
	} else {
		users = identity.NewMemoryRepository()
	}
	seedUsers(users, d.Cfg, d.Logger)

	var docs docstore.Store
	if d.DB != nil {
		docs = docstore.NewPostgresStore(d.DB)
	} else {
		docs = docstore.NewInMemory()
	}

	issuer := token.NewIssuer(d.Cfg.TokenSecret, d.Cfg.TokenTTL)
	challenges := otp.NewRedisStore(d.Cache)

	authH := &authHandler{
		users:      users,
		challenges: challenges,
		issuer:     issuer,
		otpTTL:     d.Cfg.OTPTTL,
		logger:     d.Logger,
	}
	docH := &documentHandler{store: docs, logger: d.Logger}

	app.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.OTPRateLimit(d.Cache, 5)
	RegisterAuthRoutes(app, authH, rateLimiter)

	// Protected routes
	protected := app.Group("", middleware.TokenAuth(issuer, users))
	protected.Use(middleware.Idempotency(d.Cache, time.Hour, d.Logger))
	RegisterDocumentRoutes(protected, docH)

	return nil
}

// seedUsers registers the configured mobile numbers plus the demo account so
// a fresh in-memory server accepts logins immediately. Duplicates are fine on
// restart against Postgres.
func seedUsers(users identity.Repository, cfg config.ServerConfig, log *slog.Logger) {
	ctx := context.Background()
	seed := append([]string{demo.Mobile}, cfg.RegisteredMobiles...)
	for i, mobile := range seed {
		user := identity.User{
			ID:        uuid.NewString(),
			Mobile:    mobile,
			Name:      fmt.Sprintf("User %d", i+1),
			Role:      "user",
			CreatedAt: time.Now().UTC(),
		}
		if mobile == demo.Mobile {
			user.Name = "Test User"
		}
		if err := users.Create(ctx, user); err != nil && !errors.Is(err, identity.ErrAlreadyRegistered) {
			log.Warn("failed to seed user", slog.String("mobile", mobile), slog.Any("error", err))
		}
	}
}

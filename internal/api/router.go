package api

import (
	"shopmind/docs"
	"shopmind/internal/api/handlers"
	"shopmind/pkg/auth"
	"shopmind/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	assistantHandler *handlers.AssistantHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Swagger - importing docs registers the spec through init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Assistant routes consumed by the storefront chat widget
	assistant := app.Group("/api/v1/assistant")
	assistant.Post("/ask", assistantHandler.Ask)
	assistant.Get("/products", assistantHandler.SimilarProducts)
	assistant.Get("/status", assistantHandler.Status)

	// Curation routes (staff only)
	curation := app.Group("/api/v1/assistant", middleware.AuthMiddleware(jwtManager, appLogger))
	curation.Post("/learn", assistantHandler.Learn)
	curation.Get("/opportunities", assistantHandler.Opportunities)

	return app
}

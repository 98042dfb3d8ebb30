package router

import (
	"media_share_service/internal/media/api/handlers"
	"media_share_service/pkg/middlewares"
	"media_share_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 注册 media 相關路由
// @title Media Share Service API
// @version 1.0
// @description Media editing pipeline: trim, composite, overlay and merge
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RegisterRoutes(app *fiber.App, mediaHandler *handlers.MediaHandler, jobWS *handlers.JobWSHandler) {
	app.Use(middlewares.MetricsMiddleware())

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/", handlers.ConnectCheck)
	app.Post("/debug", middlewares.JWTMiddleware(), middlewares.RequireRole(token.RoleAdmin), handlers.DebugLogFlag)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	mediaRoutes := app.Group("/media", middlewares.JWTMiddleware())
	mediaRoutes.Post("/trim", mediaHandler.Trim)
	mediaRoutes.Post("/composite", mediaHandler.Composite)
	mediaRoutes.Post("/overlay", mediaHandler.Overlay)
	mediaRoutes.Post("/process", mediaHandler.Process)
	mediaRoutes.Post("/merge", mediaHandler.Merge)

	postRoutes := app.Group("/posts", middlewares.JWTMiddleware())
	postRoutes.Post("/:id/merge", mediaHandler.MergePost)

	jobRoutes := app.Group("/jobs", middlewares.JWTMiddleware())
	jobRoutes.Get("/:id", mediaHandler.GetJob)

	//瀏覽器 websocket 無法帶 header, token 用 query auth 或 cookie
	wsRoutes := app.Group("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, middlewares.JWTMiddleware())
	wsRoutes.Get("/jobs/:id", websocket.New(jobWS.HandleConnection))
}

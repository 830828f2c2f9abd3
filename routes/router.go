package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/uploadhub/config"
	"github.com/cppla/uploadhub/controllers"
	"github.com/cppla/uploadhub/filestore"
	"github.com/cppla/uploadhub/middleware"
	"github.com/cppla/uploadhub/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, store *filestore.Store) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())

	// Access logs go to their own rolling file; fall back to the application logger.
	accessLog, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		accessLog = utils.Logger
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	// Error handler sits outside recovery so recovered panics are rendered too.
	r.Use(middleware.ErrorHandler(utils.Logger, cfg.IsDevelopment()))
	r.Use(utils.RecoveryWithZap(utils.Logger.With(zap.String("component", "recovery")), true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	// Only published category directories are public; temp holds unvalidated bytes.
	for _, spec := range store.Table().Specs() {
		dir, err := store.Destination(spec.Category)
		if err != nil {
			panic(err)
		}
		r.Static("/uploads/"+spec.Dir, dir)
	}

	uploadController := controllers.NewUploadController(store)
	configController := controllers.NewConfigController(store.Table())

	upload := r.Group("/upload")
	upload.GET("/limits", configController.GetUploadLimits)

	protected := upload.Group("")
	protected.Use(middleware.IsAuthenticated(), middleware.RateLimit(cfg.RateLimitPerMinute))
	protected.POST("/image", uploadController.Image())
	protected.POST("/document", uploadController.Document())
	protected.POST("/csv", uploadController.CSV())

	r.NoRoute(middleware.NotFoundHandler)

	return r
}

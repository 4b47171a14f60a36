// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/andresuchdata/shelfplan/backend-go/internal/api/handlers"
	"github.com/andresuchdata/shelfplan/backend-go/internal/api/middleware"
	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
	"github.com/andresuchdata/shelfplan/backend-go/internal/drive"
	"github.com/andresuchdata/shelfplan/backend-go/internal/service"
)

type Services struct {
	RestockService *service.RestockService
	DriveHandler   *drive.Handler
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	// gin's binding validator reports fields by their json names, like the service does.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(domain.JSONFieldName)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.RestockService != nil {
			restockHandler := handlers.NewRestockHandler(services.RestockService)
			restockGroup := apiGroup.Group("/restock")
			{
				restockGroup.POST("/strategy", restockHandler.Strategy)
				restockGroup.POST("/strategy/batch", restockHandler.StrategyBatch)
				restockGroup.GET("/plans/:id", restockHandler.GetPlan)

				shopGroup := restockGroup.Group("/shops/:shop")
				{
					shopGroup.GET("/catalog", restockHandler.GetCatalog)
					shopGroup.PUT("/catalog", restockHandler.SaveCatalog)
					shopGroup.POST("/catalog/upload", restockHandler.UploadCatalog)
					shopGroup.POST("/strategy", restockHandler.ShopStrategy)
					shopGroup.GET("/plans", restockHandler.ListPlans)
				}
			}
		}

		if services.DriveHandler != nil {
			driveRouter := mux.NewRouter()
			services.DriveHandler.RegisterRoutes(driveRouter)
			router.Any("/api/drive/*path", gin.WrapH(driveRouter))
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}

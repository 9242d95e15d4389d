// Package api wires the HTTP surface: middleware, handlers and routes.
package api

import (
	"log/slog"
	"net/http"

	"solar-quote/internal/api/handlers"
	"solar-quote/internal/api/middleware"
	"solar-quote/internal/api/models"
	"solar-quote/internal/logger"
	"solar-quote/internal/quote"
	"solar-quote/internal/refdata"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Assembler   *quote.Assembler
	Store       *refdata.Store
	Log         *slog.Logger
	CORSOrigins []string
	Parallelism int
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	router := gin.New()
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger(d.Log))
	router.Use(middleware.ErrorHandler(d.Log))

	quoteHandler := handlers.NewQuoteHandler(d.Assembler)
	refHandler := handlers.NewReferenceHandler(d.Store, d.Parallelism)
	adminHandler := handlers.NewAdminHandler(d.Store)

	router.GET("/health", adminHandler.Health)
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	router.POST("/admin/reseed", adminHandler.Reseed)

	api := router.Group("/api/v1")
	{
		api.POST("/quotes", quoteHandler.CreateQuote)
		api.POST("/quotes/packages", quoteHandler.ComparePackages)

		api.GET("/zones/:postcode", refHandler.GetZone)
		api.POST("/rebates", refHandler.CalculateRebates)
		api.POST("/suppliers/select", refHandler.SelectSuppliers)
		api.POST("/installation/estimate", refHandler.EstimateInstallation)
		api.POST("/installation/compare", refHandler.CompareInstallation)
		api.POST("/formula/evaluate", refHandler.EvaluateFormula)
		api.GET("/packages", refHandler.ListPackages)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	})
	return router
}

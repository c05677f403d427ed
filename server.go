package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/models/reports"
	"bitbucket.org/mmdatafocus/fleet_backend/sheetsync"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	settings, err := config.LoadFleetSettings()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "settings"}).Fatal(err.Error())
	}

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until the DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")

	r.Use(cors.New(corsConfig))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/pending-collections", pendingCollectionsHandler(settings))
	api.GET("/pending-collections/export", pendingCollectionsExportHandler(settings))
	api.GET("/loss-matrix", lossMatrixHandler(settings))
	api.GET("/loss-matrix/export", lossMatrixExportHandler(settings))
	api.GET("/loss-summary", lossSummaryHandler(settings))
	api.POST("/sync", syncHandler(logger, settings))

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"port":     port,
		"timezone": settings.Timezone,
	}).Info("fleet backend listening")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

func pendingCollectionsHandler(settings config.FleetSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := reports.GetPendingCollectionReport(c.Request.Context(), settings, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func pendingCollectionsExportHandler(settings config.FleetSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := reports.GetPendingCollectionReport(c.Request.Context(), settings, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=pending-collections.xlsx")
		if err := reports.WritePendingCollectionsExcel(c.Writer, report); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
}

func lossMatrixHandler(settings config.FleetSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := parseLossFilter(c, settings.Timezone)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := reports.GetLossMatrixReport(c.Request.Context(), settings, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func lossMatrixExportHandler(settings config.FleetSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := parseLossFilter(c, settings.Timezone)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := reports.GetLossMatrixReport(c.Request.Context(), settings, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=loss-matrix.xlsx")
		if err := reports.WriteLossMatrixExcel(c.Writer, report); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
}

func lossSummaryHandler(settings config.FleetSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := parseLossFilter(c, settings.Timezone)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := reports.GetLossMatrixReport(c.Request.Context(), settings, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report.Summary)
	}
}

func syncHandler(logger *logrus.Logger, settings config.FleetSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		worker := sheetsync.NewWorker(logger, settings.Timezone)
		result, err := worker.RunOnce(c.Request.Context())
		if err != nil {
			config.LogError(logger, "server", "syncHandler", "sheet sync", nil, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// parseLossFilter reads the optional vehicle/driver/date-range/month
// query params shared by the loss endpoints.
func parseLossFilter(c *gin.Context, timezone string) (models.LossFilter, error) {
	var filter models.LossFilter

	if v := strings.TrimSpace(c.Query("vehicle")); v != "" {
		filter.VehicleId = &v
	}
	if v := strings.TrimSpace(c.Query("driver")); v != "" {
		filter.DriverName = &v
	}
	if v := strings.TrimSpace(c.Query("month")); v != "" {
		filter.Month = &v
	}
	if v := strings.TrimSpace(c.Query("from")); v != "" {
		d, err := utils.ParseDate(v, timezone)
		if err != nil {
			return filter, err
		}
		filter.FromDate = &d
	}
	if v := strings.TrimSpace(c.Query("to")); v != "" {
		d, err := utils.ParseDate(v, timezone)
		if err != nil {
			return filter, err
		}
		filter.ToDate = &d
	}

	return filter, nil
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

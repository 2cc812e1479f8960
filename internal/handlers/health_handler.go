package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"boardly/internal/metrics"
	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HealthHandler serves liveness, readiness, and process metrics.
type HealthHandler struct {
	db     *gorm.DB
	hub    *services.BoardHub
	logger *logrus.Logger
}

func NewHealthHandler(db *gorm.DB, hub *services.BoardHub, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{db: db, hub: hub, logger: logger}
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]ServiceInfo `json:"services"`
	System    SystemInfo             `json:"system"`
}

type ServiceInfo struct {
	Status  string      `json:"status"`
	Latency string      `json:"latency,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type SystemInfo struct {
	Uptime     string `json:"uptime"`
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
}

var startTime = time.Now()

// Health reports overall service health, including a database ping.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Services:  make(map[string]ServiceInfo),
		System: SystemInfo{
			Uptime:     time.Since(startTime).String(),
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
		},
	}

	h.checkDatabase(ctx, &response)

	response.Services["websocket"] = ServiceInfo{
		Status:  "healthy",
		Details: map[string]interface{}{"clients": h.hub.GetClientCount()},
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

// Ready reports whether the service can take traffic.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	ready := true
	checks := make(map[string]string)

	if err := h.pingDB(ctx); err != nil {
		checks["database"] = "not_ready"
		ready = false
	} else {
		checks["database"] = "ready"
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, gin.H{
		"ready":     ready,
		"timestamp": time.Now(),
		"services":  checks,
	})
}

// Metrics exposes in-process counters as JSON.
func (h *HealthHandler) Metrics(c *gin.Context) {
	matched, success, failure, byAction := metrics.AutomationSnapshot()
	rlTotal, rlByPath := metrics.RateLimitSnapshot()

	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now(),
		"automation": gin.H{
			"rules_matched":     matched,
			"firings_succeeded": success,
			"firings_failed":    failure,
			"actions_by_type":   byAction,
		},
		"rate_limit": gin.H{
			"dropped_total":   rlTotal,
			"dropped_by_path": rlByPath,
		},
		"websocket": gin.H{
			"clients": h.hub.GetClientCount(),
		},
		"system": gin.H{
			"uptime":     time.Since(startTime).String(),
			"goroutines": runtime.NumGoroutine(),
		},
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context, response *HealthResponse) {
	start := time.Now()
	if err := h.pingDB(ctx); err != nil {
		response.Services["database"] = ServiceInfo{
			Status:  "unhealthy",
			Latency: time.Since(start).String(),
			Error:   err.Error(),
		}
		response.Status = "unhealthy"
		return
	}
	response.Services["database"] = ServiceInfo{
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

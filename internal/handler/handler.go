package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"stock-insurance-backend/internal/montecarlo"
	"stock-insurance-backend/internal/service"
	"stock-insurance-backend/internal/store"
)

var log = logrus.WithField("component", "handler")

// RunReader serves and prunes persisted runs.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	GetRunResult(ctx context.Context, id string) (*montecarlo.SimulationResult, error)
	DeleteRun(ctx context.Context, id string) error
}

// Handler holds the dependencies of the HTTP API.
type Handler struct {
	Sim  *service.SimulationService
	Runs RunReader
	Auth *Auth
}

// RegisterRoutes mounts the API on r.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/auth/verify", h.Auth.VerifyInviteCode)

		// market data
		api.GET("/stocks/:code/kline", GetKline)
		api.GET("/stocks/:code/history", GetHistory)
		api.GET("/stocks/:code/volatility", GetVolatility)

		sim := api.Group("", h.Auth.Middleware())
		sim.DELETE("/stocks/:code/history", InvalidateHistory)
		sim.POST("/simulate", h.Simulate)
		sim.POST("/simulate/tasks", h.CreateSimulationTask)
		sim.GET("/simulate/tasks/:task_id", h.GetSimulationTask)
		sim.DELETE("/simulate/tasks/:task_id", h.CancelSimulationTask)

		sim.GET("/runs", h.ListRuns)
		sim.GET("/runs/:id", h.GetRun)
		sim.GET("/runs/:id/csv", h.GetRunCSV)
		sim.DELETE("/runs/:id", h.DeleteRun)
	}
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, montecarlo.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, montecarlo.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Errorf("%s %s failed", c.Request.Method, c.FullPath())
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
	})
}

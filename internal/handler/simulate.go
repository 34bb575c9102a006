package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stock-insurance-backend/internal/model"
)

// Simulate runs a simulation and answers with its summary and per-path
// outputs.
func (h *Handler) Simulate(c *gin.Context) {
	var req model.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	resp, err := h.Sim.RunSimulation(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateSimulationTask starts an asynchronous simulation. An idempotent
// replay of a live request id answers 200 instead of 202.
func (h *Handler) CreateSimulationTask(c *gin.Context) {
	var req model.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}
	if req.RequestID == "" {
		req.RequestID = c.GetHeader("X-Request-ID")
	}

	status, created, err := h.Sim.CreateSimulationTask(req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusAccepted
	}
	c.JSON(code, status)
}

func (h *Handler) GetSimulationTask(c *gin.Context) {
	taskID := c.Param("task_id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing task_id"})
		return
	}

	status, ok := h.Sim.GetSimulationTaskStatus(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found or expired"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) CancelSimulationTask(c *gin.Context) {
	taskID := c.Param("task_id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing task_id"})
		return
	}

	status, ok := h.Sim.CancelSimulationTask(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found or expired"})
		return
	}

	c.JSON(http.StatusOK, status)
}

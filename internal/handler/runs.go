package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stock-insurance-backend/internal/report"
)

func (h *Handler) runsAvailable(c *gin.Context) bool {
	if h.Runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run store disabled"})
		return false
	}
	return true
}

func (h *Handler) ListRuns(c *gin.Context) {
	if !h.runsAvailable(c) {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	runs, err := h.Runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": runs,
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	if !h.runsAvailable(c) {
		return
	}

	run, err := h.Runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) DeleteRun(c *gin.Context) {
	if !h.runsAvailable(c) {
		return
	}

	if err := h.Runs.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRunCSV streams the per-path outputs of a run as CSV.
func (h *Handler) GetRunCSV(c *gin.Context) {
	if !h.runsAvailable(c) {
		return
	}

	id := c.Param("id")
	result, err := h.Runs.GetRunResult(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="run-%s.csv"`, id))
	c.Status(http.StatusOK)
	if err := report.WriteCSV(c.Writer, result); err != nil {
		log.WithError(err).Errorf("unable to write csv of run %s", id)
	}
}

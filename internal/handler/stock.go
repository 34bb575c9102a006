package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stock-insurance-backend/internal/model"
	"stock-insurance-backend/internal/stockdata"
)

// GetKline returns OHLCV bars for a code.
func GetKline(c *gin.Context) {
	code := c.Param("code")

	var q model.KlineQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	kline, err := stockdata.GetKline(c.Request.Context(), code, q.Period, q.Limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, kline)
}

// GetHistory returns the closes of the estimation window.
func GetHistory(c *gin.Context) {
	code := c.Param("code")

	var q model.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}
	if q.Months <= 0 {
		q.Months = 18
	}

	h, err := stockdata.GetHistoryWithRefresh(c.Request.Context(), code, q.Months, q.Refresh)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, h)
}

// InvalidateHistory drops the cached estimation window of a code so the
// next simulation refetches it.
func InvalidateHistory(c *gin.Context) {
	var q model.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}
	if q.Months <= 0 {
		q.Months = 18
	}

	if err := stockdata.InvalidateHistory(c.Param("code"), q.Months); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetVolatility returns the annualized volatility over look-back windows.
func GetVolatility(c *gin.Context) {
	code := c.Param("code")

	var q model.VolatilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	years, err := parseYears(q.Years)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := stockdata.GetVolatilityReport(c.Request.Context(), code, years)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

func parseYears(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var years []int
	for _, part := range strings.Split(s, ",") {
		y, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || y <= 0 {
			return nil, fmt.Errorf("invalid years value %q", part)
		}
		years = append(years, y)
	}
	return years, nil
}

package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
)

type recordUsageRequest struct {
	Date  string    `json:"date"`
	Usage flexFloat `json:"usage"`
}

type simulateRequest struct {
	Days int `json:"days"`
}

func (s *Server) RecordUsage(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req recordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if !req.Usage.Set {
		AbortWithError(c, usagedomain.ErrInvalidAmount)
		return
	}
	day, err := usagedomain.ParseDay(req.Date, s.cfg.Location())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.usageSvc.Upsert(c.Request.Context(), usagedomain.UpsertRequest{
		OwnerID:   account.ID.String(),
		Day:       day,
		Amount:    req.Usage.Value,
		Threshold: account.DailyThreshold,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	action := "updated"
	if result.Created {
		action = "created"
	}
	body := gin.H{
		"success": true,
		"data":    result.Record,
		"action":  action,
	}
	if result.Alert != nil {
		body["alert"] = result.Alert
	}
	c.JSON(http.StatusCreated, body)
}

func (s *Server) GetUsage(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	snapshot, err := s.dashboards.ForOwner(c.Request.Context(), account)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": snapshot})
}

func (s *Server) SimulateUsage(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.usageSvc.Simulate(c.Request.Context(), usagedomain.SimulateRequest{
		OwnerID:   account.ID.String(),
		Days:      req.Days,
		Threshold: account.DailyThreshold,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if result.CorrelationID != "" {
		c.Header(HeaderCorrelationID, result.CorrelationID)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Generated %d days of simulated data", len(result.Records)),
		"data":    result.Records,
	})
}

func (s *Server) ListAlerts(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	alerts, err := s.alertSvc.ListActive(c.Request.Context(), account.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": alerts})
}

// DownloadReport renders the requested month, or the current one, as PDF.
func (s *Server) DownloadReport(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	loc := s.cfg.Location()
	month := strings.TrimSpace(c.Query("month"))
	if month == "" {
		month = s.clock.Now().In(loc).Format("2006-01")
	}
	start, err := usagedomain.ParseMonth(month, loc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, filename, err := s.dashboards.MonthlyReport(c.Request.Context(), account, start)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", doc)
}

package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	"github.com/smallbiznis/aquaalerts/internal/observability/logger"
	"go.uber.org/zap"
)

type updateUserRequest struct {
	DailyThreshold flexFloat `json:"dailyThreshold"`
}

func (s *Server) AdminListUsers(c *gin.Context) {
	users, err := s.dashboards.ListUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": users})
}

func (s *Server) AdminListAdmins(c *gin.Context) {
	admins, err := s.accounts.ListByRole(c.Request.Context(), accountdomain.RoleAdmin)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "admins": admins})
}

func (s *Server) AdminUserDashboard(c *gin.Context) {
	snapshot, err := s.dashboards.ForAdmin(c.Request.Context(), strings.TrimSpace(c.Param("userId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": snapshot})
}

func (s *Server) AdminDeleteUser(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	ctx := c.Request.Context()

	if err := s.accounts.Delete(ctx, userID); err != nil {
		AbortWithError(c, err)
		return
	}
	if id, err := snowflake.ParseString(userID); err == nil {
		if err := s.authzSvc.Forget(ctx, id); err != nil {
			logger.WithContext(ctx, s.log).Warn("drop role bindings failed", zap.String("account_id", userID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}

func (s *Server) AdminUpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if !req.DailyThreshold.Set || req.DailyThreshold.Value == 0 {
		AbortWithError(c, newValidationError("dailyThreshold", "required", "Daily threshold is required for update."))
		return
	}

	updated, err := s.accounts.UpdateThreshold(c.Request.Context(), strings.TrimSpace(c.Param("userId")), req.DailyThreshold.Value)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User threshold updated successfully to " + formatLiters(updated.DailyThreshold) + "L",
	})
}

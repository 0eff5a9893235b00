package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	"github.com/smallbiznis/aquaalerts/internal/observability/logger"
	otpdomain "github.com/smallbiznis/aquaalerts/internal/otp/domain"
	"go.uber.org/zap"
)

const HeaderCorrelationID = "X-Correlation-Id"

type sendOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
	Role     string `json:"role"`
}

type sessionResponse struct {
	Success bool                   `json:"success"`
	Token   string                 `json:"token"`
	User    *accountdomain.Account `json:"user"`
}

func (s *Server) SendRegisterOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.otpSvc.SendRegisterOTP(c.Request.Context(), req.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if result != nil && result.CorrelationID != "" {
		c.Header(HeaderCorrelationID, result.CorrelationID)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP sent successfully to your email",
	})
}

func (s *Server) VerifyRegisterOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.otpSvc.VerifyRegisterOTP(c.Request.Context(), otpdomain.VerifyRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
		Role:     accountdomain.Role(strings.ToLower(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sessionResponse{
		Success: true,
		Token:   session.Token,
		User:    session.Account,
	})
}

func (s *Server) Login(c *gin.Context) {
	var req accountdomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.accounts.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		Success: true,
		Token:   session.Token,
		User:    session.Account,
	})
}

func (s *Server) Me(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": account})
}

func (s *Server) UpdateProfile(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req accountdomain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = account.ID.String()

	updated, err := s.accounts.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": updated})
}

func (s *Server) DeleteAccount(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	if err := s.accounts.Delete(ctx, account.ID.String()); err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authzSvc.Forget(ctx, account.ID); err != nil {
		logger.WithContext(ctx, s.log).Warn("drop role bindings failed", zap.String("account_id", account.ID.String()), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Account deleted successfully",
	})
}

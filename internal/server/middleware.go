package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	obscontext "github.com/smallbiznis/aquaalerts/internal/observability/context"
)

const (
	contextAccountKey = "account"
	bearerPrefix      = "bearer "
)

// AuthRequired resolves the bearer token into an account. allowQuery lets
// EventSource clients, which cannot set headers, pass ?token= instead.
func (s *Server) AuthRequired(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c, allowQuery)
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		account, err := s.accounts.Authenticate(c.Request.Context(), raw)
		if err != nil {
			switch {
			case errors.Is(err, accountdomain.ErrNotVerified):
				AbortWithError(c, err)
			case errors.Is(err, accountdomain.ErrNotFound):
				AbortWithError(c, ErrUserNotFound)
			case errors.Is(err, accountdomain.ErrUnauthorized):
				AbortWithError(c, ErrUnauthorized)
			default:
				AbortWithError(c, err)
			}
			return
		}

		c.Set(contextAccountKey, account)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), string(account.Role), account.ID.String()))
		c.Next()
	}
}

// authorize checks the casbin policy for the authenticated account.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := currentAccount(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), account.ID, string(account.Role), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func currentAccount(c *gin.Context) (*accountdomain.Account, bool) {
	value, ok := c.Get(contextAccountKey)
	if !ok {
		return nil, false
	}
	account, ok := value.(*accountdomain.Account)
	return account, ok && account != nil
}

func bearerToken(c *gin.Context, allowQuery bool) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	if allowQuery {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}

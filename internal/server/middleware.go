package server

import (
	"strings"

	authdomain "github.com/galette-community/plugin-stripe/internal/auth/domain"
	obscontext "github.com/galette-community/plugin-stripe/internal/observability/context"
	"github.com/gin-gonic/gin"
)

const contextPrincipalKey = "principal"

// AdminAuthRequired authenticates admin API calls with a bearer token.
func (s *Server) AdminAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextPrincipalKey, principal)
		ctx := obscontext.WithActor(c.Request.Context(), string(principal.Role), principal.TokenID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func principalFromContext(c *gin.Context) (authdomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return authdomain.Principal{}, false
	}
	principal, ok := value.(authdomain.Principal)
	return principal, ok
}

// PublicActor tags public requests so logs and audits tell them apart.
func PublicActor(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := obscontext.WithActor(c.Request.Context(), kind, "")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

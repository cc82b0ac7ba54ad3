package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NileshSanyal/supermart-backend/internal/model"
	"github.com/NileshSanyal/supermart-backend/internal/token"
)

const (
	authClaimsKey = "auth_claims"

	msgUnauthorized = "Unauthorized request"
	msgForbidden    = "Forbidden request"
)

// TokenVerifier is satisfied by *service.AuthService.
type TokenVerifier interface {
	ParseAccessToken(tokenStr string) (*token.Claims, error)
	ParseRefreshAccessToken(tokenStr string) (*token.Claims, error)
}

// AuthMiddleware requires a valid, unexpired bearer token. A missing header
// or another scheme is 401; a token that fails verification is 403.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return bearerMiddleware(verifier.ParseAccessToken)
}

// RefreshAuthMiddleware is AuthMiddleware for the refresh route: the token
// signature is checked but an expired token is let through.
func RefreshAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return bearerMiddleware(verifier.ParseRefreshAccessToken)
}

func bearerMiddleware(parse func(string) (*token.Claims, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		claims, err := parse(tokenStr)
		if err != nil {
			abortWithError(c, http.StatusForbidden, msgForbidden)
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// AdminMiddleware allows only tokens carrying isAdmin. When AuthMiddleware
// already ran, its verified claims are reused; otherwise the header is
// verified here.
func AdminMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := getClaims(c)
		if claims == nil {
			tokenStr, ok := bearerToken(c)
			if !ok {
				abortWithError(c, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			parsed, err := verifier.ParseAccessToken(tokenStr)
			if err != nil {
				abortWithError(c, http.StatusForbidden, msgForbidden)
				return
			}
			claims = parsed
			c.Set(authClaimsKey, claims)
		}

		if !claims.IsAdmin {
			abortWithError(c, http.StatusForbidden, msgForbidden)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, tokenStr, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" {
		return "", false
	}
	tokenStr = strings.TrimSpace(tokenStr)
	return tokenStr, tokenStr != ""
}

func getClaims(c *gin.Context) *token.Claims {
	if value, ok := c.Get(authClaimsKey); ok {
		if claims, ok := value.(*token.Claims); ok {
			return claims
		}
	}
	return nil
}

func GetAuthUser(c *gin.Context) *model.AuthUser {
	claims := getClaims(c)
	if claims == nil {
		return nil
	}
	return &model.AuthUser{
		AccountID: claims.UserID,
		Email:     claims.Email,
		IsAdmin:   claims.IsAdmin,
	}
}

func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
				c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, model.ErrorResponse{Status: status, Error: true, Message: message})
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, model.ErrorResponse{Status: status, Error: true, Message: message})
}

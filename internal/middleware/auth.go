package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/jwalitptl/visitor-api/pkg/errors"
	"github.com/jwalitptl/visitor-api/pkg/httputil"
)

const ContextSubject = "subject"

type AuthConfig struct {
	Issuer   string
	Audience string
	Key      string
}

type AuthMiddleware struct {
	config AuthConfig
	parser *jwt.Parser
}

func NewAuthMiddleware(config AuthConfig) *AuthMiddleware {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &AuthMiddleware{
		config: config,
		parser: jwt.NewParser(opts...),
	}
}

// Authenticate verifies an HS256 bearer token and stores its subject in the
// context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("missing authorization header")))
			return
		}

		scheme, raw, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("invalid authorization format")))
			return
		}

		claims := &jwt.RegisteredClaims{}
		if _, err := m.parser.ParseWithClaims(raw, claims, m.keyFunc); err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Next()
	}
}

func (m *AuthMiddleware) keyFunc(*jwt.Token) (interface{}, error) {
	return []byte(m.config.Key), nil
}

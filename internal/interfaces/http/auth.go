package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/shared-staff/internal/domain/entity"
)

const actorKey = "actor"

// Claims carries the identity of the caller. The subject is the profile id.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenAuthority signs and verifies HMAC bearer tokens
type TokenAuthority struct {
	secret []byte
	issuer string
}

// NewTokenAuthority creates a token authority for the shared secret
func NewTokenAuthority(secret, issuer string) *TokenAuthority {
	return &TokenAuthority{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token for the actor, valid for ttl
func (a *TokenAuthority) Issue(actor entity.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  string(actor.Role),
		Email: actor.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses a token and returns the actor it identifies
func (a *TokenAuthority) Verify(tokenStr string) (entity.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return entity.Actor{}, err
	}
	if !token.Valid {
		return entity.Actor{}, errors.New("invalid token")
	}

	role := entity.Role(claims.Role)
	if claims.Subject == "" || !role.IsValid() {
		return entity.Actor{}, fmt.Errorf("token carries no usable identity")
	}
	return entity.Actor{ID: claims.Subject, Role: role, Email: claims.Email}, nil
}

// authentication checks the bearer token and stores the actor on the context
func (s *Server) authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "missing bearer token"})
			return
		}

		actor, err := s.tokens.Verify(parts[1])
		if err != nil {
			s.logger.Info("Rejected bearer token", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "invalid or expired token"})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFrom returns the authenticated actor
func actorFrom(c *gin.Context) entity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(entity.Actor); ok {
			return actor
		}
	}
	return entity.Actor{}
}

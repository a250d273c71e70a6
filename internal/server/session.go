package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"aitookmyjob/internal/models"
)

const (
	sessionCookie = "auth_token"
	tokenIssuer   = "aitookmyjob-api"
)

// sessionClaims is what a valid token yields.
type sessionClaims struct {
	UserID string
	Role   string
	Email  string
	JTI    string
}

// issueToken signs a session token for the user.
func (s *Server) issueToken(user *models.User) (string, time.Time, error) {
	expires := time.Now().UTC().Add(time.Duration(s.config.SessionTTLHours) * time.Hour)
	claims := jwt.MapClaims{
		"iss":   tokenIssuer,
		"sub":   user.ID,
		"role":  user.Role,
		"email": user.Email,
		"jti":   uuid.NewString(),
		"iat":   time.Now().UTC().Unix(),
		"exp":   expires.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AuthSecret))
	return signed, expires, err
}

// setSessionCookie delivers the token as an HTTP-only cookie.
func (s *Server) setSessionCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   s.config.IsProduction(),
		Path:     "/",
	})
}

// clearSessionCookie expires the session cookie.
func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   s.config.IsProduction(),
		Path:     "/",
	})
}

// parseSession validates the session token from the cookie or, as a
// fallback, a Bearer header.
func (s *Server) parseSession(c *fiber.Ctx) (*sessionClaims, error) {
	tokenString := c.Cookies(sessionCookie)
	if tokenString == "" {
		if header := c.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if tokenString == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.NewUnauthorizedError("Invalid signing method")
		}
		return []byte(s.config.AuthSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired session")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}
	if issuer, _ := claims["iss"].(string); issuer != tokenIssuer {
		return nil, models.NewUnauthorizedError("Invalid token issuer")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}
	session := &sessionClaims{UserID: sub}
	session.Role, _ = claims["role"].(string)
	session.Email, _ = claims["email"].(string)
	session.JTI, _ = claims["jti"].(string)

	// Revoked tokens are tracked in Redis when available.
	if session.JTI != "" && s.redis != nil {
		if revoked, err := s.redis.Exists(c.UserContext(), "revoked:"+session.JTI).Result(); err == nil && revoked > 0 {
			return nil, models.NewUnauthorizedError("Session has been revoked")
		}
	}
	return session, nil
}

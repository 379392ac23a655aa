package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/velora/bizportal/internal/models"
)

const sessionCookie = "anon_session"

// IdentityResolver resolves the caller: an account id from the access-token
// cookie when one is present and valid, otherwise an anonymous session id.
// Guest checkout is a supported path, so a missing or bad token is not an
// error.
type IdentityResolver struct {
	JWTSecret []byte
}

func (r *IdentityResolver) Identity(c echo.Context) models.Identity {
	if accountID, err := accountFromCookie(c, r.JWTSecret); err == nil {
		return models.Identity{AccountID: &accountID}
	}
	return models.Identity{SessionID: r.session(c)}
}

func accountFromCookie(c echo.Context, secret []byte) (uuid.UUID, error) {
	cookie, err := c.Cookie("accessToken")
	if err != nil || cookie.Value == "" {
		return uuid.Nil, fmt.Errorf("missing auth cookie")
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid subject claim")
	}
	return uuid.Parse(sub)
}

// session returns the anonymous session id, issuing the cookie on first use.
func (r *IdentityResolver) session(c echo.Context) string {
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	sid := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
	return sid
}

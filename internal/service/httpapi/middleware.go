package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

const principalKey = "principal"

// Protect требует заголовок Authorization: Bearer <token> и кладёт
// проверенного принципала в контекст запроса.
func Protect(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, errorBody{Message: "authentication required"})
			}

			principal, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid or expired token"})
			}

			c.Set(principalKey, &principal)
			return next(c)
		}
	}
}

// Authorize пропускает только принципалов с одной из ролей.
func Authorize(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := principalFrom(c)
			if p == nil {
				return c.JSON(http.StatusUnauthorized, errorBody{Message: "authentication required"})
			}
			for _, role := range roles {
				if p.Role == role {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorBody{Message: "access denied"})
		}
	}
}

func principalFrom(c echo.Context) *domain.Principal {
	p, _ := c.Get(principalKey).(*domain.Principal)
	return p
}

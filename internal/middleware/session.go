package middleware

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/hushousing/internal/utils"
)

// RequireSession admits requests carrying a valid session token issued for
// the currently connected account. The account is stored under "account".
func RequireSession(secret []byte, connected func() (common.Address, bool)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := utils.ExtractSessionToken(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			account, err := utils.ParseSession(secret, tokenStr)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired session"})
			}

			current, ok := connected()
			if !ok {
				return c.JSON(http.StatusConflict, echo.Map{"error": "wallet not connected"})
			}
			if current != account {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "session belongs to another account"})
			}

			c.Set("account", account.Hex())
			return next(c)
		}
	}
}

package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Me returns the account of the current session. RequireSession must run first.
func Me(c echo.Context) error {
	account, ok := c.Get("account").(string)
	if !ok || account == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"account": account})
}

package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hushousing/internal/utils"
)

// Wallet is the connect half of the marketplace application.
type Wallet interface {
	Connect(ctx context.Context, passphrase string) error
	Account() common.Address
}

type ConnectRequest struct {
	Passphrase string `json:"passphrase" form:"passphrase"`
}

type ConnectResponse struct {
	Account string `json:"account"`
	Token   string `json:"token"`
}

type Handler struct {
	wallet Wallet
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

func NewHandler(wallet Wallet, secret []byte, ttl time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{wallet: wallet, secret: secret, ttl: ttl, logger: logger}
}

// ===== Connect =====
// Connect unlocks the wallet, loads the marketplace and issues a session.
// Browser form posts are redirected back to the page either way; the
// outcome is on the notification line.
func (h *Handler) Connect(c echo.Context) error {
	req := new(ConnectRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	browser := isFormPost(c)

	if err := h.wallet.Connect(c.Request().Context(), req.Passphrase); err != nil {
		if browser {
			return c.Redirect(http.StatusSeeOther, "/")
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	account := h.wallet.Account()
	signed, err := utils.IssueSession(h.secret, account, h.ttl)
	if err != nil {
		h.logger.Error("session token generation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookie,
		Value:    signed,
		Path:     "/",
		Expires:  time.Now().Add(h.ttl),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	if browser {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.JSON(http.StatusOK, ConnectResponse{Account: account.Hex(), Token: signed})
}

func isFormPost(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	return strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm)
}

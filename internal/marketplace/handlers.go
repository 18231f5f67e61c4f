package marketplace

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hushousing/internal/identicon"
)

// Handler serves the console page and its form actions.
//
// Write actions keep running after the response is sent; their progress is
// only visible through the notification channel.
type Handler struct {
	app    *Marketplace
	logger *zap.Logger
	wg     sync.WaitGroup

	// Sync runs write actions before responding.
	Sync bool
}

func NewHandler(app *Marketplace, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{app: app, logger: logger}
}

// Wait blocks until every pending write action has returned.
func (h *Handler) Wait() { h.wg.Wait() }

func (h *Handler) run(c echo.Context, name string, fn func(ctx context.Context) error) {
	ctx := context.WithoutCancel(c.Request().Context())
	work := func() {
		if err := fn(ctx); err != nil {
			h.logger.Warn("action finished with error", zap.String("action", name), zap.Error(err))
		}
	}
	if h.Sync {
		work()
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		work()
	}()
}

func (h *Handler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", h.app.Page())
}

// Refresh reloads listings and balance, then returns to the page.
func (h *Handler) Refresh(c echo.Context) error {
	if !h.app.Connected() {
		return c.JSON(http.StatusConflict, echo.Map{"error": ErrNotConnected.Error()})
	}
	if err := h.app.Refresh(c.Request().Context()); err != nil {
		h.logger.Warn("refresh failed", zap.Error(err))
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) CreateListing(c echo.Context) error {
	form := new(ListingForm)
	if err := c.Bind(form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid form"})
	}
	h.run(c, "addHouse", func(ctx context.Context) error {
		return h.app.CreateListing(ctx, *form)
	})
	return c.Redirect(http.StatusSeeOther, "/")
}

// Act handles POST /listings/:index/:action.
func (h *Handler) Act(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing index"})
	}
	action, err := ParseAction(c.Param("action"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}

	var price *string
	if action == ActionResell {
		// an empty field is treated like a dismissed prompt
		if v := strings.TrimSpace(c.FormValue("newPrice")); v != "" {
			price = &v
		}
	}
	h.run(c, action.String(), func(ctx context.Context) error {
		return h.app.Do(ctx, index, action, price)
	})
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) Notification(c echo.Context) error {
	return c.JSON(http.StatusOK, h.app.Notification())
}

// Balance returns the connected account and its formatted token balance.
func (h *Handler) Balance(c echo.Context) error {
	if !h.app.Connected() {
		return c.JSON(http.StatusConflict, echo.Map{"error": ErrNotConnected.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"account": h.app.Account().Hex(),
		"balance": h.app.Balance(),
		"symbol":  h.app.Options().Symbol,
	})
}

func (h *Handler) Identicon(c echo.Context) error {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid address"})
	}
	img, err := identicon.PNG(common.HexToAddress(address).Hex())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render failed"})
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, "image/png", img)
}

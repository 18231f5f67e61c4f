package marketplace

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/hushousing/internal/alerts"
	"github.com/sudo-init-do/hushousing/internal/chain"
	"github.com/sudo-init-do/hushousing/internal/identicon"
)

// Action is the single affordance a listing card offers its viewer.
type Action int

const (
	ActionBuy Action = iota
	ActionResell
	ActionCancelSale
)

func (a Action) String() string {
	switch a {
	case ActionResell:
		return "resell"
	case ActionCancelSale:
		return "cancel"
	default:
		return "buy"
	}
}

// ParseAction maps a route segment back to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "buy":
		return ActionBuy, nil
	case "resell":
		return ActionResell, nil
	case "cancel":
		return ActionCancelSale, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// ResolveAction picks the card action; the first matching rule wins:
// an unsold listing of the viewer can be cancelled, any other listing of the
// viewer can be resold, everything else can be bought.
func ResolveAction(l chain.Listing, viewer common.Address, caps chain.Capabilities) Action {
	if !caps.SupportsResale || l.Owner != viewer {
		return ActionBuy
	}
	if l.Sold != nil && !*l.Sold {
		return ActionCancelSale
	}
	return ActionResell
}

// Card is the view model of one listing.
type Card struct {
	Index       int
	Name        string
	Image       string
	Description string
	Location    string
	Owner       string
	OwnerIcon   template.URL
	OwnerURL    string
	Price       string
	Symbol      string
	Action      Action
}

func (c Card) Path() string {
	return fmt.Sprintf("/listings/%d/%s", c.Index, c.Action)
}

// ButtonClass keeps the class names the page styles rely on.
func (c Card) ButtonClass() string {
	switch c.Action {
	case ActionCancelSale:
		return "btn-outline-dark cancelSaleBtn"
	case ActionResell:
		return "btn-outline-dark resellBtn"
	default:
		return "btn-outline-success buyBtn"
	}
}

func (c Card) Label() string {
	switch c.Action {
	case ActionCancelSale:
		return "Cancel Sale"
	case ActionResell:
		return "Resell"
	default:
		return fmt.Sprintf("Buy for %s %s", c.Price, c.Symbol)
	}
}

// Cards projects listings into view models for viewer, in cache order.
func Cards(listings []chain.Listing, viewer common.Address, opts Options) []Card {
	cards := make([]Card, 0, len(listings))
	for _, l := range listings {
		owner := l.Owner.Hex()
		cards = append(cards, Card{
			Index:       l.Index,
			Name:        l.Name,
			Image:       l.Image,
			Description: l.Description,
			Location:    l.Location,
			Owner:       owner,
			OwnerIcon:   template.URL(identicon.DataURL(owner)),
			OwnerURL:    ExplorerAddressURL(opts.ExplorerURL, owner),
			Price:       FormatPrice(l.Price, opts.Decimals),
			Symbol:      opts.Symbol,
			Action:      ResolveAction(l, viewer, opts.Capabilities),
		})
	}
	return cards
}

// ExplorerAddressURL links to address's transactions on the block explorer at
// base. It is empty when no explorer is configured.
func ExplorerAddressURL(base, address string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/address/" + address + "/transactions"
}

// Page is everything the index template needs.
type Page struct {
	Installed      bool
	Connected      bool
	Account        string
	AccountIcon    template.URL
	Balance        string
	Symbol         string
	SupportsResale bool
	Notification   alerts.Notification
	Cards          []Card
}

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer renders the embedded page templates for echo.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

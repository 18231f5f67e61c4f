package user

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/hushousing/internal/chain"
	"github.com/sudo-init-do/hushousing/internal/marketplace"
)

// Listings is a source of cached listings.
type Listings interface {
	Snapshot() []chain.Listing
}

// GET /owners/:address/profile
// Built from the listing cache only; nothing is read from the chain.
func GetPublicProfile(listings Listings, opts marketplace.Options) echo.HandlerFunc {
	return func(c echo.Context) error {
		address := c.Param("address")
		if !common.IsHexAddress(address) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid address"})
		}
		owner := common.HexToAddress(address)

		p := Profile{
			Address:     owner.Hex(),
			AvatarURL:   "/identicons/" + owner.Hex(),
			ExplorerURL: marketplace.ExplorerAddressURL(opts.ExplorerURL, owner.Hex()),
			Listings:    []OwnedListing{},
		}
		for _, l := range listings.Snapshot() {
			if l.Owner != owner {
				continue
			}
			p.Listings = append(p.Listings, OwnedListing{
				Index:    l.Index,
				Name:     l.Name,
				Location: l.Location,
				Price:    marketplace.FormatPrice(l.Price, opts.Decimals),
				Sold:     l.Sold,
			})
		}
		return c.JSON(http.StatusOK, p)
	}
}

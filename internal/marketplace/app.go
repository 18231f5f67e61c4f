package marketplace

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sudo-init-do/hushousing/internal/alerts"
	"github.com/sudo-init-do/hushousing/internal/chain"
	"github.com/sudo-init-do/hushousing/internal/identicon"
	"github.com/sudo-init-do/hushousing/internal/journal"
	"github.com/sudo-init-do/hushousing/internal/wallet"
)

var (
	ErrNotConnected   = errors.New("wallet not connected")
	ErrUnknownListing = errors.New("unknown listing")
	ErrPriceRequired  = errors.New("price required")
)

// Gateway is the contract surface the marketplace drives. *chain.Gateway implements it.
type Gateway interface {
	Account() common.Address
	CountAvailable(ctx context.Context) (int, error)
	FetchListing(ctx context.Context, index int) (chain.Listing, error)
	Balance(ctx context.Context) (*big.Int, error)
	CreateListing(ctx context.Context, l chain.NewListing) (common.Hash, error)
	ApproveSpend(ctx context.Context, amount *big.Int) (common.Hash, error)
	Purchase(ctx context.Context, index int) (common.Hash, error)
	Resell(ctx context.Context, index int, price *big.Int) (common.Hash, error)
	CancelSale(ctx context.Context, index int) (common.Hash, error)
}

// Connector authorizes an account and hands back a gateway signing as it.
type Connector interface {
	Installed() bool
	Connect(ctx context.Context, passphrase string) (common.Address, Gateway, error)
}

// WalletConnector adapts *wallet.Connector to Connector.
type WalletConnector struct {
	*wallet.Connector
}

func (w WalletConnector) Connect(ctx context.Context, passphrase string) (common.Address, Gateway, error) {
	s, err := w.Connector.Connect(ctx, passphrase)
	if err != nil {
		return common.Address{}, nil, err
	}
	return s.Account, s.Gateway, nil
}

// Options describes the deployed contracts and how amounts are displayed.
type Options struct {
	Capabilities chain.Capabilities
	Decimals     int32
	Symbol       string
	ExplorerURL  string
}

// ListingForm is the add-house form as submitted. Only Price is interpreted.
type ListingForm struct {
	Name        string `form:"newHouseName"`
	Image       string `form:"newImgUrl"`
	Description string `form:"newHouseDescription"`
	Location    string `form:"newLocation"`
	Price       string `form:"newPrice"`
}

// Marketplace is the application state of one console: the connected
// account, its gateway, the listing cache and the balance.
type Marketplace struct {
	opts      Options
	connector Connector
	notify    *alerts.Channel
	journal   journal.Recorder
	logger    *zap.Logger
	cache     *Cache

	mu      sync.RWMutex
	gateway Gateway
	account common.Address
	balance string
}

func NewMarketplace(connector Connector, notify *alerts.Channel, rec journal.Recorder, opts Options, logger *zap.Logger) *Marketplace {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = journal.NewMemory(100)
	}
	return &Marketplace{
		opts:      opts,
		connector: connector,
		notify:    notify,
		journal:   rec,
		logger:    logger,
		cache:     NewCache(),
		balance:   FormatPrice(nil, opts.Decimals),
	}
}

func (m *Marketplace) Options() Options { return m.opts }

func (m *Marketplace) Cache() *Cache { return m.cache }

func (m *Marketplace) Installed() bool {
	return m.connector != nil && m.connector.Installed()
}

func (m *Marketplace) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gateway != nil
}

func (m *Marketplace) Account() common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.account
}

func (m *Marketplace) Balance() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance
}

func (m *Marketplace) session() (Gateway, common.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gateway == nil {
		return nil, common.Address{}, ErrNotConnected
	}
	return m.gateway, m.account, nil
}

// Connect authorizes the wallet, then loads the balance and listings.
func (m *Marketplace) Connect(ctx context.Context, passphrase string) error {
	m.notify.Show("⌛ Loading...")
	if m.connector == nil {
		m.notify.Show("⚠️ Please install a wallet: configure RPC_URL and KEYSTORE_DIR.")
		return wallet.ErrNotInstalled
	}
	account, gw, err := m.connector.Connect(ctx, passphrase)
	if err != nil {
		// the connector has already notified
		return err
	}

	m.mu.Lock()
	m.gateway = gw
	m.account = account
	m.mu.Unlock()

	if err := m.RefreshBalance(ctx); err != nil {
		return m.fail(err)
	}
	if err := m.RefreshListings(ctx); err != nil {
		return m.fail(err)
	}
	m.notify.Hide()
	return nil
}

// RefreshBalance reads the token balance and stores it formatted.
func (m *Marketplace) RefreshBalance(ctx context.Context) error {
	gw, _, err := m.session()
	if err != nil {
		return err
	}
	bal, err := gw.Balance(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.balance = FormatPrice(bal, m.opts.Decimals)
	m.mu.Unlock()
	return nil
}

// RefreshListings fetches every listing concurrently and swaps the cache.
// If any fetch fails the cache keeps its previous contents.
func (m *Marketplace) RefreshListings(ctx context.Context) error {
	gw, _, err := m.session()
	if err != nil {
		return err
	}
	n, err := gw.CountAvailable(ctx)
	if err != nil {
		return err
	}

	listings := make([]chain.Listing, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			l, err := gw.FetchListing(ctx, i)
			if err != nil {
				return err
			}
			listings[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Warn("listing refresh failed", zap.Int("count", n), zap.Error(err))
		return err
	}
	m.cache.Replace(listings)
	m.logger.Debug("listings refreshed", zap.Int("count", n))
	return nil
}

// Refresh reloads listings and balance. Both are attempted; failures are
// joined and notified.
func (m *Marketplace) Refresh(ctx context.Context) error {
	err := errors.Join(m.RefreshListings(ctx), m.RefreshBalance(ctx))
	if err != nil {
		return m.fail(err)
	}
	return nil
}

// CreateListing submits a new house and refreshes whatever the outcome.
func (m *Marketplace) CreateListing(ctx context.Context, form ListingForm) error {
	gw, account, err := m.session()
	if err != nil {
		return m.fail(err)
	}
	price, err := ParsePrice(form.Price, m.opts.Decimals)
	if err != nil {
		return m.fail(err)
	}

	m.notify.Show(fmt.Sprintf("⌛ Adding %q...", form.Name))
	hash, err := gw.CreateListing(ctx, chain.NewListing{
		Name:        form.Name,
		Image:       form.Image,
		Description: form.Description,
		Location:    form.Location,
		Price:       price,
	})
	m.record(ctx, "addHouse", -1, account, hash, err)
	if err != nil {
		m.fail(err)
	} else {
		m.notify.Show(fmt.Sprintf("🎉 You successfully added %q. 🎉", form.Name))
	}
	return errors.Join(err, m.Refresh(ctx))
}

// Buy approves the listing price, purchases it and refreshes.
func (m *Marketplace) Buy(ctx context.Context, index int) error {
	gw, account, l, err := m.target(index)
	if err != nil {
		return err
	}

	m.notify.Show("⌛ Waiting for payment approval...")
	approveErr := m.approve(ctx, gw, account, index, l.Price)

	m.notify.Show(fmt.Sprintf("⌛ Awaiting payment for %q...", l.Name))
	hash, err := gw.Purchase(ctx, index)
	m.record(ctx, "buyHouse", index, account, hash, err)
	if err != nil {
		m.fail(err)
	} else {
		m.notify.Show(fmt.Sprintf("🎉 You successfully bought %q. 🎉", l.Name))
	}
	return errors.Join(approveErr, err, m.Refresh(ctx))
}

// Resell relists an owned house at price, a human amount. A nil price means
// the user dismissed the prompt.
func (m *Marketplace) Resell(ctx context.Context, index int, price *string) error {
	gw, account, l, err := m.target(index)
	if err != nil {
		return err
	}
	if price == nil {
		m.notify.Show("⚠️ You must enter a price.")
		return ErrPriceRequired
	}
	amount, err := ParsePrice(*price, m.opts.Decimals)
	if err != nil {
		return m.fail(err)
	}

	m.notify.Show(fmt.Sprintf("⌛ Reselling %q...", l.Name))
	hash, err := gw.Resell(ctx, index, amount)
	m.record(ctx, "reSellHouse", index, account, hash, err)
	if err != nil {
		m.fail(err)
	} else {
		m.notify.Show(fmt.Sprintf("🎉 You successfully resold %q. 🎉", l.Name))
	}
	return errors.Join(err, m.Refresh(ctx))
}

// CancelSale withdraws an owned, unsold house from sale and refreshes.
func (m *Marketplace) CancelSale(ctx context.Context, index int) error {
	gw, account, l, err := m.target(index)
	if err != nil {
		return err
	}

	m.notify.Show("⌛ Waiting for abort-sale approval...")
	approveErr := m.approve(ctx, gw, account, index, l.Price)

	m.notify.Show(fmt.Sprintf("⌛ Aborting sale of %q...", l.Name))
	hash, err := gw.CancelSale(ctx, index)
	m.record(ctx, "cancelSale", index, account, hash, err)
	if err != nil {
		m.fail(err)
	} else {
		m.notify.Show(fmt.Sprintf("🎉 Cancelling sale of %q successful. 🎉", l.Name))
	}
	return errors.Join(approveErr, err, m.Refresh(ctx))
}

// Do dispatches a card action. price is only read for ActionResell.
func (m *Marketplace) Do(ctx context.Context, index int, action Action, price *string) error {
	switch action {
	case ActionBuy:
		return m.Buy(ctx, index)
	case ActionResell:
		return m.Resell(ctx, index, price)
	case ActionCancelSale:
		return m.CancelSale(ctx, index)
	}
	return fmt.Errorf("unknown action %d", action)
}

// target resolves the session and a cached listing, notifying failures.
func (m *Marketplace) target(index int) (Gateway, common.Address, chain.Listing, error) {
	gw, account, err := m.session()
	if err != nil {
		return nil, common.Address{}, chain.Listing{}, m.fail(err)
	}
	l, ok := m.cache.At(index)
	if !ok {
		return nil, common.Address{}, chain.Listing{}, m.fail(fmt.Errorf("%w %d", ErrUnknownListing, index))
	}
	return gw, account, l, nil
}

// approve failures are notified and returned, but never stop the caller.
func (m *Marketplace) approve(ctx context.Context, gw Gateway, account common.Address, index int, amount *big.Int) error {
	hash, err := gw.ApproveSpend(ctx, amount)
	m.record(ctx, "approve", index, account, hash, err)
	if err != nil {
		m.fail(err)
	}
	return err
}

func (m *Marketplace) record(ctx context.Context, action string, index int, account common.Address, hash common.Hash, err error) {
	e := journal.NewEntry(action, index, account, hash, err)
	if rerr := m.journal.Record(context.WithoutCancel(ctx), e); rerr != nil {
		m.logger.Error("journal record failed", zap.String("action", action), zap.Error(rerr))
	}
	if err != nil {
		m.logger.Warn("contract write failed",
			zap.String("action", action),
			zap.Int("index", index),
			zap.String("tx", e.TxHash),
			zap.Error(err),
		)
		return
	}
	m.logger.Info("contract write confirmed",
		zap.String("action", action),
		zap.Int("index", index),
		zap.String("tx", e.TxHash),
	)
}

func (m *Marketplace) fail(err error) error {
	m.notify.Show(fmt.Sprintf("⚠️ %v.", err))
	return err
}

// Page assembles the view of the current state.
func (m *Marketplace) Page() Page {
	m.mu.RLock()
	connected := m.gateway != nil
	account := m.account
	balance := m.balance
	m.mu.RUnlock()

	p := Page{
		Installed:      m.Installed(),
		Connected:      connected,
		Balance:        balance,
		Symbol:         m.opts.Symbol,
		SupportsResale: m.opts.Capabilities.SupportsResale,
		Notification:   m.notify.Snapshot(),
		Cards:          Cards(m.cache.Snapshot(), account, m.opts),
	}
	if connected {
		p.Account = account.Hex()
		p.AccountIcon = template.URL(identicon.DataURL(p.Account))
	}
	return p
}

func (m *Marketplace) Notification() alerts.Notification {
	return m.notify.Snapshot()
}

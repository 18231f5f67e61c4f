package wallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hushousing/internal/chain"
)

// Notifier is the user-visible status line.
type Notifier interface {
	Show(text string)
	Hide()
}

// Session is an authorized account and a gateway signing as that account.
type Session struct {
	Account common.Address
	Gateway *chain.Gateway
}

// Connector obtains a Session from a Provider.
type Connector struct {
	provider Provider
	notify   Notifier
	contract chain.Options
	logger   *zap.Logger
}

// NewConnector binds sessions to the contracts in opts. provider may be nil,
// meaning no wallet is installed.
func NewConnector(provider Provider, opts chain.Options, notify Notifier, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{provider: provider, notify: notify, contract: opts, logger: logger}
}

func (c *Connector) Installed() bool { return c.provider != nil }

// Connect requests authorization and binds a gateway to the first granted account.
// Failures are notified and returned; there is no retry.
func (c *Connector) Connect(ctx context.Context, passphrase string) (Session, error) {
	if c.provider == nil {
		c.notify.Show("⚠️ Please install a wallet: configure RPC_URL and KEYSTORE_DIR.")
		return Session{}, ErrNotInstalled
	}

	c.notify.Show("⚠️ Please approve HusHousing to gain access...")
	accounts, err := c.provider.Enable(ctx, passphrase)
	if err == nil && len(accounts) == 0 {
		err = ErrNoAccounts
	}
	if err != nil {
		return Session{}, c.fail(err)
	}
	c.notify.Hide()

	account := accounts[0]
	signer, err := c.provider.Transactor(ctx, account)
	if err != nil {
		return Session{}, c.fail(err)
	}
	opts := c.contract
	opts.Account = account
	opts.Signer = signer
	gw, err := chain.NewGateway(c.provider.Backend(), opts)
	if err != nil {
		return Session{}, c.fail(err)
	}

	c.logger.Info("wallet connected", zap.String("account", account.Hex()))
	return Session{Account: account, Gateway: gw}, nil
}

func (c *Connector) fail(err error) error {
	err = fmt.Errorf("%w: %v", ErrAuthorization, err)
	c.logger.Warn("wallet connect failed", zap.Error(err))
	c.notify.Show(fmt.Sprintf("⚠️ %v.", err))
	return err
}

package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/sudo-init-do/hushousing/internal/chain"
	"github.com/sudo-init-do/hushousing/internal/config"
)

var (
	ErrNotInstalled  = errors.New("wallet provider not installed")
	ErrAuthorization = errors.New("wallet authorization failed")
	ErrNoAccounts    = errors.New("wallet has no accounts")
)

// Provider is the wallet capability: account access, a JSON-RPC transport
// and transaction signing.
type Provider interface {
	// Enable asks for access and returns the granted accounts.
	Enable(ctx context.Context, passphrase string) ([]common.Address, error)
	Backend() chain.Backend
	Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error)
}

// KeystoreProvider is a Provider over a go-ethereum keystore directory and an RPC node.
type KeystoreProvider struct {
	rpcURL  string
	chainID *big.Int
	ks      *keystore.KeyStore

	mu     sync.Mutex
	client *ethclient.Client
}

// Detect returns a provider when both an RPC endpoint and a keystore are configured.
func Detect(cfg config.ChainConfig) (Provider, error) {
	if cfg.RPCURL == "" || cfg.KeystoreDir == "" {
		return nil, ErrNotInstalled
	}
	p := &KeystoreProvider{
		rpcURL: cfg.RPCURL,
		ks:     keystore.NewKeyStore(cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP),
	}
	if cfg.ChainID > 0 {
		p.chainID = big.NewInt(cfg.ChainID)
	}
	return p, nil
}

func (p *KeystoreProvider) dial(ctx context.Context) (*ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := ethclient.DialContext(ctx, p.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p.rpcURL, err)
	}
	p.client = client
	return client, nil
}

// Enable unlocks the first keystore account with passphrase.
func (p *KeystoreProvider) Enable(ctx context.Context, passphrase string) ([]common.Address, error) {
	if _, err := p.dial(ctx); err != nil {
		return nil, err
	}
	accts := p.ks.Accounts()
	if len(accts) == 0 {
		return nil, ErrNoAccounts
	}
	if err := p.ks.Unlock(accts[0], passphrase); err != nil {
		return nil, err
	}
	addrs := make([]common.Address, len(accts))
	for i, a := range accts {
		addrs[i] = a.Address
	}
	return addrs, nil
}

func (p *KeystoreProvider) Backend() chain.Backend {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	return p.client
}

func (p *KeystoreProvider) Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	client, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	chainID := p.chainID
	if chainID == nil {
		if chainID, err = client.ChainID(ctx); err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
	}
	acct, err := p.ks.Find(accounts.Account{Address: account})
	if err != nil {
		return nil, err
	}
	return bind.NewKeyStoreTransactorWithChainID(p.ks, acct, chainID)
}

// Ping reports whether the RPC node answers. A provider that was never
// enabled counts as reachable.
func (p *KeystoreProvider) Ping(ctx context.Context) error {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return nil
	}
	_, err := client.BlockNumber(ctx)
	return err
}

func (p *KeystoreProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

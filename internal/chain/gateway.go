package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Names of the two listing-count getters seen on deployed marketplace versions.
// They are not assumed equivalent: the first counts every house ever listed,
// the second may only count unsold ones.
const (
	CountEverListed = "viewNumberOfHouseAvailable"
	CountAvailable  = "viewNumberOfHousesAvailable"
)

var (
	ErrReverted    = errors.New("transaction reverted")
	ErrUnsupported = errors.New("operation not supported by this marketplace contract")
	ErrReadOnly    = errors.New("gateway has no signer")
)

// Capabilities describes the deployed marketplace contract version.
type Capabilities struct {
	SupportsResale bool
	CountMethod    string
}

func (c Capabilities) countMethod() string {
	if c.CountMethod == "" {
		return CountEverListed
	}
	return c.CountMethod
}

func (c Capabilities) abiJSON() string {
	if c.SupportsResale {
		return MarketplaceABI
	}
	return SimpleMarketplaceABI
}

// Listing is one house record as read from the contract.
type Listing struct {
	Index       int
	Owner       common.Address
	Name        string
	Image       string
	Description string
	Location    string
	Price       *big.Int
	// Sold is nil when the contract version has no sold flag.
	Sold *bool
}

// NewListing is the input of addHouse. Price is in token base units.
type NewListing struct {
	Name        string
	Image       string
	Description string
	Location    string
	Price       *big.Int
}

// Backend is the JSON-RPC transport a Gateway talks through.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Options binds a Gateway to contract addresses and an account.
type Options struct {
	Capabilities Capabilities
	Marketplace  common.Address
	Token        common.Address
	Account      common.Address
	// Signer may be nil for a read-only gateway.
	Signer *bind.TransactOpts
}

// Gateway exposes typed calls over the marketplace and token contracts.
type Gateway struct {
	caps        Capabilities
	account     common.Address
	marketplace common.Address
	market      *bind.BoundContract
	token       *bind.BoundContract
	waiter      bind.DeployBackend
	signer      *bind.TransactOpts
}

func NewGateway(backend Backend, opts Options) (*Gateway, error) {
	return newGateway(backend, backend, backend, opts)
}

func newGateway(caller bind.ContractCaller, transactor bind.ContractTransactor, waiter bind.DeployBackend, opts Options) (*Gateway, error) {
	marketABI, err := abi.JSON(strings.NewReader(opts.Capabilities.abiJSON()))
	if err != nil {
		return nil, fmt.Errorf("parse marketplace abi: %w", err)
	}
	tokenABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	if _, ok := marketABI.Methods[opts.Capabilities.countMethod()]; !ok {
		return nil, fmt.Errorf("unknown count method %q", opts.Capabilities.CountMethod)
	}

	return &Gateway{
		caps:        opts.Capabilities,
		account:     opts.Account,
		marketplace: opts.Marketplace,
		market:      bind.NewBoundContract(opts.Marketplace, marketABI, caller, transactor, nil),
		token:       bind.NewBoundContract(opts.Token, tokenABI, caller, transactor, nil),
		waiter:      waiter,
		signer:      opts.Signer,
	}, nil
}

func (g *Gateway) Account() common.Address { return g.account }

func (g *Gateway) Capabilities() Capabilities { return g.caps }

func (g *Gateway) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: g.account}
}

// CountAvailable returns the listing count reported by the configured getter.
func (g *Gateway) CountAvailable(ctx context.Context) (int, error) {
	method := g.caps.countMethod()
	var out []interface{}
	if err := g.market.Call(g.callOpts(ctx), &out, method); err != nil {
		return 0, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("%s: unexpected %d outputs", method, len(out))
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	if !n.IsInt64() || n.Int64() > math.MaxInt32 {
		return 0, fmt.Errorf("%s: count %s out of range", method, n)
	}
	return int(n.Int64()), nil
}

// FetchListing reads the house at index and decodes its positional fields.
func (g *Gateway) FetchListing(ctx context.Context, index int) (Listing, error) {
	var out []interface{}
	if err := g.market.Call(g.callOpts(ctx), &out, "viewHouse", big.NewInt(int64(index))); err != nil {
		return Listing{}, fmt.Errorf("viewHouse(%d): %w", index, err)
	}
	l, err := decodeListing(index, out, g.caps.SupportsResale)
	if err != nil {
		return Listing{}, fmt.Errorf("viewHouse(%d): %w", index, err)
	}
	return l, nil
}

func decodeListing(index int, out []interface{}, withSold bool) (Listing, error) {
	want := 6
	if withSold {
		want = 7
	}
	if len(out) != want {
		return Listing{}, fmt.Errorf("expected %d outputs, got %d", want, len(out))
	}

	l := Listing{Index: index}
	var ok bool
	if l.Owner, ok = out[0].(common.Address); !ok {
		return Listing{}, fmt.Errorf("owner: unexpected type %T", out[0])
	}
	strs := []*string{&l.Name, &l.Image, &l.Description, &l.Location}
	for i, dst := range strs {
		s, ok := out[i+1].(string)
		if !ok {
			return Listing{}, fmt.Errorf("field %d: unexpected type %T", i+1, out[i+1])
		}
		*dst = s
	}
	if l.Price, ok = out[5].(*big.Int); !ok {
		return Listing{}, fmt.Errorf("price: unexpected type %T", out[5])
	}
	if withSold {
		sold, ok := out[6].(bool)
		if !ok {
			return Listing{}, fmt.Errorf("sold: unexpected type %T", out[6])
		}
		l.Sold = &sold
	}
	return l, nil
}

// Balance returns the account's token balance in base units.
func (g *Gateway) Balance(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := g.token.Call(g.callOpts(ctx), &out, "balanceOf", g.account); err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("balanceOf: unexpected %d outputs", len(out))
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected output type %T", out[0])
	}
	return bal, nil
}

// CreateListing submits addHouse and waits for it to be mined.
func (g *Gateway) CreateListing(ctx context.Context, l NewListing) (common.Hash, error) {
	return g.transact(ctx, g.market, "addHouse", l.Name, l.Image, l.Description, l.Location, l.Price)
}

// ApproveSpend lets the marketplace move up to amount base units of the caller's tokens.
func (g *Gateway) ApproveSpend(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return g.transact(ctx, g.token, "approve", g.marketplace, amount)
}

func (g *Gateway) Purchase(ctx context.Context, index int) (common.Hash, error) {
	return g.transact(ctx, g.market, "buyHouse", big.NewInt(int64(index)))
}

func (g *Gateway) Resell(ctx context.Context, index int, price *big.Int) (common.Hash, error) {
	if !g.caps.SupportsResale {
		return common.Hash{}, fmt.Errorf("reSellHouse: %w", ErrUnsupported)
	}
	return g.transact(ctx, g.market, "reSellHouse", big.NewInt(int64(index)), price)
}

func (g *Gateway) CancelSale(ctx context.Context, index int) (common.Hash, error) {
	if !g.caps.SupportsResale {
		return common.Hash{}, fmt.Errorf("cancelSale: %w", ErrUnsupported)
	}
	return g.transact(ctx, g.market, "cancelSale", big.NewInt(int64(index)))
}

// transact signs and sends a call, then blocks until the receipt is available.
// There is no timeout beyond ctx.
func (g *Gateway) transact(ctx context.Context, c *bind.BoundContract, method string, params ...interface{}) (common.Hash, error) {
	if g.signer == nil {
		return common.Hash{}, fmt.Errorf("%s: %w", method, ErrReadOnly)
	}
	opts := *g.signer
	opts.Context = ctx

	tx, err := c.Transact(&opts, method, params...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", method, err)
	}
	receipt, err := bind.WaitMined(ctx, g.waiter, tx)
	if err != nil {
		return tx.Hash(), fmt.Errorf("%s %s: wait mined: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return tx.Hash(), fmt.Errorf("%s %s: %w", method, tx.Hash().Hex(), ErrReverted)
	}
	return tx.Hash(), nil
}

package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hushousing/internal/alerts"
	"github.com/sudo-init-do/hushousing/internal/chain"
	"github.com/sudo-init-do/hushousing/internal/journal"
)

var (
	me    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	other = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type genKey struct{}

// fakeGateway serves listings from memory. FetchListing blocks on the gate
// registered for the generation carried in ctx, if any.
type fakeGateway struct {
	mu       sync.Mutex
	listings []chain.Listing
	fetchErr map[int]error
	gates    map[string]chan struct{}
	started  chan string
	fetches  int
	calls    []string

	approveErr error
	writeErr   error
	resold     *big.Int
	created    chain.NewListing
	balance    *big.Int
}

func newFakeGateway(listings ...chain.Listing) *fakeGateway {
	return &fakeGateway{
		listings: listings,
		fetchErr: map[int]error{},
		gates:    map[string]chan struct{}{},
	}
}

func (f *fakeGateway) call(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeGateway) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGateway) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeGateway) Account() common.Address { return me }

func (f *fakeGateway) CountAvailable(context.Context) (int, error) {
	f.call("count")
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listings), nil
}

func (f *fakeGateway) FetchListing(ctx context.Context, index int) (chain.Listing, error) {
	gen, _ := ctx.Value(genKey{}).(string)
	f.mu.Lock()
	f.fetches++
	gate := f.gates[gen]
	started := f.started
	err := f.fetchErr[index]
	l := f.listings[index]
	f.mu.Unlock()

	if gate != nil {
		if started != nil {
			started <- gen
		}
		<-gate
	}
	if err != nil {
		return chain.Listing{}, err
	}
	if gen != "" {
		l.Name = gen
	}
	return l, nil
}

func (f *fakeGateway) Balance(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance != nil {
		return f.balance, nil
	}
	return new(big.Int).Mul(big.NewInt(7), big.NewInt(1e18)), nil
}

func (f *fakeGateway) CreateListing(_ context.Context, l chain.NewListing) (common.Hash, error) {
	f.call("addHouse")
	f.mu.Lock()
	f.created = l
	f.mu.Unlock()
	return common.HexToHash("0x01"), f.writeErr
}

func (f *fakeGateway) ApproveSpend(context.Context, *big.Int) (common.Hash, error) {
	f.call("approve")
	return common.Hash{}, f.approveErr
}

func (f *fakeGateway) Purchase(context.Context, int) (common.Hash, error) {
	f.call("buyHouse")
	return common.HexToHash("0x02"), f.writeErr
}

func (f *fakeGateway) Resell(_ context.Context, _ int, price *big.Int) (common.Hash, error) {
	f.call("reSellHouse")
	f.mu.Lock()
	f.resold = price
	f.mu.Unlock()
	return common.HexToHash("0x03"), f.writeErr
}

func (f *fakeGateway) CancelSale(context.Context, int) (common.Hash, error) {
	f.call("cancelSale")
	return common.HexToHash("0x04"), f.writeErr
}

type fakeConnector struct {
	gw  Gateway
	err error
}

func (c fakeConnector) Installed() bool { return true }

func (c fakeConnector) Connect(context.Context, string) (common.Address, Gateway, error) {
	if c.err != nil {
		return common.Address{}, nil, c.err
	}
	return me, c.gw, nil
}

func house(i int, owner common.Address, name string, sold *bool) chain.Listing {
	return chain.Listing{
		Index: i,
		Owner: owner,
		Name:  name,
		Price: new(big.Int).Mul(big.NewInt(int64(i+1)), big.NewInt(1e18)),
		Sold:  sold,
	}
}

func boolPtr(b bool) *bool { return &b }

var testOpts = Options{
	Capabilities: chain.Capabilities{SupportsResale: true, CountMethod: chain.CountEverListed},
	Decimals:     18,
	Symbol:       "cUSD",
}

func newTestMarketplace(t *testing.T, gw *fakeGateway) (*Marketplace, *journal.Memory) {
	t.Helper()
	rec := journal.NewMemory(50)
	m := NewMarketplace(fakeConnector{gw: gw}, alerts.NewChannel(zap.NewNop()), rec, testOpts, zap.NewNop())
	if err := m.Connect(context.Background(), "pw"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return m, rec
}

func TestConnectLoadsBalanceAndListings(t *testing.T) {
	gw := newFakeGateway(house(0, other, "a", nil), house(1, other, "b", nil), house(2, me, "c", nil))
	m, _ := newTestMarketplace(t, gw)

	if got := gw.Fetches(); got != 3 {
		t.Fatalf("fetches=%d want 3", got)
	}
	if m.Cache().Len() != 3 {
		t.Fatalf("cache len=%d want 3", m.Cache().Len())
	}
	if m.Balance() != "7.00" {
		t.Fatalf("balance=%q want 7.00", m.Balance())
	}
	if n := m.Notification(); n.Visible || n.Message != "⌛ Loading..." {
		t.Fatalf("notification=%+v want hidden loading message", n)
	}
}

func TestConnectFailureIsSurfaced(t *testing.T) {
	denied := errors.New("user rejected")
	m := NewMarketplace(fakeConnector{err: denied}, alerts.NewChannel(nil), nil, testOpts, nil)
	if err := m.Connect(context.Background(), "pw"); !errors.Is(err, denied) {
		t.Fatalf("err=%v want %v", err, denied)
	}
	if m.Connected() {
		t.Fatal("marketplace should not be connected")
	}
}

func TestRefreshIssuesOneFetchPerListing(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newTestMarketplace(t, gw)
	for i := 0; i < 5; i++ {
		gw.listings = append(gw.listings, house(i, other, fmt.Sprint(i), nil))
	}

	if err := m.RefreshListings(context.Background()); err != nil {
		t.Fatalf("RefreshListings: %v", err)
	}
	if got := gw.Fetches(); got != 5 {
		t.Fatalf("fetches=%d want 5", got)
	}
	snap := m.Cache().Snapshot()
	if len(snap) != 5 {
		t.Fatalf("cache len=%d want 5", len(snap))
	}
	for i, l := range snap {
		if l.Index != i {
			t.Fatalf("cache[%d].Index=%d", i, l.Index)
		}
	}
}

func TestRefreshFailureKeepsPreviousCache(t *testing.T) {
	gw := newFakeGateway(house(0, other, "old0", nil), house(1, other, "old1", nil))
	m, _ := newTestMarketplace(t, gw)

	gw.mu.Lock()
	gw.listings = []chain.Listing{house(0, other, "new0", nil), house(1, other, "new1", nil), house(2, other, "new2", nil)}
	gw.fetchErr[1] = errors.New("rpc down")
	gw.mu.Unlock()

	if err := m.RefreshListings(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	snap := m.Cache().Snapshot()
	if len(snap) != 2 || snap[0].Name != "old0" || snap[1].Name != "old1" {
		t.Fatalf("cache=%+v want previous listings", snap)
	}
}

func TestBackToBackRefreshLastCompletedWins(t *testing.T) {
	gw := newFakeGateway(house(0, other, "x", nil))
	m, _ := newTestMarketplace(t, gw)

	gate := make(chan struct{})
	gw.mu.Lock()
	gw.gates["slow"] = gate
	gw.started = make(chan string, 1)
	gw.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- m.RefreshListings(context.WithValue(context.Background(), genKey{}, "slow"))
	}()
	<-gw.started

	if err := m.RefreshListings(context.WithValue(context.Background(), genKey{}, "fast")); err != nil {
		t.Fatalf("fast refresh: %v", err)
	}
	if l, _ := m.Cache().At(0); l.Name != "fast" {
		t.Fatalf("after fast refresh name=%q", l.Name)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("slow refresh: %v", err)
	}
	if l, _ := m.Cache().At(0); l.Name != "slow" {
		t.Fatalf("after slow refresh name=%q want slow", l.Name)
	}
}

func TestBuyContinuesAfterApproveFailureAndRefreshes(t *testing.T) {
	gw := newFakeGateway(house(0, other, "Villa", nil))
	m, rec := newTestMarketplace(t, gw)
	gw.approveErr = errors.New("approve rejected")
	gw.writeErr = chain.ErrReverted
	before := gw.Fetches()

	err := m.Buy(context.Background(), 0)
	if !errors.Is(err, gw.approveErr) || !errors.Is(err, chain.ErrReverted) {
		t.Fatalf("err=%v want both approve and write errors", err)
	}
	calls := strings.Join(gw.Calls(), ",")
	if !strings.Contains(calls, "approve,buyHouse,count") {
		t.Fatalf("calls=%s", calls)
	}
	if gw.Fetches() != before+1 {
		t.Fatalf("fetches=%d want %d", gw.Fetches(), before+1)
	}
	if n := m.Notification(); !n.Visible || !strings.HasPrefix(n.Message, "⚠️") {
		t.Fatalf("notification=%+v want visible error", n)
	}

	entries, _ := rec.Recent(context.Background(), 10)
	if len(entries) != 2 || entries[0].Action != "buyHouse" || entries[0].Status != journal.StatusFailed {
		t.Fatalf("journal=%+v", entries)
	}
}

func TestBuySuccessNotifies(t *testing.T) {
	gw := newFakeGateway(house(0, other, "Villa", nil))
	m, _ := newTestMarketplace(t, gw)

	if err := m.Buy(context.Background(), 0); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if n := m.Notification(); n.Message != `🎉 You successfully bought "Villa". 🎉` {
		t.Fatalf("message=%q", n.Message)
	}
}

func TestCreateListingScalesPrice(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newTestMarketplace(t, gw)

	err := m.CreateListing(context.Background(), ListingForm{Name: "Villa", Image: "img", Description: "d", Location: "Accra", Price: "12.5"})
	if err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
	want, _ := new(big.Int).SetString("12500000000000000000", 10)
	if gw.created.Price.Cmp(want) != 0 || gw.created.Location != "Accra" {
		t.Fatalf("created=%+v", gw.created)
	}
	if n := m.Notification(); n.Message != `🎉 You successfully added "Villa". 🎉` {
		t.Fatalf("message=%q", n.Message)
	}
}

func TestCreateListingRejectsUnparsablePrice(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newTestMarketplace(t, gw)

	err := m.CreateListing(context.Background(), ListingForm{Name: "Villa", Price: "cheap"})
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("err=%v want ErrInvalidPrice", err)
	}
	for _, c := range gw.Calls() {
		if c == "addHouse" {
			t.Fatal("addHouse should not be called")
		}
	}
}

func TestResellWithoutPrice(t *testing.T) {
	gw := newFakeGateway(house(0, me, "Villa", boolPtr(true)))
	m, _ := newTestMarketplace(t, gw)
	calls := len(gw.Calls())

	if err := m.Resell(context.Background(), 0, nil); !errors.Is(err, ErrPriceRequired) {
		t.Fatalf("err=%v want ErrPriceRequired", err)
	}
	if n := m.Notification(); n.Message != "⚠️ You must enter a price." {
		t.Fatalf("message=%q", n.Message)
	}
	if len(gw.Calls()) != calls {
		t.Fatalf("unexpected calls %v", gw.Calls()[calls:])
	}
}

func TestResellScalesPrice(t *testing.T) {
	gw := newFakeGateway(house(0, me, "Villa", boolPtr(true)))
	m, _ := newTestMarketplace(t, gw)

	price := "3"
	if err := m.Resell(context.Background(), 0, &price); err != nil {
		t.Fatalf("Resell: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18))
	if gw.resold.Cmp(want) != 0 {
		t.Fatalf("resold=%s want %s", gw.resold, want)
	}
}

func TestCancelSaleApprovesThenCancels(t *testing.T) {
	gw := newFakeGateway(house(0, me, "Villa", boolPtr(false)))
	m, _ := newTestMarketplace(t, gw)

	if err := m.Do(context.Background(), 0, ActionCancelSale, nil); err != nil {
		t.Fatalf("CancelSale: %v", err)
	}
	calls := strings.Join(gw.Calls(), ",")
	if !strings.Contains(calls, "approve,cancelSale,count") {
		t.Fatalf("calls=%s", calls)
	}
	if n := m.Notification(); n.Message != `🎉 Cancelling sale of "Villa" successful. 🎉` {
		t.Fatalf("message=%q", n.Message)
	}
}

func TestActionsRequireKnownListingAndConnection(t *testing.T) {
	gw := newFakeGateway(house(0, other, "Villa", nil))
	m, _ := newTestMarketplace(t, gw)
	calls := len(gw.Calls())

	if err := m.Buy(context.Background(), 9); !errors.Is(err, ErrUnknownListing) {
		t.Fatalf("err=%v want ErrUnknownListing", err)
	}
	if len(gw.Calls()) != calls {
		t.Fatalf("unexpected calls %v", gw.Calls()[calls:])
	}

	idle := NewMarketplace(fakeConnector{gw: gw}, alerts.NewChannel(nil), nil, testOpts, nil)
	if err := idle.Buy(context.Background(), 0); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err=%v want ErrNotConnected", err)
	}
}

func TestRefreshReadsBalanceWhenListingsFail(t *testing.T) {
	gw := newFakeGateway(house(0, other, "Villa", nil))
	m, _ := newTestMarketplace(t, gw)

	boom := errors.New("viewHouse(0): rpc down")
	gw.mu.Lock()
	gw.fetchErr[0] = boom
	gw.balance = new(big.Int).Mul(big.NewInt(9), big.NewInt(1e18))
	gw.mu.Unlock()

	if err := m.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err=%v want %v", err, boom)
	}
	if m.Balance() != "9.00" {
		t.Fatalf("balance=%q want 9.00", m.Balance())
	}
	if n := m.Notification(); !n.Visible || !strings.Contains(n.Message, "rpc down") {
		t.Fatalf("notification=%+v", n)
	}
}

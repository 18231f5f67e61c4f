package marketplace

import (
	"context"
	"testing"

	"github.com/sudo-init-do/hushousing/internal/alerts"
)

func TestRefresherSkipsWhenDisconnected(t *testing.T) {
	m := NewMarketplace(fakeConnector{gw: newFakeGateway()}, alerts.NewChannel(nil), nil, testOpts, nil)
	r, err := NewRefresher(m, "@every 1h", nil)
	if err != nil {
		t.Fatalf("NewRefresher: %v", err)
	}
	if r.RunOnce(context.Background()) {
		t.Fatal("refresh ran without a connection")
	}
}

func TestRefresherRunsWhenConnected(t *testing.T) {
	gw := newFakeGateway(house(0, other, "a", nil), house(1, other, "b", nil))
	m, _ := newTestMarketplace(t, gw)
	r, err := NewRefresher(m, "@every 1h", nil)
	if err != nil {
		t.Fatalf("NewRefresher: %v", err)
	}
	before := gw.Fetches()
	if !r.RunOnce(context.Background()) {
		t.Fatal("refresh did not run")
	}
	if gw.Fetches() != before+2 {
		t.Fatalf("fetches=%d want %d", gw.Fetches(), before+2)
	}
}

func TestRefresherRejectsBadSchedule(t *testing.T) {
	m := NewMarketplace(nil, alerts.NewChannel(nil), nil, testOpts, nil)
	if _, err := NewRefresher(m, "every now and then", nil); err == nil {
		t.Fatal("expected schedule error")
	}
}

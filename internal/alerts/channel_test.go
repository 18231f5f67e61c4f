package alerts

import "testing"

func TestShowHide(t *testing.T) {
	c := NewChannel(nil)
	if n := c.Snapshot(); n.Visible || n.Message != "" {
		t.Fatalf("initial=%+v", n)
	}

	c.Show("⌛ Loading...")
	if n := c.Snapshot(); !n.Visible || n.Message != "⌛ Loading..." {
		t.Fatalf("after show=%+v", n)
	}

	c.Hide()
	n := c.Snapshot()
	if n.Visible {
		t.Fatal("hide should clear visibility")
	}
	if n.Message != "⌛ Loading..." {
		t.Fatalf("hide should keep message, got %q", n.Message)
	}
}

func TestLastWriteWins(t *testing.T) {
	c := NewChannel(nil)
	c.Show("first")
	c.Show("second")
	if got := c.Snapshot().Message; got != "second" {
		t.Fatalf("message=%q want second", got)
	}
}

func TestSubscriptionKeepsLatestOnly(t *testing.T) {
	c := NewChannel(nil)
	sub := c.Subscribe()
	defer sub.Close()

	// primed snapshot, then three writes with nobody reading
	c.Show("a")
	c.Show("b")
	c.Show("c")

	got := <-sub.C
	if got.Message != "c" || !got.Visible {
		t.Fatalf("got %+v want latest c", got)
	}
	select {
	case extra := <-sub.C:
		t.Fatalf("unexpected queued notification %+v", extra)
	default:
	}
}

func TestSubscriptionClose(t *testing.T) {
	c := NewChannel(nil)
	sub := c.Subscribe()
	<-sub.C
	sub.Close()
	sub.Close()

	c.Show("after close")
	if _, ok := <-sub.C; ok {
		t.Fatal("closed subscription should not receive")
	}
}

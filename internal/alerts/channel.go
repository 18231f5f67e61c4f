package alerts

import (
	"sync"

	"go.uber.org/zap"
)

// Notification is the state of the single user-visible status line.
type Notification struct {
	Message string `json:"message"`
	Visible bool   `json:"visible"`
}

// Channel is a single-slot, last-write-wins notification line.
// Concurrent Show calls overwrite each other; nothing is queued.
type Channel struct {
	mu      sync.Mutex
	current Notification
	subs    map[*Subscription]struct{}
	logger  *zap.Logger
}

func NewChannel(logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{subs: make(map[*Subscription]struct{}), logger: logger}
}

// Show sets the message and makes it visible.
func (c *Channel) Show(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = Notification{Message: text, Visible: true}
	c.logger.Debug("notification shown", zap.String("message", text))
	c.publish()
}

// Hide clears visibility. The message is kept but no longer shown.
func (c *Channel) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Visible = false
	c.publish()
}

func (c *Channel) Snapshot() Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscription receives every new snapshot. A slow reader only ever sees the
// latest value; intermediate ones are dropped.
type Subscription struct {
	C <-chan Notification

	ch    chan Notification
	owner *Channel
}

// Subscribe registers a push observer, primed with the current snapshot.
func (c *Channel) Subscribe() *Subscription {
	ch := make(chan Notification, 1)
	s := &Subscription{C: ch, ch: ch, owner: c}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[s] = struct{}{}
	ch <- c.current
	return s
}

// Close unregisters the subscription and closes C.
func (s *Subscription) Close() {
	c := s.owner
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[s]; !ok {
		return
	}
	delete(c.subs, s)
	close(s.ch)
}

// publish must be called with c.mu held.
func (c *Channel) publish() {
	for s := range c.subs {
		select {
		case s.ch <- c.current:
			continue
		default:
		}
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- c.current:
		default:
		}
	}
}

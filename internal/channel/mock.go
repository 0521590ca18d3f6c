package channel

import (
	"context"
	"sync"

	"github.com/sipwell/agent/internal/domain"
)

// MockChannel records dispatched messages in memory. Used in tests and
// as a stand-in surface when running without a UI.
type MockChannel struct {
	kind domain.ChannelKind

	mu    sync.Mutex
	shown []domain.ReminderMessage
	err   error
}

func NewMockChannel(kind domain.ChannelKind) *MockChannel {
	return &MockChannel{kind: kind}
}

// FailWith makes subsequent Show calls return err. Pass nil to heal.
func (c *MockChannel) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *MockChannel) Kind() domain.ChannelKind {
	return c.kind
}

func (c *MockChannel) Show(ctx context.Context, msg domain.ReminderMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.shown = append(c.shown, msg)
	return nil
}

// Shown returns a copy of every message dispatched so far.
func (c *MockChannel) Shown() []domain.ReminderMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ReminderMessage, len(c.shown))
	copy(out, c.shown)
	return out
}

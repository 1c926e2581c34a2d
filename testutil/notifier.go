package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Delivery is one message recorded by FakeNotifier
type Delivery struct {
	SessionID string
	Message   string
}

// FakeNotifier records deliveries and resolves handles from a fixed map
type FakeNotifier struct {
	mu sync.Mutex

	Sessions   map[string]string // handle -> chat session id
	ResolveErr error
	DeliverErr error

	deliveries []Delivery
	resolves   []string
}

// NewFakeNotifier creates a notifier that knows the given handle/session pairs
func NewFakeNotifier(sessions map[string]string) *FakeNotifier {
	if sessions == nil {
		sessions = map[string]string{}
	}
	return &FakeNotifier{Sessions: sessions}
}

// ResolveChatSession looks handle up in Sessions
func (n *FakeNotifier) ResolveChatSession(_ context.Context, handle string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.resolves = append(n.resolves, handle)
	if n.ResolveErr != nil {
		return "", n.ResolveErr
	}
	if session, ok := n.Sessions[strings.ToLower(handle)]; ok {
		return session, nil
	}
	return "", fmt.Errorf("no chat for %s", handle)
}

// Deliver records the message; it is recorded even when DeliverErr is set
func (n *FakeNotifier) Deliver(_ context.Context, sessionID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.deliveries = append(n.deliveries, Delivery{SessionID: sessionID, Message: message})
	return n.DeliverErr
}

// Deliveries returns a copy of the recorded deliveries
func (n *FakeNotifier) Deliveries() []Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Delivery(nil), n.deliveries...)
}

// Resolves returns the handles passed to ResolveChatSession
func (n *FakeNotifier) Resolves() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.resolves...)
}

// ErrDeliveryDown simulates an unreachable chat API
var ErrDeliveryDown = errors.New("chat api unreachable")

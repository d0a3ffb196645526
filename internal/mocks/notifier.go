package mocks

import (
	"context"
	"sync"
)

// SentMessage records one delivered notification.
type SentMessage struct {
	UserID  int64
	Message string
}

// MockNotifier implements notify.Notifier for testing, recording every
// message it is asked to deliver.
type MockNotifier struct {
	mu sync.Mutex

	// NotifyFn overrides the default recording behavior.
	NotifyFn func(ctx context.Context, userID int64, message string) error

	Sent []SentMessage
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Notify implements the Notifier interface.
func (m *MockNotifier) Notify(ctx context.Context, userID int64, message string) error {
	if m.NotifyFn != nil {
		return m.NotifyFn(ctx, userID, message)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{UserID: userID, Message: message})
	return nil
}

// SentTo returns the messages delivered to the given user. Test helper.
func (m *MockNotifier) SentTo(userID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, s := range m.Sent {
		if s.UserID == userID {
			out = append(out, s.Message)
		}
	}
	return out
}

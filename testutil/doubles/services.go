package doubles

import (
	"context"
	"sync"
)

// NotificationServiceSpy records sent messages. The first FailTimes sends fail with Err.
type NotificationServiceSpy struct {
	mu        sync.Mutex
	messages  []string
	attempts  int
	FailTimes int
	Err       error
}

func NewNotificationServiceSpy() *NotificationServiceSpy {
	return &NotificationServiceSpy{}
}

func (n *NotificationServiceSpy) SendNotification(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.attempts++

	if n.Err != nil && (n.FailTimes <= 0 || n.attempts <= n.FailTimes) {
		return n.Err
	}

	n.messages = append(n.messages, message)

	return nil
}

// Messages returns the successfully sent messages.
func (n *NotificationServiceSpy) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.messages...)
}

// Attempts returns the number of send calls, failed ones included.
func (n *NotificationServiceSpy) Attempts() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.attempts
}

// ReviewServiceStub returns canned reviews or an error and counts Close calls.
type ReviewServiceStub struct {
	mu         sync.Mutex
	Reviews    []string
	Err        error
	CloseErr   error
	fetches    []string
	closeCalls int
}

func NewReviewServiceStub(reviews ...string) *ReviewServiceStub {
	return &ReviewServiceStub{Reviews: reviews}
}

func (r *ReviewServiceStub) GetReviewsForBook(_ context.Context, isbn string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fetches = append(r.fetches, isbn)

	if r.Err != nil {
		return nil, r.Err
	}

	return r.Reviews, nil
}

func (r *ReviewServiceStub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeCalls++

	return r.CloseErr
}

// Fetches returns the ISBNs reviews were fetched for.
func (r *ReviewServiceStub) Fetches() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.fetches...)
}

// CloseCalls returns how often Close was called.
func (r *ReviewServiceStub) CloseCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closeCalls
}

// Package redisnotify delivers user notifications through Redis.
//
// Every notification is appended to the user's inbox list and published on the user's channel
// in one MULTI/EXEC transaction, so subscribers and later inbox reads see the same messages.
package redisnotify

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/library-circulation-go/library/core"
)

const defaultKeyPrefix = "library"

var (
	ErrNilClient          = errors.New("redis client must not be nil")
	ErrEmptyKeyPrefix     = errors.New("key prefix must not be empty")
	ErrDeliveryFailed     = errors.New("delivering notification failed")
	ErrReadingInboxFailed = errors.New("reading inbox failed")
)

// Notification is the JSON envelope stored in the inbox and published on the channel.
type Notification struct {
	UserID  string    `json:"user_id"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// Publisher writes notifications to Redis.
type Publisher struct {
	client     redis.Cmdable
	keyPrefix  string
	inboxLimit int64
	clock      func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher) error

// WithKeyPrefix sets the prefix of inbox keys and channels, the default is "library".
func WithKeyPrefix(prefix string) Option {
	return func(p *Publisher) error {
		if prefix == "" {
			return ErrEmptyKeyPrefix
		}

		p.keyPrefix = prefix

		return nil
	}
}

// WithInboxLimit keeps only the newest limit notifications per inbox. Zero means unlimited.
func WithInboxLimit(limit int64) Option {
	return func(p *Publisher) error {
		p.inboxLimit = max(limit, 0)

		return nil
	}
}

// WithClock replaces time.Now as the source of SentAt.
func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) error {
		p.clock = clock

		return nil
	}
}

func NewPublisher(client redis.Cmdable, options ...Option) (*Publisher, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	p := &Publisher{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		clock:     time.Now,
	}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// ForUser returns the notification service bound to one user.
// Its signature fits eventsourced.NotifierFactory.
func (p *Publisher) ForUser(userID string) core.NotificationService {
	return userNotifier{publisher: p, userID: userID}
}

// Publish delivers one message to the user's inbox and channel.
func (p *Publisher) Publish(ctx context.Context, userID string, message string) error {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(Notification{
		UserID:  userID,
		Message: message,
		SentAt:  p.clock().UTC(),
	})
	if err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}

	inboxKey := p.InboxKey(userID)

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, inboxKey, payload)

		if p.inboxLimit > 0 {
			pipe.LTrim(ctx, inboxKey, -p.inboxLimit, -1)
		}

		pipe.Publish(ctx, p.Channel(userID), payload)

		return nil
	})
	if err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}

	return nil
}

// Inbox returns the stored notifications of the user, oldest first.
func (p *Publisher) Inbox(ctx context.Context, userID string) ([]Notification, error) {
	entries, err := p.client.LRange(ctx, p.InboxKey(userID), 0, -1).Result()
	if err != nil {
		return nil, errors.Join(ErrReadingInboxFailed, err)
	}

	notifications := make([]Notification, 0, len(entries))

	for _, entry := range entries {
		var n Notification

		if unmarshalErr := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(entry, &n); unmarshalErr != nil {
			return nil, errors.Join(ErrReadingInboxFailed, unmarshalErr)
		}

		notifications = append(notifications, n)
	}

	return notifications, nil
}

func (p *Publisher) InboxKey(userID string) string {
	return p.keyPrefix + ":inbox:" + userID
}

func (p *Publisher) Channel(userID string) string {
	return p.keyPrefix + ":notifications:" + userID
}

type userNotifier struct {
	publisher *Publisher
	userID    string
}

func (n userNotifier) SendNotification(ctx context.Context, message string) error {
	return n.publisher.Publish(ctx, n.userID, message)
}

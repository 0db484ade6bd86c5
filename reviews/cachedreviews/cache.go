// Package cachedreviews caches review lookups in front of another review service.
package cachedreviews

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var (
	ErrNilReviewService = errors.New("review service must not be nil")
	ErrInvalidSize      = errors.New("cache size must be positive")
	ErrInvalidTTL       = errors.New("cache TTL must be positive")
)

// ReviewService is the decorated service, httpreviews.Client satisfies it.
type ReviewService interface {
	GetReviewsForBook(ctx context.Context, isbn string) ([]string, error)
	Close() error
}

// Cache serves non-empty review lists from an expiring LRU cache.
// Empty results and errors are never cached.
type Cache struct {
	next    ReviewService
	entries *expirable.LRU[string, []string]
}

func New(next ReviewService, size int, ttl time.Duration) (*Cache, error) {
	if next == nil {
		return nil, ErrNilReviewService
	}

	if size <= 0 {
		return nil, ErrInvalidSize
	}

	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	return &Cache{
		next:    next,
		entries: expirable.NewLRU[string, []string](size, nil, ttl),
	}, nil
}

func (c *Cache) GetReviewsForBook(ctx context.Context, isbn string) ([]string, error) {
	if reviews, ok := c.entries.Get(isbn); ok {
		return clone(reviews), nil
	}

	reviews, err := c.next.GetReviewsForBook(ctx, isbn)
	if err != nil {
		return nil, err
	}

	if len(reviews) > 0 {
		c.entries.Add(isbn, clone(reviews))
	}

	return reviews, nil
}

// Close releases the decorated service, the cached entries survive.
func (c *Cache) Close() error {
	return c.next.Close()
}

// Len returns the number of cached ISBNs.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func clone(reviews []string) []string {
	return append([]string(nil), reviews...)
}

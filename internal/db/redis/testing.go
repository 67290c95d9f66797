package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps an arbitrary rueidis client (e.g. rueidis/mock).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}

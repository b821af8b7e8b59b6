package msgbroker

import (
	"github.com/go-redis/redis/v7"
)

// redisBroker is the implementation of MessageBroker using Redis pub/sub
type redisBroker struct {
	client *redis.Client
}

// NewRedisBroker returns a implementation of MessageBroker using Redis
func NewRedisBroker(r *redis.Client) MessageBroker {
	return &redisBroker{client: r}
}

// Publish does not treat zero receivers as an error, nobody may be listening to the feed
func (rb *redisBroker) Publish(msg []byte, channel string) error {
	return rb.client.Publish(channel, string(msg)).Err()
}

// Close is a no-op, the redis client is owned by the caller
func (rb *redisBroker) Close() error {
	return nil
}

package worker

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/config"
)

// RedisPublisher is the subset of the redis client the relay needs.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// MonitorRelay forwards key lifecycle events to the Redis channel that
// admin monitor sockets subscribe to.
type MonitorRelay struct {
	rdb RedisPublisher
	log zerolog.Logger
}

// NewMonitorRelay creates a new MonitorRelay.
func NewMonitorRelay(rdb RedisPublisher, log zerolog.Logger) *MonitorRelay {
	return &MonitorRelay{
		rdb: rdb,
		log: log.With().Str("component", "monitor_relay").Logger(),
	}
}

// Handle publishes the raw envelope. Monitor delivery is best-effort, so
// failures are logged and the message is acked.
func (r *MonitorRelay) Handle(msg *message.Message) error {
	if err := r.rdb.Publish(msg.Context(), config.CacheKey.KeyMonitorChannel(), []byte(msg.Payload)).Err(); err != nil {
		r.log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("monitor relay publish failed")
	}
	return nil
}

package notify

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamAdder is the subset of a go-redis client used by RedisStreamPublisher.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamConfig holds stream settings loaded from the environment.
type RedisStreamConfig struct {
	Stream string `env:"REDIS_STREAM" envDefault:"sublife:transitions"`
	MaxLen int64  `env:"REDIS_STREAM_MAXLEN" envDefault:"100000"`
}

// RedisStreamPublisher appends every notification to a stream as flat fields.
type RedisStreamPublisher struct {
	client StreamAdder
	stream string
	maxLen int64
}

// NewRedisStreamPublisher panics on a nil client or empty stream name.
// A positive maxLen trims the stream approximately on every append.
func NewRedisStreamPublisher(client StreamAdder, cfg RedisStreamConfig) *RedisStreamPublisher {
	if client == nil {
		panic("notify: nil redis client")
	}
	if cfg.Stream == "" {
		panic("notify: empty redis stream name")
	}
	return &RedisStreamPublisher{client: client, stream: cfg.Stream, maxLen: cfg.MaxLen}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, n Notification) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_id":        n.EventID.String(),
			"subscription_id": n.SubscriptionID.String(),
			"version":         strconv.Itoa(n.Version),
			"kind":            string(n.Kind),
			"effective_date":  n.EffectiveDate.UTC().Format(time.RFC3339Nano),
			"plan_name":       n.PlanName,
			"phase_type":      string(n.PhaseType),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

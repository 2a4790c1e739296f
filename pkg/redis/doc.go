// Package redis connects to Redis with retries and exposes a readiness probe.
//
// Connect parses a redis:// URL, pings the server and retries with
// exponential backoff (github.com/sethvargo/go-retry) until the attempt budget
// or ConnectTimeout is exhausted:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Healthcheck adapts any client with a Ping method to func(context.Context) error.
package redis

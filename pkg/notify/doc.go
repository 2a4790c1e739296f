// Package notify delivers subscription transition notifications.
//
// The scheduler hands every claimed event to a Publisher exactly once, and the
// subscription service publishes the CREATE of each committed create. A
// Publisher that must survive transient failures retries internally before
// returning (see WithRetry and WebhookPublisher); once Publish returns an
// error the notification is not attempted again.
//
// Implementations:
//
//   - KafkaPublisher writes to a topic through a sarama.SyncProducer, keyed by
//     subscription id so notifications of one subscription stay ordered.
//   - RedisStreamPublisher appends to a Redis stream with XADD.
//   - WebhookPublisher POSTs signed JSON to an HTTP endpoint.
//   - MemoryPublisher records notifications for tests and local runs.
//
// Fanout sends one notification to several publishers.
package notify

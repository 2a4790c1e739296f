package notify

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/IBM/sarama"
)

// KafkaConfig holds producer settings loaded from the environment.
type KafkaConfig struct {
	Brokers         []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic           string        `env:"KAFKA_TOPIC" envDefault:"subscription.transitions"`
	ClientID        string        `env:"KAFKA_CLIENT_ID" envDefault:"sublife"`
	MaxMessageBytes int           `env:"KAFKA_MAX_MESSAGE_BYTES" envDefault:"1000000"`
	Timeout         time.Duration `env:"KAFKA_TIMEOUT" envDefault:"10s"`
	RetryMax        int           `env:"KAFKA_RETRY_MAX" envDefault:"3"`
}

// Enabled reports whether brokers are configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewSaramaConfig builds a synchronous producer config.
// Every message waits for all in-sync replicas.
func NewSaramaConfig(cfg KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	if cfg.MaxMessageBytes > 0 {
		sc.Producer.MaxMessageBytes = cfg.MaxMessageBytes
	}
	if cfg.Timeout > 0 {
		sc.Producer.Timeout = cfg.Timeout
	}
	if cfg.RetryMax >= 0 {
		sc.Producer.Retry.Max = cfg.RetryMax
	}
	return sc
}

// NewKafkaProducer dials the brokers and returns a sync producer.
func NewKafkaProducer(cfg KafkaConfig) (sarama.SyncProducer, error) {
	if !cfg.Enabled() {
		return nil, errors.Join(ErrInvalidConfiguration, errors.New("no kafka brokers configured"))
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, errors.Join(ErrInvalidConfiguration, err)
	}
	return producer, nil
}

// KafkaPublisher writes notifications to a single topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher panics on a nil producer or empty topic.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	if producer == nil {
		panic("notify: nil kafka producer")
	}
	if topic == "" {
		panic("notify: empty kafka topic")
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := n.marshal()
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(n.SubscriptionID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(n.Kind)},
			{Key: []byte("event_id"), Value: []byte(n.EventID.String())},
			{Key: []byte("version"), Value: []byte(strconv.Itoa(n.Version))},
		},
		Timestamp: n.EffectiveDate,
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sublife/pkg/notify"
)

func TestKafkaPublisher(t *testing.T) {
	t.Parallel()

	t.Run("sends JSON payload", func(t *testing.T) {
		t.Parallel()
		producer := mocks.NewSyncProducer(t, nil)
		n := sampleNotification()
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var got notify.Notification
			if err := json.Unmarshal(val, &got); err != nil {
				return err
			}
			if got.EventID != n.EventID || got.Kind != n.Kind {
				return errors.New("unexpected payload")
			}
			return nil
		})

		p := notify.NewKafkaPublisher(producer, "subscription.transitions")
		require.NoError(t, p.Publish(context.Background(), n))
		require.NoError(t, p.Close())
	})

	t.Run("producer failure", func(t *testing.T) {
		t.Parallel()
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		p := notify.NewKafkaPublisher(producer, "subscription.transitions")
		err := p.Publish(context.Background(), sampleNotification())
		assert.ErrorIs(t, err, notify.ErrPublishFailed)
		assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
		require.NoError(t, p.Close())
	})

	t.Run("invalid construction", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { notify.NewKafkaPublisher(nil, "topic") })
		assert.Panics(t, func() { notify.NewKafkaPublisher(mocks.NewSyncProducer(t, nil), "") })

		_, err := notify.NewKafkaProducer(notify.KafkaConfig{})
		assert.ErrorIs(t, err, notify.ErrInvalidConfiguration)
	})
}

func TestNewSaramaConfig(t *testing.T) {
	t.Parallel()

	sc := notify.NewSaramaConfig(notify.KafkaConfig{ClientID: "sublife", MaxMessageBytes: 2048, RetryMax: 5})
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.True(t, sc.Producer.Return.Successes)
	assert.Equal(t, 2048, sc.Producer.MaxMessageBytes)
	assert.Equal(t, 5, sc.Producer.Retry.Max)
	require.NoError(t, sc.Validate())
}

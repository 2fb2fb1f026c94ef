package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSendsHeadersAndKey(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	sync := mocks.NewSyncProducer(t, cfg)
	sync.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "booking.events.v1", msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "b-1", string(key))
		require.Len(t, msg.Headers, 1)
		assert.Equal(t, "content-type", string(msg.Headers[0].Key))
		return nil
	})
	p := newProducer(sync)
	err := p.Publish(context.Background(), "booking.events.v1", "b-1", []byte(`{}`), map[string]string{"content-type": "application/cloudevents+json"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublishWrapsBrokerErrors(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	sync := mocks.NewSyncProducer(t, cfg)
	sync.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := newProducer(sync)
	err := p.Publish(context.Background(), "listing.events.v1", "l-1", []byte(`{}`), nil)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

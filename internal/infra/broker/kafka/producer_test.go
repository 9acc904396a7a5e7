package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
)

func TestPublishSendsKeyedMessage(t *testing.T) {
	mock := mocks.NewSyncProducer(t, NewConfig("test"))
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "booking.events.v1" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "b-1" {
			return errors.New("unexpected key " + string(key))
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != "content-type" {
			return errors.New("headers not forwarded")
		}
		return nil
	})

	producer := WrapSyncProducer(mock)
	err := producer.Publish(context.Background(), "booking.events.v1", "b-1", []byte(`{}`), map[string]string{"content-type": "application/json"})
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

func TestPublishReturnsBrokerError(t *testing.T) {
	mock := mocks.NewSyncProducer(t, NewConfig("test"))
	mock.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	producer := WrapSyncProducer(mock)
	err := producer.Publish(context.Background(), "t", "k", []byte(`{}`), nil)
	require.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	require.NoError(t, producer.Close())
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, NewConfig("test"))
	producer := WrapSyncProducer(mock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := producer.Publish(ctx, "t", "k", nil, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, producer.Close())
}
